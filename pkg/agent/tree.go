package agent

import (
	"fmt"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
)

type treeLimits struct {
	maxDepth int
	maxLines int
}

var (
	fullTreeLimits = treeLimits{maxDepth: 6, maxLines: 80}
	subtreeLimits  = treeLimits{maxDepth: 4, maxLines: 40}
)

// RevertPath returns the ids from the root down to the revert origin: at each
// level it follows the first child whose subtree contains a failure, ending at
// a failing call with no failing descendants. It is empty when nothing failed.
func RevertPath(root *analysis.CallNode) []analysis.CallID {
	if root == nil {
		return nil
	}

	// Pre-order puts every parent before its children, so walking it backwards
	// settles each subtree before its parent.
	var order []*analysis.CallNode

	stack := []*analysis.CallNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		order = append(order, node)

		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}

	failing := make(map[*analysis.CallNode]bool, len(order))

	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		failed := !node.Success

		for _, child := range node.Children {
			failed = failed || failing[child]
		}

		failing[node] = failed
	}

	if !failing[root] {
		return nil
	}

	path := []analysis.CallID{root.ID}

	for node := root; node != nil; {
		var next *analysis.CallNode

		for _, child := range node.Children {
			if failing[child] {
				next = child

				break
			}
		}

		if next != nil {
			path = append(path, next.ID)
		}

		node = next
	}

	return path
}

// RenderTree renders the whole call tree. Calls on the revert path are shown
// regardless of the depth and line limits.
func RenderTree(tree *analysis.CallTree) string {
	root := tree.Root()
	if root == nil {
		return ""
	}

	r := &treeRenderer{limits: fullTreeLimits, path: map[analysis.CallID]struct{}{}}

	if path := RevertPath(root); len(path) > 0 {
		for _, id := range path {
			r.path[id] = struct{}{}
		}

		r.origin, r.hasOrigin = path[len(path)-1], true
	}

	r.render(root, 0)

	return strings.Join(r.lines, "\n")
}

// RenderSubtree renders node and its descendants with the tighter subtree
// limits and no revert-path highlighting.
func RenderSubtree(node *analysis.CallNode) string {
	r := &treeRenderer{limits: subtreeLimits}
	r.render(node, 0)

	return strings.Join(r.lines, "\n")
}

type treeRenderer struct {
	limits    treeLimits
	path      map[analysis.CallID]struct{}
	origin    analysis.CallID
	hasOrigin bool
	lines     []string
}

func (r *treeRenderer) onPath(id analysis.CallID) bool {
	_, ok := r.path[id]

	return ok
}

type renderFrame struct {
	node   *analysis.CallNode
	depth  int
	onPath bool
	next   int
}

func (r *treeRenderer) render(root *analysis.CallNode, depth int) {
	var stack []renderFrame

	if frame, ok := r.enter(root, depth); ok {
		stack = append(stack, frame)
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next >= len(top.node.Children) {
			stack = stack[:len(stack)-1]

			continue
		}

		child := top.node.Children[top.next]
		top.next++

		if !top.onPath && !r.onPath(child.ID) && len(r.lines) >= r.limits.maxLines {
			r.lines = append(r.lines, indent(top.depth)+"  ... (truncated)")
			stack = stack[:len(stack)-1]

			continue
		}

		if frame, ok := r.enter(child, top.depth+1); ok {
			stack = append(stack, frame)
		}
	}
}

// enter writes node's line and reports whether its children should be
// visited.
func (r *treeRenderer) enter(node *analysis.CallNode, depth int) (renderFrame, bool) {
	onPath := r.onPath(node.ID)

	if !onPath && len(r.lines) >= r.limits.maxLines {
		return renderFrame{}, false
	}

	r.lines = append(r.lines, r.line(node, depth))

	if depth >= r.limits.maxDepth && !onPath {
		if len(node.Children) > 0 {
			r.lines = append(r.lines, fmt.Sprintf("%s... (%d more calls)", indent(depth+1), len(node.Children)))
		}

		return renderFrame{}, false
	}

	return renderFrame{node: node, depth: depth, onPath: onPath}, true
}

func (r *treeRenderer) line(node *analysis.CallNode, depth int) string {
	var b strings.Builder

	b.WriteString(indent(depth))

	callType := node.CallType
	if callType == "" {
		callType = analysis.CallTypeCall
	}

	b.WriteString(string(callType))
	b.WriteString(" ")

	if node.ContractName != "" {
		fmt.Fprintf(&b, "%s [%s]", node.ContractName, node.Callee)
	} else {
		b.WriteString(node.Callee)
	}

	switch {
	case node.FunctionName != "":
		b.WriteString("." + strings.SplitN(node.FunctionName, "(", 2)[0])
	case node.FunctionSelector != "":
		b.WriteString("[" + node.FunctionSelector + "]")
	}

	if node.Protocol != "" {
		b.WriteString(" [" + node.Protocol + "]")
	}

	fmt.Fprintf(&b, " | %s gas | ", common.FormatNumber(float64(node.GasUsed)))

	if node.Success {
		b.WriteString("✓")
	} else {
		b.WriteString("✗ REVERT")

		if reason := strings.TrimSpace(node.RevertReason); reason != "" {
			fmt.Fprintf(&b, " — \"%s\"", reason)
		}
	}

	if r.hasOrigin && node.ID == r.origin {
		b.WriteString(" ◄ REVERT ORIGIN")
	}

	return b.String()
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
