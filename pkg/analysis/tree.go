package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const callIDPrefix = "call-"

// CallID identifies a node within one CallTree. It is the node's index in the
// tree's arena, which is also its pre-order position.
type CallID int

func (id CallID) String() string {
	return callIDPrefix + strconv.Itoa(int(id))
}

func (id CallID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *CallID) UnmarshalText(text []byte) error {
	parsed, err := ParseCallID(string(text))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

// ParseCallID accepts both "call-N" and a bare "N".
func ParseCallID(s string) (CallID, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), callIDPrefix))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid call id %q", s)
	}

	return CallID(n), nil
}

// CallTree is an arena of call nodes. nodes[i].ID == i and the arena order is
// the pre-order traversal of the tree rooted at nodes[0].
type CallTree struct {
	nodes []*CallNode
}

// NewCallTree wraps an arena built in pre-order.
func NewCallTree(nodes []*CallNode) *CallTree {
	return &CallTree{nodes: nodes}
}

// Root returns the outermost call, or nil for an empty tree.
func (t *CallTree) Root() *CallNode {
	if t == nil || len(t.nodes) == 0 {
		return nil
	}

	return t.nodes[0]
}

// Node looks up a node by id in constant time.
func (t *CallTree) Node(id CallID) (*CallNode, bool) {
	if t == nil || int(id) < 0 || int(id) >= len(t.nodes) {
		return nil, false
	}

	return t.nodes[id], true
}

// Nodes returns every node in pre-order. The slice must not be modified.
func (t *CallTree) Nodes() []*CallNode {
	if t == nil {
		return nil
	}

	return t.nodes
}

func (t *CallTree) Len() int {
	if t == nil {
		return 0
	}

	return len(t.nodes)
}

// Subtree returns n and all of its descendants in pre-order.
func (t *CallTree) Subtree(id CallID) []*CallNode {
	root, ok := t.Node(id)
	if !ok {
		return nil
	}

	out := []*CallNode{}
	stack := []*CallNode{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		out = append(out, n)

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}

	return out
}

// MarshalJSON encodes the tree as its nested root node.
func (t *CallTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Root())
}

// UnmarshalJSON decodes a nested root node and rebuilds the arena, restamping
// ids so they match arena positions.
func (t *CallTree) UnmarshalJSON(data []byte) error {
	var root *CallNode
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}

	if root == nil {
		return errors.New("call tree is empty")
	}

	t.nodes = t.nodes[:0]
	stack := []*CallNode{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n.ID = CallID(len(t.nodes))
		t.nodes = append(t.nodes, n)

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}

	return nil
}
