package agent_test

import (
	"strings"
	"testing"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds a single-path tree of n calls. The deepest call fails when
// failDeepest is set.
func chain(n int, failDeepest bool) *analysis.CallTree {
	nodes := make([]*analysis.CallNode, n)

	for i := n - 1; i >= 0; i-- {
		node := &analysis.CallNode{
			ID:       analysis.CallID(i),
			Depth:    i,
			CallType: analysis.CallTypeCall,
			Callee:   "0x000000000000000000000000000000000000000a",
			GasUsed:  1000,
			Success:  true,
			Children: []*analysis.CallNode{},
		}

		if i < n-1 {
			node.Children = []*analysis.CallNode{nodes[i+1]}
		}

		nodes[i] = node
	}

	if failDeepest {
		nodes[n-1].Success = false
		nodes[n-1].RevertReason = "boom"
	}

	return analysis.NewCallTree(nodes)
}

func TestRenderTree_RevertOrigin(t *testing.T) {
	lines := strings.Split(agent.RenderTree(failedTree()), "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "CALL UniswapV2Router02 ["+router+"].swapExactTokensForTokens [Uniswap V2] | 120,000 gas | ✗ REVERT — \"TransferHelper: TRANSFER_FROM_FAILED\"", lines[0])
	assert.Equal(t, "  STATICCALL USDC ["+token+"].balanceOf [ERC20] | 2,500 gas | ✓", lines[1])
	assert.Equal(t, "  CALL USDC ["+token+"].transferFrom [ERC20] | 30,000 gas | ✗ REVERT — \"ERC20: insufficient allowance\" ◄ REVERT ORIGIN", lines[2])
}

func TestRenderTree_SelectorAndBareAddress(t *testing.T) {
	root := &analysis.CallNode{
		Callee:           token,
		FunctionSelector: "0xdeadbeef",
		GasUsed:          21000,
		Success:          true,
		Children:         []*analysis.CallNode{},
	}

	assert.Equal(t, "CALL "+token+"[0xdeadbeef] | 21,000 gas | ✓", agent.RenderTree(analysis.NewCallTree([]*analysis.CallNode{root})))
	assert.Empty(t, agent.RenderTree(analysis.NewCallTree(nil)))
}

func TestRevertPath(t *testing.T) {
	assert.Equal(t, []analysis.CallID{0, 2}, agent.RevertPath(failedTree().Root()))
	assert.Empty(t, agent.RevertPath(chain(3, false).Root()))
	assert.Len(t, agent.RevertPath(chain(10, true).Root()), 10)
}

func TestRevertPath_FollowsFirstFailingSubtree(t *testing.T) {
	leaf := func(id analysis.CallID, ok bool) *analysis.CallNode {
		return &analysis.CallNode{ID: id, Success: ok, Children: []*analysis.CallNode{}}
	}

	clean := &analysis.CallNode{ID: 1, Success: true, Children: []*analysis.CallNode{leaf(2, true)}}
	failing := &analysis.CallNode{ID: 3, Success: true, Children: []*analysis.CallNode{leaf(4, true), leaf(5, false), leaf(6, false)}}
	root := &analysis.CallNode{ID: 0, Success: false, Children: []*analysis.CallNode{clean, failing}}

	assert.Equal(t, []analysis.CallID{0, 3, 5}, agent.RevertPath(root))
	assert.Equal(t, []analysis.CallID{7}, agent.RevertPath(leaf(7, false)))
	assert.Nil(t, agent.RevertPath(nil))
}

func TestRenderTree_DeepRevertPath(t *testing.T) {
	const depth = 2000

	tree := chain(depth, true)

	path := agent.RevertPath(tree.Root())
	require.Len(t, path, depth)
	assert.Equal(t, analysis.CallID(depth-1), path[depth-1])

	lines := strings.Split(agent.RenderTree(tree), "\n")
	require.Len(t, lines, depth)
	assert.True(t, strings.HasSuffix(lines[depth-1], "◄ REVERT ORIGIN"))
}

func TestRenderTree_DepthLimit(t *testing.T) {
	lines := strings.Split(agent.RenderTree(chain(10, false)), "\n")

	require.Len(t, lines, 8)
	assert.Equal(t, strings.Repeat("  ", 7)+"... (1 more calls)", lines[7])
}

func TestRenderTree_RevertPathIgnoresDepthLimit(t *testing.T) {
	lines := strings.Split(agent.RenderTree(chain(10, true)), "\n")

	require.Len(t, lines, 10)
	assert.True(t, strings.HasSuffix(lines[9], "✗ REVERT — \"boom\" ◄ REVERT ORIGIN"))
	assert.True(t, strings.HasPrefix(lines[9], strings.Repeat("  ", 9)+"CALL "))
}

func TestRenderTree_LineLimit(t *testing.T) {
	root := &analysis.CallNode{ID: 0, Callee: router, Success: true}
	nodes := []*analysis.CallNode{root}

	for i := 1; i <= 100; i++ {
		child := &analysis.CallNode{ID: analysis.CallID(i), Depth: 1, Callee: token, Success: true, Children: []*analysis.CallNode{}}
		root.Children = append(root.Children, child)
		nodes = append(nodes, child)
	}

	lines := strings.Split(agent.RenderTree(analysis.NewCallTree(nodes)), "\n")

	require.Len(t, lines, 81)
	assert.Equal(t, "  ... (truncated)", lines[80])
}

func TestRenderSubtree_Limits(t *testing.T) {
	tree := chain(10, true)

	lines := strings.Split(agent.RenderSubtree(tree.Root()), "\n")

	require.Len(t, lines, 6)
	assert.Equal(t, strings.Repeat("  ", 5)+"... (1 more calls)", lines[5])
	assert.NotContains(t, strings.Join(lines, "\n"), "REVERT ORIGIN")
}
