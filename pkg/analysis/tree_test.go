package analysis_test

import (
	"encoding/json"
	"testing"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree() *analysis.CallTree {
	grandchild := &analysis.CallNode{ID: 2, Depth: 2, Children: []*analysis.CallNode{}}
	child := &analysis.CallNode{ID: 1, Depth: 1, Children: []*analysis.CallNode{grandchild}}
	sibling := &analysis.CallNode{ID: 3, Depth: 1, Children: []*analysis.CallNode{}}
	root := &analysis.CallNode{ID: 0, Depth: 0, Children: []*analysis.CallNode{child, sibling}}

	return analysis.NewCallTree([]*analysis.CallNode{root, child, grandchild, sibling})
}

func TestCallID_Text(t *testing.T) {
	assert.Equal(t, "call-7", analysis.CallID(7).String())

	for _, in := range []string{"call-7", "7", " call-7 "} {
		id, err := analysis.ParseCallID(in)
		require.NoError(t, err, in)
		assert.Equal(t, analysis.CallID(7), id)
	}

	for _, in := range []string{"", "call-", "call-x", "-1"} {
		_, err := analysis.ParseCallID(in)
		assert.Error(t, err, in)
	}
}

func TestCallTree_NodeLookup(t *testing.T) {
	tree := buildTree()

	node, ok := tree.Node(2)
	require.True(t, ok)
	assert.Equal(t, 2, node.Depth)

	_, ok = tree.Node(4)
	assert.False(t, ok)

	_, ok = tree.Node(-1)
	assert.False(t, ok)
}

func TestCallTree_Subtree(t *testing.T) {
	tree := buildTree()

	ids := []analysis.CallID{}
	for _, n := range tree.Subtree(1) {
		ids = append(ids, n.ID)
	}

	assert.Equal(t, []analysis.CallID{1, 2}, ids)
	assert.Len(t, tree.Subtree(0), 4)
	assert.Nil(t, tree.Subtree(9))
}

func TestCallTree_JSONRebuildsArena(t *testing.T) {
	data, err := json.Marshal(buildTree())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"call-0"`)

	var decoded analysis.CallTree
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, 4, decoded.Len())

	for i, n := range decoded.Nodes() {
		assert.Equal(t, analysis.CallID(i), n.ID)
	}

	sibling, ok := decoded.Node(3)
	require.True(t, ok)
	assert.Same(t, decoded.Root().Children[1], sibling)
}

func TestCallTree_UnmarshalNull(t *testing.T) {
	var tree analysis.CallTree
	assert.Error(t, json.Unmarshal([]byte("null"), &tree))
}

func TestCallNode_Inputs(t *testing.T) {
	node := &analysis.CallNode{DecodedInputs: []analysis.Param{
		{Name: "to", Type: "address", Value: "0x1"},
		{Name: "value", Type: "uint256", Value: "10"},
	}}

	p, ok := node.Input("amount", "value")
	require.True(t, ok)
	assert.Equal(t, "10", p.Value)

	p, ok = node.InputOfType("address")
	require.True(t, ok)
	assert.Equal(t, "0x1", p.Value)

	_, ok = node.Input("spender")
	assert.False(t, ok)
}
