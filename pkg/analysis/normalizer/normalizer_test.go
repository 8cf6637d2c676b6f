package normalizer_test

import (
	"encoding/json"
	"testing"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/normalizer"
	"github.com/4rdii/transaction-debugger-agent/pkg/registry"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleTrace() *simulation.CallTrace {
	return &simulation.CallTrace{
		Type:  "CALL",
		From:  "0xAAAA000000000000000000000000000000000001",
		To:    "0xBBBB000000000000000000000000000000000002",
		Input: "0x38ED1739000000",
		Calls: []*simulation.CallTrace{
			{
				Type:  "STATICCALL",
				From:  "0xbbbb000000000000000000000000000000000002",
				To:    "0xcccc000000000000000000000000000000000003",
				Input: "0x70a08231",
				Calls: []*simulation.CallTrace{
					{Type: "DELEGATECALL", Input: "0x"},
				},
			},
			{
				Type:         "CALL",
				Input:        "0xa9059cbb0000",
				FunctionName: "transfer",
				Error:        "execution reverted",
				ErrorReason:  "ERC20: transfer amount exceeds balance",
			},
		},
	}
}

func TestNormalize_PreOrderIDsAndDepths(t *testing.T) {
	tree := normalizer.New(registry.Default()).Normalize(sampleTrace())

	require.Equal(t, 4, tree.Len())

	for i, node := range tree.Nodes() {
		assert.Equal(t, analysis.CallID(i), node.ID)

		for _, child := range node.Children {
			assert.Equal(t, node.Depth+1, child.Depth)
		}
	}

	root := tree.Root()
	assert.Equal(t, 0, root.Depth)
	require.Len(t, root.Children, 2)
	assert.Equal(t, analysis.CallID(1), root.Children[0].ID)
	assert.Equal(t, analysis.CallID(2), root.Children[0].Children[0].ID)
	assert.Equal(t, analysis.CallID(3), root.Children[1].ID)
	assert.Equal(t, analysis.CallTypeDelegateCall, root.Children[0].Children[0].CallType)
}

func TestNormalize_IDsIndependentAcrossRuns(t *testing.T) {
	n := normalizer.New(registry.Default())

	first := n.Normalize(sampleTrace())
	second := n.Normalize(sampleTrace())

	assert.Equal(t, analysis.CallID(0), second.Root().ID)
	assert.Equal(t, first.Len(), second.Len())
}

func TestNormalize_ResolvesRegistry(t *testing.T) {
	tree := normalizer.New(registry.Default()).Normalize(sampleTrace())
	root := tree.Root()

	assert.Equal(t, "0x38ed1739", root.FunctionSelector)
	assert.Equal(t, "Uniswap V2", root.Protocol)
	assert.Equal(t, registry.ActionSwap, root.Action)
	assert.Equal(t, "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)", root.FunctionName)
	assert.Equal(t, "0xaaaa000000000000000000000000000000000001", root.Caller)
	assert.Equal(t, "0xbbbb000000000000000000000000000000000002", root.Callee)

	// Explicit trace function name wins over the registry signature.
	transfer, ok := tree.Node(3)
	require.True(t, ok)
	assert.Equal(t, "transfer", transfer.FunctionName)
	assert.Equal(t, "ERC20", transfer.Protocol)
}

func TestNormalize_FailureAndDefaults(t *testing.T) {
	tree := normalizer.New(registry.Default()).Normalize(sampleTrace())

	root := tree.Root()
	assert.True(t, root.Success)
	assert.Empty(t, root.RevertReason)
	assert.Equal(t, "0x0", root.ValueWei)

	failed, _ := tree.Node(3)
	assert.False(t, failed.Success)
	assert.Equal(t, "ERC20: transfer amount exceeds balance", failed.RevertReason)

	short, _ := tree.Node(2)
	assert.Empty(t, short.FunctionSelector)
	assert.Empty(t, short.Protocol)
}

func TestNormalize_ErrorWithoutReason(t *testing.T) {
	tree := normalizer.New(registry.Default()).Normalize(&simulation.CallTrace{
		Type:  "CALL",
		Error: "out of gas",
		Value: strPtr("0x2386f26fc10000"),
	})

	assert.False(t, tree.Root().Success)
	assert.Equal(t, "out of gas", tree.Root().RevertReason)
	assert.Equal(t, "0x2386f26fc10000", tree.Root().ValueWei)
}

func TestNormalize_UnknownCallTypeDefaultsToCall(t *testing.T) {
	tree := normalizer.New(registry.Default()).Normalize(&simulation.CallTrace{Type: "SELFDESTRUCT"})

	assert.Equal(t, analysis.CallTypeCall, tree.Root().CallType)
}

func TestNormalize_NilTrace(t *testing.T) {
	tree := normalizer.New(registry.Default()).Normalize(nil)

	assert.Nil(t, tree.Root())
	assert.Equal(t, 0, tree.Len())
}

func TestNormalize_DeepTrace(t *testing.T) {
	root := &simulation.CallTrace{Type: "CALL"}
	cur := root

	for i := 0; i < 5000; i++ {
		next := &simulation.CallTrace{Type: "CALL"}
		cur.Calls = []*simulation.CallTrace{next}
		cur = next
	}

	tree := normalizer.New(registry.Default()).Normalize(root)

	require.Equal(t, 5001, tree.Len())
	last, ok := tree.Node(5000)
	require.True(t, ok)
	assert.Equal(t, 5000, last.Depth)
}

func TestValueText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"0xdead"`, "0xdead"},
		{"number", `12345678901234567890`, "12345678901234567890"},
		{"bool", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"array", `[ "a", 1 ]`, `["a",1]`},
		{"object", `{"a": {"b": 2}}`, `{"a":{"b":2}}`},
		{"malformed object", `{"a":`, `{"a":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizer.ValueText(json.RawMessage(tt.raw)))
		})
	}
}

func TestNormalize_DecodedParams(t *testing.T) {
	tree := normalizer.New(registry.Default()).Normalize(&simulation.CallTrace{
		Type:  "CALL",
		Input: "0x095ea7b3",
		DecodedInput: []simulation.SolType{
			{Name: "spender", Type: "address", Value: json.RawMessage(`"0x1111111111111111111111111111111111111111"`)},
			{Name: "amount", Type: "uint256", Value: json.RawMessage(`115792089237316195423570985008687907853269984665640564039457584007913129639935`)},
		},
	})

	root := tree.Root()
	require.Len(t, root.DecodedInputs, 2)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", root.DecodedInputs[0].Value)
	assert.Equal(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935", root.DecodedInputs[1].Value)
	assert.NotNil(t, root.DecodedOutputs)
}
