package failure_test

import (
	"testing"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(nodes ...*analysis.CallNode) *analysis.CallTree {
	for i, n := range nodes {
		n.ID = analysis.CallID(i)
		n.Depth = i
		n.Children = []*analysis.CallNode{}

		if i > 0 {
			nodes[i-1].Children = []*analysis.CallNode{n}
		}
	}

	return analysis.NewCallTree(nodes)
}

func TestAnalyze_SuccessfulRoot(t *testing.T) {
	tree := chain(
		&analysis.CallNode{Success: true},
		&analysis.CallNode{Success: false, RevertReason: "caught"},
	)

	assert.Nil(t, failure.Analyze(tree))
}

func TestAnalyze_AllowanceExplanation(t *testing.T) {
	tree := chain(
		&analysis.CallNode{ContractName: "Router", RevertReason: "TransferHelper: TRANSFER_FROM_FAILED"},
		&analysis.CallNode{
			ContractName:     "FiatTokenV2",
			FunctionName:     "transferFrom(address,address,uint256)",
			FunctionSelector: "0x23b872dd",
			RevertReason:     "ERC20: transfer amount exceeds allowance",
		},
	)

	got := failure.Analyze(tree)
	require.NotNil(t, got)
	assert.Equal(t, analysis.CallID(1), got.RootCallID)
	assert.Equal(t, "ERC20: transfer amount exceeds allowance", got.Reason)
	assert.Equal(t, "FiatTokenV2.transferFrom tried to spend tokens on behalf of a user but the ERC20 allowance was too low. An approve() call is needed first.", got.Explanation)
}

func TestAnalyze_InsufficientBalance(t *testing.T) {
	tree := chain(
		&analysis.CallNode{ContractName: "Router"},
		&analysis.CallNode{
			Callee:           "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
			FunctionSelector: "0xa9059cbb",
			RevertReason:     "ERC20: transfer amount exceeds balance",
		},
	)

	got := failure.Analyze(tree)
	require.NotNil(t, got)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48 rejected the call to 0xa9059cbb because an account lacked sufficient token or ETH balance.", got.Explanation)
}

func TestAnalyze_PicksLastFailingNodeInPreOrder(t *testing.T) {
	first := &analysis.CallNode{ID: 1, Depth: 1, RevertReason: "first", Children: []*analysis.CallNode{}}
	succeeded := &analysis.CallNode{ID: 2, Depth: 1, Success: true, RevertReason: "ignored", Children: []*analysis.CallNode{}}
	last := &analysis.CallNode{ID: 3, Depth: 1, RevertReason: "last", Children: []*analysis.CallNode{}}
	noReason := &analysis.CallNode{ID: 4, Depth: 1, Children: []*analysis.CallNode{}}
	root := &analysis.CallNode{ID: 0, Children: []*analysis.CallNode{first, succeeded, last, noReason}}

	got := failure.Analyze(analysis.NewCallTree([]*analysis.CallNode{root, first, succeeded, last, noReason}))
	require.NotNil(t, got)
	assert.Equal(t, analysis.CallID(3), got.RootCallID)
	assert.Equal(t, "last", got.Reason)
}

func TestAnalyze_NoDecodableReason(t *testing.T) {
	got := failure.Analyze(chain(&analysis.CallNode{}, &analysis.CallNode{}))
	require.NotNil(t, got)
	assert.Equal(t, analysis.CallID(0), got.RootCallID)
	assert.Equal(t, failure.UnknownRevert, got.Reason)
	assert.Equal(t, "The transaction reverted without a decodable reason string.", got.Explanation)
}

func TestAnalyze_EmptyTree(t *testing.T) {
	assert.Nil(t, failure.Analyze(nil))
	assert.Nil(t, failure.Analyze(analysis.NewCallTree(nil)))
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		reason string
		want   failure.Category
	}{
		{"ERC20: transfer amount exceeds balance", failure.CategoryInsufficientBalance},
		{"ERC20: transfer amount exceeds allowance", failure.CategoryAllowance},
		{"UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT", failure.CategoryInsufficientBalance},
		{"Too little received", failure.CategorySlippage},
		{"UniswapV2Router: EXPIRED", failure.CategoryDeadline},
		{"Ownable: caller is not the owner", failure.CategoryAccessControl},
		{"SafeMath: subtraction overflow", failure.CategoryArithmetic},
		{"out of gas", failure.CategoryOutOfGas},
		{"ReentrancyGuard: reentrant call", failure.CategoryReentrancy},
		{"Pausable: paused", failure.CategoryPaused},
		{"UniswapV2: K", failure.CategoryReverted},
		{"Not enough reserves", failure.CategoryInsufficientLiquidity},
		{"health factor is lesser than the liquidation threshold", failure.CategoryCollateral},
		{"stale oracle answer", failure.CategoryOracle},
		{"TransferHelper: TRANSFER_FAILED", failure.CategoryTransfer},
		{"execution reverted", failure.CategoryGeneric},
		{"  ", failure.CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.want, failure.Categorize(tt.reason))
		})
	}
}

func TestExplain_DefaultQuotesReason(t *testing.T) {
	node := &analysis.CallNode{ContractName: "Pair", FunctionName: "swap"}

	assert.Equal(t, `Pair.swap reverted with: "UniswapV2: K"`, failure.Explain("  UniswapV2: K ", node))
	assert.Equal(t, "0xabc.unknown function reverted without a reason string. This is often a low-level assembly revert, an out-of-gas condition, or a custom error that was not decoded.",
		failure.Explain("", &analysis.CallNode{Callee: "0xabc"}))
}
