package action_test

import (
	"testing"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/action"
	"github.com/4rdii/transaction-debugger-agent/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	user    = "0x1111111111111111111111111111111111111111"
	router  = "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"
	weth    = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdc    = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	spender = "0x2222222222222222222222222222222222222222"
)

// tree links nodes as children of the first one and stamps pre-order ids.
func tree(root *analysis.CallNode, children ...*analysis.CallNode) *analysis.CallTree {
	root.Children = children
	nodes := append([]*analysis.CallNode{root}, children...)

	for i, n := range nodes {
		n.ID = analysis.CallID(i)
		if i > 0 {
			n.Depth = 1
		}
	}

	return analysis.NewCallTree(nodes)
}

func transfer(token, symbol string) analysis.TokenFlow {
	return analysis.TokenFlow{
		Type:         analysis.FlowTransfer,
		From:         user,
		To:           router,
		TokenAddress: token,
		TokenSymbol:  symbol,
		RawAmount:    "1",
	}
}

func swapFlows() []analysis.TokenFlow {
	return []analysis.TokenFlow{transfer(weth, "WETH"), transfer(usdc, "USDC")}
}

func TestDetect_KnownSwapSelector(t *testing.T) {
	d := action.NewDetector(registry.Default())

	tr := tree(
		&analysis.CallNode{Caller: user, Callee: "0x9999999999999999999999999999999999999999"},
		&analysis.CallNode{
			Caller:           "0x9999999999999999999999999999999999999999",
			Callee:           router,
			ContractName:     "UniswapV2Router02",
			FunctionSelector: "0x38ed1739",
			Protocol:         "Uniswap V2",
		},
	)

	actions := d.Detect(tr, swapFlows())
	require.Len(t, actions, 1)

	swap := actions[0]
	assert.Equal(t, analysis.ActionSwap, swap.Type)
	assert.Equal(t, "Uniswap V2", swap.Protocol)
	assert.Equal(t, analysis.CallID(1), swap.CallID)
	assert.Equal(t, []string{"WETH", "USDC"}, swap.InvolvedTokens)
	assert.Contains(t, swap.InvolvedAddresses, router)
}

func TestDetect_Idempotent(t *testing.T) {
	d := action.NewDetector(registry.Default())

	tr := tree(
		&analysis.CallNode{Caller: user, Callee: router},
		&analysis.CallNode{Callee: router, FunctionSelector: "0x38ed1739", Protocol: "Uniswap V2"},
	)

	assert.Equal(t, d.Detect(tr, swapFlows()), d.Detect(tr, swapFlows()))
}

func TestDetect_SynthesizesTransferOnlyWithoutOtherActions(t *testing.T) {
	d := action.NewDetector(registry.Default())

	plain := tree(&analysis.CallNode{Caller: user, Callee: usdc, FunctionSelector: "0xa9059cbb", Protocol: "ERC20"})

	actions := d.Detect(plain, []analysis.TokenFlow{transfer(usdc, "USDC")})
	require.Len(t, actions, 1)
	assert.Equal(t, analysis.ActionTransfer, actions[0].Type)
	assert.Equal(t, "ERC20", actions[0].Protocol)
	assert.Equal(t, analysis.CallID(0), actions[0].CallID)
	assert.Equal(t, []string{"USDC"}, actions[0].InvolvedTokens)
	assert.Equal(t, []string{user, router}, actions[0].InvolvedAddresses)

	assert.Empty(t, d.Detect(plain, nil))

	mintOnly := []analysis.TokenFlow{{Type: analysis.FlowMint, TokenSymbol: "USDC"}}
	assert.Empty(t, d.Detect(plain, mintOnly))

	withSwap := tree(
		&analysis.CallNode{Caller: user, Callee: router},
		&analysis.CallNode{Callee: router, FunctionSelector: "0x38ed1739", Protocol: "Uniswap V2"},
	)

	for _, a := range d.Detect(withSwap, swapFlows()) {
		assert.NotEqual(t, analysis.ActionTransfer, a.Type)
	}
}

func TestDetect_DeduplicatesSameProtocolSelectorDepth(t *testing.T) {
	d := action.NewDetector(registry.Default())

	tr := tree(
		&analysis.CallNode{Caller: user, Callee: router},
		&analysis.CallNode{Callee: usdc, FunctionSelector: "0x095ea7b3", Protocol: "ERC20"},
		&analysis.CallNode{Callee: weth, FunctionSelector: "0x095ea7b3", Protocol: "ERC20"},
	)

	actions := d.Detect(tr, nil)
	require.Len(t, actions, 1)
	assert.Equal(t, analysis.CallID(1), actions[0].CallID)
}

func TestDetect_FlashloanTakesPrecedence(t *testing.T) {
	d := action.NewDetector(registry.Default())

	tr := tree(&analysis.CallNode{
		Caller:           user,
		Callee:           router,
		ContractName:     "SwapRouter",
		FunctionSelector: "0xab9c4b5d",
		Protocol:         "Aave V2",
	})

	actions := d.Detect(tr, swapFlows())
	require.Len(t, actions, 1)
	assert.Equal(t, analysis.ActionFlashloan, actions[0].Type)
	assert.Equal(t, "Aave V2", actions[0].Protocol)
	assert.Equal(t, "Flashloan via Aave V2", actions[0].Description)
	assert.Empty(t, actions[0].InvolvedTokens)
}

func TestDetect_ApproveDecodesSpenderAndAmount(t *testing.T) {
	d := action.NewDetector(registry.Default())

	tr := tree(&analysis.CallNode{
		Caller:           user,
		Callee:           usdc,
		FunctionSelector: "0x095ea7b3",
		Protocol:         "ERC20",
		DecodedInputs: []analysis.Param{
			{Name: "spender", Type: "address", Value: "0x2222222222222222222222222222222222222222"},
			{Name: "amount", Type: "uint256", Value: "500"},
		},
	})

	actions := d.Detect(tr, nil)
	require.Len(t, actions, 1)

	approve := actions[0]
	assert.Equal(t, analysis.ActionApprove, approve.Type)
	assert.Equal(t, "ERC20", approve.Protocol)
	assert.Equal(t, "Token approval to "+spender+" for amount 500", approve.Description)
	assert.Equal(t, []string{user, usdc, spender}, approve.InvolvedAddresses)
}

func TestDetect_ApproveFallsBackToFirstAddressParam(t *testing.T) {
	d := action.NewDetector(registry.Default())

	tr := tree(&analysis.CallNode{
		Caller:           user,
		Callee:           usdc,
		FunctionSelector: "0x095ea7b3",
		DecodedInputs:    []analysis.Param{{Name: "guy", Type: "address", Value: spender}},
	})

	actions := d.Detect(tr, nil)
	require.Len(t, actions, 1)
	assert.Equal(t, "Token approval to "+spender+" for amount unknown", actions[0].Description)
}

func TestDetect_Multicall(t *testing.T) {
	d := action.NewDetector(registry.Default())

	tr := tree(
		&analysis.CallNode{Caller: user, Callee: router, FunctionSelector: "0xac9650d8", Protocol: "Uniswap V3"},
		&analysis.CallNode{Callee: router},
		&analysis.CallNode{Callee: router},
	)

	actions := d.Detect(tr, nil)
	require.Len(t, actions, 1)
	assert.Equal(t, analysis.ActionMulticall, actions[0].Type)
	assert.Equal(t, "Multicall with 2 sub-calls", actions[0].Description)
}

func TestDetect_Bridge(t *testing.T) {
	d := action.NewDetector(registry.Default())

	t.Run("known address", func(t *testing.T) {
		const base = "0x3154cf16ccdb4c6d922629664174b904d80f2c35"

		actions := d.Detect(tree(&analysis.CallNode{Caller: user, Callee: base}), nil)
		require.Len(t, actions, 1)
		assert.Equal(t, analysis.ActionBridge, actions[0].Type)
		assert.Equal(t, "Base Bridge", actions[0].Protocol)
		assert.Equal(t, "Cross-chain bridge operation via "+base, actions[0].Description)
	})

	t.Run("named contract", func(t *testing.T) {
		actions := d.Detect(tree(&analysis.CallNode{
			Caller:       user,
			Callee:       router,
			ContractName: "L1StandardBridge",
			FunctionName: "depositETH",
		}), nil)
		require.Len(t, actions, 1)
		assert.Equal(t, analysis.ActionBridge, actions[0].Type)
		assert.Equal(t, "L1StandardBridge", actions[0].Protocol)
		assert.Equal(t, "Cross-chain bridge operation via L1StandardBridge", actions[0].Description)
	})
}

func TestDetect_Liquidation(t *testing.T) {
	d := action.NewDetector(registry.Default())

	actions := d.Detect(tree(&analysis.CallNode{
		Caller:           user,
		Callee:           router,
		ContractName:     "LendingPool",
		FunctionName:     "liquidationCall",
		FunctionSelector: "0xdfd5281b",
		Protocol:         "Aave V2",
	}), []analysis.TokenFlow{transfer(usdc, "USDC")})

	require.Len(t, actions, 1)
	assert.Equal(t, analysis.ActionLiquidation, actions[0].Type)
	assert.Equal(t, "Aave V2", actions[0].Protocol)
	assert.Equal(t, "Liquidation on LendingPool", actions[0].Description)
}

func TestDetect_LendingDepositAndWithdraw(t *testing.T) {
	d := action.NewDetector(registry.Default())

	tests := []struct {
		fn   string
		want analysis.ActionType
		desc string
	}{
		{"supply", analysis.ActionDeposit, "Deposit/supply to LendingPool"},
		{"deposit", analysis.ActionDeposit, "Deposit/supply to LendingPool"},
		{"withdraw", analysis.ActionWithdraw, "Withdrawal from LendingPool"},
		{"redeemUnderlying", analysis.ActionWithdraw, "Withdrawal from LendingPool"},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			actions := d.Detect(tree(&analysis.CallNode{
				Caller:       user,
				Callee:       router,
				ContractName: "LendingPool",
				FunctionName: tt.fn,
			}), []analysis.TokenFlow{transfer(usdc, "USDC")})

			require.Len(t, actions, 1)
			assert.Equal(t, tt.want, actions[0].Type)
			assert.Equal(t, "LendingPool", actions[0].Protocol)
			assert.Equal(t, tt.desc, actions[0].Description)
			assert.Equal(t, []string{"USDC"}, actions[0].InvolvedTokens)
		})
	}

	borrow := d.Detect(tree(&analysis.CallNode{
		Caller:       user,
		Callee:       router,
		ContractName: "LendingPool",
		FunctionName: "borrow",
	}), nil)
	assert.Empty(t, borrow)
}

func TestDetect_AMMHeuristic(t *testing.T) {
	d := action.NewDetector(registry.Default())

	pair := &analysis.CallNode{
		Caller:           user,
		Callee:           router,
		ContractName:     "UniswapV2Pair",
		FunctionSelector: "0x022c0d9f",
	}

	actions := d.Detect(tree(pair), swapFlows())
	require.Len(t, actions, 1)
	assert.Equal(t, analysis.ActionSwap, actions[0].Type)
	assert.Equal(t, "UniswapV2Pair", actions[0].Protocol)
	assert.Equal(t, "Token swap on UniswapV2Pair", actions[0].Description)

	// A single distinct token is not a swap.
	single := []analysis.TokenFlow{transfer(usdc, "USDC"), transfer(usdc, "USDC")}
	for _, a := range d.Detect(tree(&analysis.CallNode{
		Caller:           user,
		Callee:           router,
		ContractName:     "UniswapV2Pair",
		FunctionSelector: "0x022c0d9f",
	}), single) {
		assert.NotEqual(t, analysis.ActionSwap, a.Type)
	}

	// Nodes without a selector never match the heuristic.
	noSelector := d.Detect(tree(&analysis.CallNode{Caller: user, Callee: router, ContractName: "UniswapV2Pair"}), swapFlows())
	for _, a := range noSelector {
		assert.NotEqual(t, analysis.ActionSwap, a.Type)
	}
}
