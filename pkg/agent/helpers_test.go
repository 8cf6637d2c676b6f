package agent_test

import (
	"context"
	"testing"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/action"
	"github.com/4rdii/transaction-debugger-agent/pkg/ethereum"
	"github.com/4rdii/transaction-debugger-agent/pkg/explorer"
	"github.com/4rdii/transaction-debugger-agent/pkg/fixsim"
	"github.com/4rdii/transaction-debugger-agent/pkg/llm"
	"github.com/4rdii/transaction-debugger-agent/pkg/registry"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	txHash = "0xabcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789"
	alice  = "0x1111111111111111111111111111111111111111"
	bob    = "0x2222222222222222222222222222222222222222"
	router = "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"
	token  = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

type scriptedEngine struct {
	replies  []*llm.Completion
	err      error
	requests [][]llm.Message
	tools    []llm.ToolDef
}

func (e *scriptedEngine) Complete(_ context.Context, messages []llm.Message, tools []llm.ToolDef, _ ...llm.Option) (*llm.Completion, error) {
	e.requests = append(e.requests, append([]llm.Message(nil), messages...))
	e.tools = tools

	if e.err != nil {
		return nil, e.err
	}

	if len(e.requests) > len(e.replies) {
		return e.replies[len(e.replies)-1], nil
	}

	return e.replies[len(e.requests)-1], nil
}

func (e *scriptedEngine) Model() string { return "test-model" }

type fakeExplorer struct {
	abi       []explorer.ABIEntry
	abiErr    error
	source    *explorer.ContractSource
	sourceErr error
	network   string
}

func (f *fakeExplorer) ContractABI(_ context.Context, _, networkID string) ([]explorer.ABIEntry, error) {
	f.network = networkID

	return f.abi, f.abiErr
}

func (f *fakeExplorer) ContractSource(_ context.Context, _, networkID string) (*explorer.ContractSource, error) {
	f.network = networkID

	return f.source, f.sourceErr
}

type fakeCast struct {
	out     string
	err     error
	args    []string
	block   uint64
	network string
}

func (f *fakeCast) Run(_ context.Context, _, networkID string) (string, error) {
	f.network = networkID

	return f.out, f.err
}

func (f *fakeCast) Call(_ context.Context, _, _ string, args []string, networkID string, blockNumber uint64) (string, error) {
	f.args, f.network, f.block = args, networkID, blockNumber

	return f.out, f.err
}

type fakeFixes struct {
	result *fixsim.Result
	err    error
	calls  int
	last   fixsim.Fix
}

func (f *fakeFixes) Simulate(_ context.Context, _ *ethereum.TxParams, _ string, fix fixsim.Fix) (*fixsim.Result, error) {
	f.calls++
	f.last = fix

	return f.result, f.err
}

type fixture struct {
	engine   *scriptedEngine
	explorer *fakeExplorer
	cast     *fakeCast
	fixes    *fakeFixes
	logDir   string
}

func newFixture(t *testing.T, replies ...*llm.Completion) *fixture {
	t.Helper()

	return &fixture{
		engine:   &scriptedEngine{replies: replies},
		explorer: &fakeExplorer{},
		cast:     &fakeCast{},
		fixes:    &fakeFixes{},
		logDir:   t.TempDir(),
	}
}

func (f *fixture) orchestrator() *agent.Orchestrator {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return agent.New(log, &agent.Config{MaxTurns: agent.MaxTurns, LogDir: f.logDir}, agent.Dependencies{
		Engine:   f.engine,
		Detector: action.NewDetector(registry.Default()),
		Explorer: f.explorer,
		Cast:     f.cast,
		Fixes:    f.fixes,
	})
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: args}
}

func callsTools(calls ...llm.ToolCall) *llm.Completion {
	return &llm.Completion{ToolCalls: calls}
}

func final(text string) *llm.Completion {
	return &llm.Completion{Content: text}
}

// failedTree is a swap whose inner transferFrom reverted.
func failedTree() *analysis.CallTree {
	balance := &analysis.CallNode{
		ID: 1, Depth: 1, CallType: analysis.CallTypeStaticCall,
		Caller: router, Callee: token, ContractName: "USDC",
		FunctionName: "balanceOf(address)", FunctionSelector: "0x70a08231", Protocol: "ERC20",
		GasUsed: 2500, Success: true, Children: []*analysis.CallNode{},
	}
	transfer := &analysis.CallNode{
		ID: 2, Depth: 1, CallType: analysis.CallTypeCall,
		Caller: router, Callee: token, ContractName: "USDC",
		FunctionName: "transferFrom", FunctionSelector: "0x23b872dd", Protocol: "ERC20",
		GasUsed: 30000, RevertReason: "ERC20: insufficient allowance", Children: []*analysis.CallNode{},
	}
	root := &analysis.CallNode{
		ID: 0, Depth: 0, CallType: analysis.CallTypeCall,
		Caller: alice, Callee: router, ContractName: "UniswapV2Router02",
		FunctionName: "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)",
		FunctionSelector: "0x38ed1739", Protocol: "Uniswap V2",
		GasUsed: 120000, RevertReason: "TransferHelper: TRANSFER_FROM_FAILED",
		Children: []*analysis.CallNode{balance, transfer},
	}

	return analysis.NewCallTree([]*analysis.CallNode{root, balance, transfer})
}

func usdcTransfer() simulation.AssetChange {
	return simulation.AssetChange{
		TokenInfo: simulation.TokenInfo{
			Standard: "ERC20", ContractAddress: token, Symbol: "USDC", Name: "USD Coin", Decimals: 6,
		},
		Type: "Transfer", From: alice, To: bob, Amount: "1.5", RawAmount: "1500000", DollarValue: "1.50",
	}
}

func failedRequest() *agent.Request {
	return &agent.Request{
		TxHash:      txHash,
		NetworkID:   "1",
		Success:     false,
		GasUsed:     152500,
		BlockNumber: 19000000,
		Tree:        failedTree(),
		Simulation: &simulation.Response{Transaction: simulation.Transaction{
			TransactionInfo: simulation.TransactionInfo{AssetChanges: []simulation.AssetChange{usdcTransfer()}},
		}},
		Tx: &ethereum.TxParams{From: alice, To: router, Gas: 21000, BlockNumber: 19000000},
	}
}

// observe runs a single tool call through the loop and returns its
// observation text.
func observe(t *testing.T, f *fixture, req *agent.Request, name, args string) string {
	t.Helper()

	f.engine.requests = nil
	f.engine.replies = []*llm.Completion{callsTools(toolCall("call_1", name, args)), final("done")}

	outcome, err := f.orchestrator().Run(context.Background(), req, nil)
	require.NoError(t, err)
	require.Len(t, outcome.Transcript, 5)
	require.Equal(t, llm.RoleTool, outcome.Transcript[3].Role)

	return outcome.Transcript[3].Content
}
