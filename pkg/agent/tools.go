package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ethcommon "github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/failure"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/risk"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/tokenflow"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/4rdii/transaction-debugger-agent/pkg/explorer"
	"github.com/4rdii/transaction-debugger-agent/pkg/fixsim"
	"github.com/4rdii/transaction-debugger-agent/pkg/foundry"
	"github.com/4rdii/transaction-debugger-agent/pkg/llm"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
)

const (
	ToolGetCallTree             = "get_call_tree"
	ToolExtractTokenFlows       = "extract_token_flows"
	ToolDetectSemanticActions   = "detect_semantic_actions"
	ToolAnalyzeFailure          = "analyze_failure"
	ToolDetectRisks             = "detect_risks"
	ToolGetCallSubtree          = "get_call_subtree"
	ToolGetContractABI          = "get_contract_abi"
	ToolCastCall                = "cast_call"
	ToolCastRun                 = "cast_run"
	ToolSimulateWithFix         = "simulate_with_fix"
	ToolGetRevertSourceLocation = "get_revert_source_location"
)

var errMissingTxParams = errors.New("original transaction parameters are not available")

// toolFunc interprets one tool call against a state snapshot. It must not
// mutate state; changes are returned as a Delta.
type toolFunc func(ctx context.Context, req *Request, state State, args map[string]any) (Delta, string, error)

type tool struct {
	def llm.ToolDef
	run toolFunc
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}

	if required == nil {
		required = []string{}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func property(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func (o *Orchestrator) buildTools() []tool {
	return []tool{
		{
			def: llm.ToolDef{
				Name:        ToolGetCallTree,
				Description: "Get an indented text representation of the full call tree, showing contract calls, depth, gas, success/failure status, revert reasons, and protocols. Always call this first.",
				Parameters:  objectSchema(nil),
			},
			run: o.getCallTree,
		},
		{
			def: llm.ToolDef{
				Name:        ToolExtractTokenFlows,
				Description: "Extract all token transfers from the transaction: ERC20, ERC721, ERC1155, and native ETH. Returns amounts, symbols, from/to addresses, and dollar values.",
				Parameters:  objectSchema(nil),
			},
			run: o.extractTokenFlows,
		},
		{
			def: llm.ToolDef{
				Name:        ToolDetectSemanticActions,
				Description: "Detect high-level DeFi actions: swaps, approvals, deposits, withdrawals, bridge transfers, liquidations, flashloans, multicalls.",
				Parameters:  objectSchema(nil),
			},
			run: o.detectSemanticActions,
		},
		{
			def: llm.ToolDef{
				Name:        ToolAnalyzeFailure,
				Description: "Analyze the root cause of a failed transaction. Returns the revert reason and a human-readable explanation. Only meaningful for failed transactions.",
				Parameters:  objectSchema(nil),
			},
			run: o.analyzeFailure,
		},
		{
			def: llm.ToolDef{
				Name:        ToolDetectRisks,
				Description: "Detect security risk patterns: unlimited token approvals, flashloan usage, large ETH/token transfers, DELEGATECALL to unknown contracts, unverified destinations.",
				Parameters:  objectSchema(nil),
			},
			run: o.detectRisks,
		},
		{
			def: llm.ToolDef{
				Name:        ToolGetCallSubtree,
				Description: "Get detailed info for a specific call and its sub-calls, identified by callId (e.g. \"call-3\"). Use to drill into a specific part of the call tree.",
				Parameters: objectSchema(map[string]any{
					"callId": property("string", "The id of the call node to inspect"),
				}, "callId"),
			},
			run: o.getCallSubtree,
		},
		{
			def: llm.ToolDef{
				Name:        ToolGetContractABI,
				Description: "Look up the verified ABI for a contract address from the block explorer. Use when you encounter an unrecognized contract to understand its functions.",
				Parameters: objectSchema(map[string]any{
					"address":   property("string", "Contract address (0x...)"),
					"networkId": property("number", "Network ID (1=Ethereum, 56=BSC, 137=Polygon, 10=Optimism, 42161=Arbitrum, 8453=Base, 43114=Avalanche, 59144=Linea, 324=zkSync, 81457=Blast, 534352=Scroll, 250=Fantom, 100=Gnosis, 80094=Berachain)"),
				}, "address", "networkId"),
			},
			run: o.getContractABI,
		},
		{
			def: llm.ToolDef{
				Name:        ToolCastCall,
				Description: "Execute a read-only (static) call to a contract at a specific block using Foundry cast. Useful for querying on-chain state at the exact block the transaction occurred, e.g. checking token allowances or balances at the time of failure.",
				Parameters: objectSchema(map[string]any{
					"address":           property("string", "Contract address to call"),
					"functionSignature": property("string", "Function signature e.g. \"allowance(address,address)\" or \"balanceOf(address)\""),
					"args": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Function arguments as strings",
					},
					"networkId":   property("number", "Network ID"),
					"blockNumber": property("number", "Block number at which to query"),
				}, "address", "functionSignature", "args", "networkId", "blockNumber"),
			},
			run: o.castCall,
		},
		{
			def: llm.ToolDef{
				Name:        ToolCastRun,
				Description: "Replay the transaction with Foundry cast run to get a low-level execution trace. Use only when you need opcode-level detail beyond what the call tree shows.",
				Parameters:  objectSchema(nil),
			},
			run: o.castRun,
		},
		{
			def: llm.ToolDef{
				Name:        ToolSimulateWithFix,
				Description: "Re-simulate the original transaction with a specific fix applied to determine if it would have succeeded. Use this to answer \"what would have made this work?\", e.g. more gas, sufficient ETH balance, or a pre-existing token approval.",
				Parameters: objectSchema(map[string]any{
					"fix_type": map[string]any{
						"type":        "string",
						"enum":        []string{string(fixsim.IncreaseGas), string(fixsim.SetETHBalance), string(fixsim.SetERC20Allowance)},
						"description": "increase_gas: multiply gas limit. set_eth_balance: give sender 100 ETH. set_erc20_allowance: set token allowance to MaxUint256.",
					},
					"gas_multiplier":  property("number", "For increase_gas: factor to multiply the original gas by (default 2)."),
					"eth_amount":      property("number", "For set_eth_balance: ETH amount to set (default 100)."),
					"token_address":   property("string", "For set_erc20_allowance: the ERC20 token contract address."),
					"spender_address": property("string", "For set_erc20_allowance: the address being approved to spend."),
					"mapping_slot":    property("number", "For set_erc20_allowance: storage slot of the _allowances mapping (default 1 for OpenZeppelin tokens; try 0 or 2 for non-standard tokens)."),
				}, "fix_type"),
			},
			run: o.simulateWithFix,
		},
		{
			def: llm.ToolDef{
				Name:        ToolGetRevertSourceLocation,
				Description: "Fetch verified Solidity source from the block explorer and find the file(s) that define a specific function. Pass the contract address and the exact name of the failing function (e.g. \"_payNative\", \"transfer\"). The tool downloads every source file and returns each file that contains a definition matching `function <functionName>(`. Use this to locate the exact code that reverted.",
				Parameters: objectSchema(map[string]any{
					"address":      property("string", "Full 42-character contract address (0x...) of the contract to look up."),
					"functionName": property("string", "Name of the failing function to find (e.g. \"_payNative\", \"transfer\", \"execute\"). Do NOT include parentheses or arguments, just the function name."),
				}, "address", "functionName"),
			},
			run: o.getRevertSourceLocation,
		},
	}
}

func (o *Orchestrator) getCallTree(_ context.Context, req *Request, _ State, _ map[string]any) (Delta, string, error) {
	text := RenderTree(req.Tree)
	if text == "" {
		return Delta{}, "Call tree is empty.", nil
	}

	return Delta{}, text, nil
}

func (o *Orchestrator) extractTokenFlows(_ context.Context, req *Request, _ State, _ map[string]any) (Delta, string, error) {
	var (
		changes []simulation.AssetChange
		diffs   []simulation.BalanceDiff
	)

	if req.Simulation != nil {
		info := req.Simulation.Transaction.TransactionInfo
		changes, diffs = info.AssetChanges, info.BalanceDiff
	}

	flows := tokenflow.Extract(changes, diffs)
	delta := Delta{Sets: CollectionTokenFlows, TokenFlows: flows}

	if len(flows) == 0 {
		return delta, "No token flows detected.", nil
	}

	lines := make([]string, 0, len(flows))

	for _, f := range flows {
		line := fmt.Sprintf("%s: %s %s from %s to %s", f.Type, f.FormattedAmount, f.TokenSymbol, f.From, f.To)
		if f.DollarValue != "" {
			line += fmt.Sprintf(" (~$%s)", f.DollarValue)
		}

		lines = append(lines, line)
	}

	return delta, strings.Join(lines, "\n"), nil
}

// prerequisite runs the producer of c when state lacks it and returns the
// updated state together with the delta that produced it.
func (o *Orchestrator) prerequisite(ctx context.Context, req *Request, state State, c Collection, produce toolFunc) (State, Delta, error) {
	if state.Has(c) {
		return state, Delta{}, nil
	}

	delta, _, err := produce(ctx, req, state, map[string]any{})
	if err != nil {
		return state, Delta{}, err
	}

	return state.Apply(delta), delta, nil
}

func (o *Orchestrator) detectSemanticActions(ctx context.Context, req *Request, state State, _ map[string]any) (Delta, string, error) {
	state, delta, err := o.prerequisite(ctx, req, state, CollectionTokenFlows, o.extractTokenFlows)
	if err != nil {
		return Delta{}, "", err
	}

	actions := o.detector.Detect(req.Tree, state.TokenFlows)
	delta = delta.Merge(Delta{Sets: CollectionSemanticActions, SemanticActions: actions})

	if len(actions) == 0 {
		return delta, "No high-level DeFi actions detected.", nil
	}

	lines := make([]string, 0, len(actions))

	for _, a := range actions {
		label := string(a.Type)
		if a.Protocol != "" {
			label += " via " + a.Protocol
		}

		lines = append(lines, label+": "+a.Description)
	}

	return delta, strings.Join(lines, "\n"), nil
}

func (o *Orchestrator) analyzeFailure(_ context.Context, req *Request, _ State, _ map[string]any) (Delta, string, error) {
	if req.Success {
		return Delta{Sets: CollectionFailureReason}, "Transaction succeeded, no failure to analyze.", nil
	}

	reason := failure.Analyze(req.Tree)
	delta := Delta{Sets: CollectionFailureReason, FailureReason: reason}

	if reason == nil {
		return delta, "Transaction failed but no revert reason could be decoded.", nil
	}

	return delta, fmt.Sprintf("Revert reason: \"%s\"\nExplanation: %s", reason.Reason, reason.Explanation), nil
}

func (o *Orchestrator) detectRisks(ctx context.Context, req *Request, state State, _ map[string]any) (Delta, string, error) {
	state, delta, err := o.prerequisite(ctx, req, state, CollectionSemanticActions, o.detectSemanticActions)
	if err != nil {
		return Delta{}, "", err
	}

	flags := risk.Detect(req.Tree, state.TokenFlows, state.SemanticActions)
	delta = delta.Merge(Delta{Sets: CollectionRiskFlags, RiskFlags: flags})

	if len(flags) == 0 {
		return delta, "No risk flags detected.", nil
	}

	lines := make([]string, 0, len(flags))
	for _, f := range flags {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(f.Level)), f.Type, f.Description))
	}

	return delta, strings.Join(lines, "\n"), nil
}

func (o *Orchestrator) getCallSubtree(_ context.Context, req *Request, _ State, args map[string]any) (Delta, string, error) {
	raw := stringParam(args, "callId", "")

	id, err := analysis.ParseCallID(raw)
	if err != nil {
		return Delta{}, "No call found with id: " + raw, nil
	}

	node, ok := req.Tree.Node(id)
	if !ok {
		return Delta{}, "No call found with id: " + raw, nil
	}

	return Delta{}, RenderSubtree(node), nil
}

func (o *Orchestrator) getContractABI(ctx context.Context, req *Request, _ State, args map[string]any) (Delta, string, error) {
	address := stringParam(args, "address", "")
	networkID := stringParam(args, "networkId", req.NetworkID)

	entries, err := o.explorer.ContractABI(ctx, address, networkID)

	switch {
	case errors.Is(err, explorer.ErrAPIKeyMissing):
		return Delta{}, "Explorer API key not configured. ABI lookup unavailable.", nil
	case explorer.IsUnavailable(err):
		return Delta{}, err.Error(), nil
	case err != nil:
		return Delta{}, fmt.Sprintf("Failed to fetch ABI for %s: %v", address, err), nil
	}

	return Delta{}, explorer.SummarizeABI(address, networkID, entries), nil
}

func (o *Orchestrator) castCall(ctx context.Context, req *Request, _ State, args map[string]any) (Delta, string, error) {
	out, err := o.cast.Call(ctx,
		stringParam(args, "address", ""),
		stringParam(args, "functionSignature", ""),
		stringsParam(args, "args"),
		stringParam(args, "networkId", req.NetworkID),
		uintParam(args, "blockNumber", req.BlockNumber),
	)

	return castObservation(out, err)
}

func (o *Orchestrator) castRun(ctx context.Context, req *Request, _ State, _ map[string]any) (Delta, string, error) {
	out, err := o.cast.Run(ctx, req.TxHash, req.NetworkID)

	return castObservation(out, err)
}

func castObservation(out string, err error) (Delta, string, error) {
	if errors.Is(err, foundry.ErrCastUnavailable) {
		return Delta{}, err.Error(), nil
	}

	if err != nil {
		return Delta{}, "", err
	}

	return Delta{}, out, nil
}

func (o *Orchestrator) simulateWithFix(ctx context.Context, req *Request, _ State, args map[string]any) (Delta, string, error) {
	fixType := stringParam(args, "fix_type", "")
	fix := fixsim.Fix{Type: fixsim.FixType(fixType)}

	switch fix.Type {
	case fixsim.IncreaseGas:
		fix.GasMultiplier = floatParam(args, "gas_multiplier", fixsim.DefaultGasMultiplier)
	case fixsim.SetETHBalance:
		fix.ETHAmount = floatParam(args, "eth_amount", fixsim.DefaultETHAmount)
	case fixsim.SetERC20Allowance:
		fix.TokenAddress = stringParam(args, "token_address", "")
		fix.Spender = stringParam(args, "spender_address", "")

		if fix.TokenAddress == "" || fix.Spender == "" {
			return Delta{}, "set_erc20_allowance requires token_address and spender_address.", nil
		}

		slot := int64(floatParam(args, "mapping_slot", fixsim.DefaultMappingSlot))
		fix.MappingSlot = &slot
	default:
		return Delta{}, "Unknown fix_type: " + fixType, nil
	}

	if req.Tx == nil {
		return Delta{}, "", errMissingTxParams
	}

	result, err := o.fixes.Simulate(ctx, req.Tx, req.NetworkID, fix)
	if err != nil {
		return Delta{}, "", err
	}

	return Delta{}, formatFixResult(result), nil
}

func formatFixResult(r *fixsim.Result) string {
	status := "✗ STILL FAILS"
	if r.WouldSucceed {
		status = "✓ WOULD SUCCEED"
	}

	text := fmt.Sprintf("Fix applied: %s\nResult: %s (gas used: %s)", r.FixDescription, status, common.FormatNumber(float64(r.GasUsed)))

	if !r.WouldSucceed && r.RevertReason != "" {
		text += fmt.Sprintf("\nRevert reason: \"%s\"", r.RevertReason)
	}

	return text
}

func (o *Orchestrator) getRevertSourceLocation(ctx context.Context, req *Request, _ State, args map[string]any) (Delta, string, error) {
	address := stringParam(args, "address", "")
	functionName := strings.TrimSpace(stringParam(args, "functionName", ""))

	if address == "" {
		return Delta{}, `Pass the address of the reverting contract explicitly, e.g. get_revert_source_location(address="0x...", functionName="myFunc").`, nil
	}

	if !strings.HasPrefix(address, "0x") || !ethcommon.IsHexAddress(address) {
		return Delta{}, fmt.Sprintf("\"%s\" is not a valid 42-character Ethereum address.", address), nil
	}

	if functionName == "" {
		return Delta{}, `Pass the name of the failing function as functionName, e.g. functionName="_payNative".`, nil
	}

	source, err := o.explorer.ContractSource(ctx, address, req.NetworkID)

	switch {
	case errors.Is(err, explorer.ErrAPIKeyMissing):
		return Delta{}, "Explorer API key not configured. Source lookup unavailable.", nil
	case explorer.IsUnavailable(err):
		return Delta{}, err.Error(), nil
	case err != nil:
		return Delta{}, fmt.Sprintf("Failed to fetch source for %s: %v", address, err), nil
	}

	if len(source.Files) == 0 {
		return Delta{}, fmt.Sprintf("No source files returned for %s.", address), nil
	}

	header := []string{
		fmt.Sprintf("Contract: %s (%s)", source.ContractName, address),
		"Compiler: " + source.CompilerVersion,
	}

	matching := source.FilesDefining(functionName)

	if len(matching) == 0 {
		names := make([]string, 0, len(source.Files))
		for _, f := range source.Files {
			names = append(names, f.Name)
		}

		lines := append(header,
			fmt.Sprintf("Total files: %d", len(source.Files)),
			"",
			fmt.Sprintf("No file found containing a definition for function \"%s\".", functionName),
			"",
			"All files in the compilation unit:",
			"  "+strings.Join(names, "\n  "),
		)

		return Delta{}, strings.Join(lines, "\n"), nil
	}

	lines := append(header, fmt.Sprintf("Found %d file(s) defining function \"%s\":", len(matching), functionName))

	for _, f := range matching {
		lines = append(lines, "  • "+f.Name)
	}

	for _, f := range matching {
		lines = append(lines, "", "─── "+f.Name+" ───", "```solidity", f.Content, "```")
	}

	return Delta{}, strings.Join(lines, "\n"), nil
}
