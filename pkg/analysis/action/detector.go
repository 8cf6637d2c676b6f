// Package action classifies call-tree nodes and token flows into high-level
// DeFi actions.
package action

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/registry"
)

const transferProtocol = "ERC20"

var (
	ammHints     = []string{"router", "swap", "pool", "pair"}
	lendingHints = []string{"lending", "aave", "compound", "pool"}
)

// rule inspects one node and reports an action when it matches.
type rule func(d *Detector, node *analysis.CallNode, flows []analysis.TokenFlow) (analysis.SemanticAction, bool)

// Detector runs an ordered rule cascade over every call node. A node yields at
// most one action: the first rule that matches wins.
type Detector struct {
	registry *registry.Registry
	rules    []rule
}

func NewDetector(reg *registry.Registry) *Detector {
	return &Detector{
		registry: reg,
		rules: []rule{
			detectFlashloan,
			detectSwap,
			detectApprove,
			detectMulticall,
			detectBridge,
			detectLiquidation,
			detectLendingAction,
		},
	}
}

// Detect is pure: identical inputs always produce identical output.
func (d *Detector) Detect(tree *analysis.CallTree, flows []analysis.TokenFlow) []analysis.SemanticAction {
	actions := []analysis.SemanticAction{}
	seen := map[string]struct{}{}

	for _, node := range tree.Nodes() {
		key := dedupKey(node)
		if _, dup := seen[key]; dup {
			continue
		}

		for _, r := range d.rules {
			if action, ok := r(d, node, flows); ok {
				actions = append(actions, action)
				seen[key] = struct{}{}

				break
			}
		}
	}

	if len(actions) == 0 {
		if transfer, ok := synthesizeTransfer(tree, flows); ok {
			actions = append(actions, transfer)
		}
	}

	return actions
}

func dedupKey(node *analysis.CallNode) string {
	return node.Protocol + "|" + node.FunctionSelector + "|" + strconv.Itoa(node.Depth)
}

func detectFlashloan(d *Detector, node *analysis.CallNode, _ []analysis.TokenFlow) (analysis.SemanticAction, bool) {
	if !d.registry.IsFlashloan(node.FunctionSelector) {
		return analysis.SemanticAction{}, false
	}

	return analysis.SemanticAction{
		Type:              analysis.ActionFlashloan,
		Protocol:          node.Protocol,
		CallID:            node.ID,
		Description:       "Flashloan via " + firstNonEmpty(node.Protocol, node.ContractName, node.Callee),
		InvolvedTokens:    []string{},
		InvolvedAddresses: addresses(node.Caller, node.Callee),
	}, true
}

func detectSwap(d *Detector, node *analysis.CallNode, flows []analysis.TokenFlow) (analysis.SemanticAction, bool) {
	if node.FunctionSelector == "" {
		return analysis.SemanticAction{}, false
	}

	if d.registry.IsSwap(node.FunctionSelector) {
		return analysis.SemanticAction{
			Type:              analysis.ActionSwap,
			Protocol:          node.Protocol,
			CallID:            node.ID,
			Description:       fmt.Sprintf("%s swap via %s", firstNonEmpty(node.Protocol, "Unknown"), firstNonEmpty(node.FunctionName, node.FunctionSelector)),
			InvolvedTokens:    symbols(flows, false),
			InvolvedAddresses: addresses(node.Caller, node.Callee),
		}, true
	}

	// Flows carry no call attribution, so the transaction's transfers stand in
	// for the transfers made inside this call's subtree.
	if distinctTransferTokens(flows) < 2 || !containsAny(node.ContractName, ammHints) {
		return analysis.SemanticAction{}, false
	}

	return analysis.SemanticAction{
		Type:              analysis.ActionSwap,
		Protocol:          firstNonEmpty(node.Protocol, node.ContractName),
		CallID:            node.ID,
		Description:       "Token swap on " + firstNonEmpty(node.ContractName, node.Callee),
		InvolvedTokens:    symbols(flows, true),
		InvolvedAddresses: addresses(node.Caller, node.Callee),
	}, true
}

func detectApprove(d *Detector, node *analysis.CallNode, _ []analysis.TokenFlow) (analysis.SemanticAction, bool) {
	if !d.registry.IsApprove(node.FunctionSelector) {
		return analysis.SemanticAction{}, false
	}

	spender := node.Callee
	if p, ok := node.Input("spender"); ok {
		spender = p.Value
	} else if p, ok := node.InputOfType("address"); ok {
		spender = p.Value
	}

	amount := "unknown"
	if p, ok := node.Input("amount", "value"); ok {
		amount = p.Value
	}

	return analysis.SemanticAction{
		Type:              analysis.ActionApprove,
		Protocol:          transferProtocol,
		CallID:            node.ID,
		Description:       fmt.Sprintf("Token approval to %s for amount %s", spender, amount),
		InvolvedTokens:    []string{},
		InvolvedAddresses: addresses(node.Caller, node.Callee, strings.ToLower(spender)),
	}, true
}

func detectMulticall(d *Detector, node *analysis.CallNode, _ []analysis.TokenFlow) (analysis.SemanticAction, bool) {
	if !d.registry.IsMulticall(node.FunctionSelector) {
		return analysis.SemanticAction{}, false
	}

	return analysis.SemanticAction{
		Type:              analysis.ActionMulticall,
		Protocol:          node.Protocol,
		CallID:            node.ID,
		Description:       fmt.Sprintf("Multicall with %d sub-calls", len(node.Children)),
		InvolvedTokens:    []string{},
		InvolvedAddresses: addresses(node.Caller, node.Callee),
	}, true
}

func detectBridge(d *Detector, node *analysis.CallNode, _ []analysis.TokenFlow) (analysis.SemanticAction, bool) {
	bridgeName, known := d.registry.Bridge(node.Callee)

	named := containsAny(node.ContractName, []string{"bridge"}) &&
		containsAny(node.FunctionName, []string{"bridge", "deposit"})

	if !known && !named {
		return analysis.SemanticAction{}, false
	}

	return analysis.SemanticAction{
		Type:              analysis.ActionBridge,
		Protocol:          firstNonEmpty(node.ContractName, bridgeName),
		CallID:            node.ID,
		Description:       "Cross-chain bridge operation via " + firstNonEmpty(node.ContractName, node.Callee),
		InvolvedTokens:    []string{},
		InvolvedAddresses: addresses(node.Caller, node.Callee),
	}, true
}

func detectLiquidation(d *Detector, node *analysis.CallNode, _ []analysis.TokenFlow) (analysis.SemanticAction, bool) {
	if !containsAny(node.FunctionName, []string{"liquidat"}) && !d.registry.IsLiquidation(node.FunctionSelector) {
		return analysis.SemanticAction{}, false
	}

	return analysis.SemanticAction{
		Type:              analysis.ActionLiquidation,
		Protocol:          firstNonEmpty(node.Protocol, node.ContractName),
		CallID:            node.ID,
		Description:       "Liquidation on " + firstNonEmpty(node.ContractName, node.Callee),
		InvolvedTokens:    []string{},
		InvolvedAddresses: addresses(node.Caller, node.Callee),
	}, true
}

func detectLendingAction(_ *Detector, node *analysis.CallNode, flows []analysis.TokenFlow) (analysis.SemanticAction, bool) {
	if !containsAny(node.ContractName, lendingHints) {
		return analysis.SemanticAction{}, false
	}

	var (
		actionType  analysis.ActionType
		description string
		target      = firstNonEmpty(node.ContractName, node.Callee)
	)

	switch {
	case containsAny(node.FunctionName, []string{"deposit", "supply"}):
		actionType, description = analysis.ActionDeposit, "Deposit/supply to "+target
	case containsAny(node.FunctionName, []string{"withdraw", "redeem"}):
		actionType, description = analysis.ActionWithdraw, "Withdrawal from "+target
	default:
		return analysis.SemanticAction{}, false
	}

	return analysis.SemanticAction{
		Type:              actionType,
		Protocol:          firstNonEmpty(node.Protocol, node.ContractName),
		CallID:            node.ID,
		Description:       description,
		InvolvedTokens:    symbols(flows, false),
		InvolvedAddresses: addresses(node.Caller, node.Callee),
	}, true
}

// synthesizeTransfer summarises all Transfer flows as one action on the root,
// so every transaction that moved tokens yields at least one action.
func synthesizeTransfer(tree *analysis.CallTree, flows []analysis.TokenFlow) (analysis.SemanticAction, bool) {
	root := tree.Root()
	if root == nil {
		return analysis.SemanticAction{}, false
	}

	var (
		names []string
		addrs []string
	)

	for _, f := range flows {
		if f.Type != analysis.FlowTransfer {
			continue
		}

		names = append(names, f.TokenSymbol)
		addrs = append(addrs, f.From, f.To)
	}

	if len(names) == 0 {
		return analysis.SemanticAction{}, false
	}

	return analysis.SemanticAction{
		Type:              analysis.ActionTransfer,
		Protocol:          transferProtocol,
		CallID:            root.ID,
		Description:       "Token transfer of " + strings.Join(names, ", "),
		InvolvedTokens:    unique(names),
		InvolvedAddresses: unique(addrs),
	}, true
}

func distinctTransferTokens(flows []analysis.TokenFlow) int {
	tokens := map[string]struct{}{}

	for _, f := range flows {
		if f.Type == analysis.FlowTransfer {
			tokens[f.TokenAddress] = struct{}{}
		}
	}

	return len(tokens)
}

func symbols(flows []analysis.TokenFlow, transfersOnly bool) []string {
	out := make([]string, 0, len(flows))

	for _, f := range flows {
		if transfersOnly && f.Type != analysis.FlowTransfer {
			continue
		}

		out = append(out, f.TokenSymbol)
	}

	return unique(out)
}

func addresses(addrs ...string) []string {
	return unique(addrs)
}

// unique keeps the first occurrence of each non-empty value.
func unique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))

	for _, v := range values {
		if v == "" {
			continue
		}

		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}

	lower := strings.ToLower(s)

	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}

	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
