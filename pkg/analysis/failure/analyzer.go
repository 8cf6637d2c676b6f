// Package failure locates the presumed root cause of a reverted transaction
// and explains it in plain language.
package failure

import (
	"fmt"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
)

// Category is the class a revert reason falls into.
type Category string

const (
	CategoryInsufficientBalance   Category = "Insufficient balance"
	CategorySlippage              Category = "Slippage exceeded"
	CategoryDeadline              Category = "Transaction deadline expired"
	CategoryAllowance             Category = "Insufficient token allowance"
	CategoryAccessControl         Category = "Access control violation"
	CategoryArithmetic            Category = "Arithmetic error"
	CategoryOutOfGas              Category = "Out of gas"
	CategoryReentrancy            Category = "Reentrancy guard triggered"
	CategoryPaused                Category = "Contract is paused"
	CategoryInsufficientLiquidity Category = "Insufficient liquidity"
	CategoryCollateral            Category = "Health factor / collateral violation"
	CategoryOracle                Category = "Price oracle issue"
	CategoryTransfer              Category = "Token transfer failed"
	CategoryGeneric               Category = "Generic revert (no message)"
	CategoryReverted              Category = "Contract reverted"
)

const (
	UnknownRevert = "Unknown revert"

	undecodableExplanation = "The transaction reverted without a decodable reason string."
)

type categoryRule struct {
	category Category
	needles  []string
}

// Order matters: the first matching rule wins.
var rules = []categoryRule{
	{CategoryInsufficientBalance, []string{"insufficient", "balance"}},
	{CategorySlippage, []string{"slippage", "too little received", "min amount"}},
	{CategoryDeadline, []string{"expired", "deadline"}},
	{CategoryAllowance, []string{"allowance", "approve", "exceeds"}},
	{CategoryAccessControl, []string{"access", "owner", "unauthorized", "forbidden", "not allowed"}},
	{CategoryArithmetic, []string{"overflow", "underflow", "arithmetic"}},
	{CategoryOutOfGas, []string{"out of gas", "gas"}},
	{CategoryReentrancy, []string{"reentrant", "reentrancy"}},
	{CategoryPaused, []string{"paused"}},
	{CategoryInsufficientLiquidity, []string{"liquidity", "reserves"}},
	{CategoryCollateral, []string{"health", "collateral"}},
	{CategoryOracle, []string{"price", "oracle"}},
	{CategoryTransfer, []string{"transfer"}},
}

// Categorize classifies a revert reason by case-insensitive substring match.
func Categorize(reason string) Category {
	r := strings.ToLower(strings.TrimSpace(reason))

	for _, rule := range rules {
		for _, needle := range rule.needles {
			if strings.Contains(r, needle) {
				return rule.category
			}
		}
	}

	if r == "" || r == "execution reverted" {
		return CategoryGeneric
	}

	return CategoryReverted
}

// RootCause returns the last node in pre-order that failed with a non-empty
// revert reason. This approximates the innermost failing call and depends on
// the order the trace lists its frames in.
func RootCause(tree *analysis.CallTree) (*analysis.CallNode, bool) {
	if tree == nil {
		return nil, false
	}

	var cause *analysis.CallNode

	for _, node := range tree.Nodes() {
		if !node.Success && node.RevertReason != "" {
			cause = node
		}
	}

	return cause, cause != nil
}

// Analyze returns nil when the root call succeeded.
func Analyze(tree *analysis.CallTree) *analysis.FailureReason {
	if tree == nil || tree.Root() == nil {
		return nil
	}

	root := tree.Root()
	if root.Success {
		return nil
	}

	cause, ok := RootCause(tree)
	if !ok {
		reason := root.RevertReason
		if reason == "" {
			reason = UnknownRevert
		}

		return &analysis.FailureReason{
			RootCallID:  root.ID,
			Reason:      reason,
			Explanation: undecodableExplanation,
		}
	}

	return &analysis.FailureReason{
		RootCallID:  cause.ID,
		Reason:      cause.RevertReason,
		Explanation: Explain(cause.RevertReason, cause),
	}
}

// Explain renders the plain-language explanation for a revert at node.
func Explain(reason string, node *analysis.CallNode) string {
	contract := node.ContractName
	if contract == "" {
		contract = node.Callee
	}

	fn := functionLabel(node)

	switch Categorize(reason) {
	case CategoryInsufficientBalance:
		return fmt.Sprintf("%s rejected the call to %s because an account lacked sufficient token or ETH balance.", contract, fn)
	case CategorySlippage:
		return fmt.Sprintf("The swap in %s failed because the received amount fell below the minimum threshold. The price moved unfavorably between submission and execution.", contract)
	case CategoryDeadline:
		return fmt.Sprintf("%s rejected the transaction because the deadline timestamp had already passed. Resubmit with a fresh deadline.", contract)
	case CategoryAllowance:
		return fmt.Sprintf("%s.%s tried to spend tokens on behalf of a user but the ERC20 allowance was too low. An approve() call is needed first.", contract, fn)
	case CategoryAccessControl:
		return fmt.Sprintf("The caller does not have the required role or ownership to call %s on %s.", fn, contract)
	case CategoryArithmetic:
		return fmt.Sprintf("%s.%s hit an arithmetic overflow or underflow. An input amount is likely larger or smaller than the contract can handle.", contract, fn)
	case CategoryOutOfGas:
		return fmt.Sprintf("The call to %s.%s ran out of gas. Increase the gas limit for this transaction.", contract, fn)
	case CategoryReentrancy:
		return fmt.Sprintf("%s rejected a reentrant call to %s. A nonReentrant modifier blocked re-entry into the contract.", contract, fn)
	case CategoryPaused:
		return fmt.Sprintf("%s is currently paused and not accepting calls to %s.", contract, fn)
	case CategoryInsufficientLiquidity:
		return fmt.Sprintf("%s could not fulfill the operation because the pool or market does not have enough liquidity.", contract)
	case CategoryCollateral:
		return fmt.Sprintf("The operation was blocked by %s because it would leave the position undercollateralized (health factor would drop below 1).", contract)
	case CategoryOracle:
		return fmt.Sprintf("%s rejected the call due to a stale or invalid price feed response.", contract)
	case CategoryTransfer:
		return fmt.Sprintf("A token transfer inside %s.%s failed. The recipient may have a transfer hook that reverted, or the token balance was insufficient.", contract, fn)
	case CategoryGeneric:
		return fmt.Sprintf("%s.%s reverted without a reason string. This is often a low-level assembly revert, an out-of-gas condition, or a custom error that was not decoded.", contract, fn)
	default:
		return fmt.Sprintf("%s.%s reverted with: \"%s\"", contract, fn, strings.TrimSpace(reason))
	}
}

func functionLabel(node *analysis.CallNode) string {
	if node.FunctionName != "" {
		name, _, _ := strings.Cut(node.FunctionName, "(")

		return name
	}

	if node.FunctionSelector != "" {
		return node.FunctionSelector
	}

	return "unknown function"
}
