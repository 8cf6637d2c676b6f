// Package risk flags security-relevant patterns in an analysed transaction.
package risk

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/0xsequence/ethkit/go-ethereum/common/math"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/tokenflow"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/4rdii/transaction-debugger-agent/pkg/registry"
	"github.com/shopspring/decimal"
)

// Flag types.
const (
	UnlimitedApproval     = "UNLIMITED_APPROVAL"
	FlashloanUsage        = "FLASHLOAN_USAGE"
	LargeETHTransfer      = "LARGE_ETH_TRANSFER"
	LargeTokenTransfer    = "LARGE_TOKEN_TRANSFER"
	DelegatecallToUnknown = "DELEGATECALL_TO_UNKNOWN"
	UnverifiedContract    = "UNVERIFIED_CONTRACT"
)

const maxUint256Literal = "MaxUint256"

var (
	// LargeETHThreshold is 10 ETH in wei.
	LargeETHThreshold = new(big.Int).Mul(big.NewInt(10), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	// LargeUSDThreshold is the dollar value at which a flow counts as large.
	LargeUSDThreshold = decimal.NewFromInt(50_000)

	nonNumeric = regexp.MustCompile(`[^0-9.]`)
)

// Detect runs every check and concatenates the results. Flags are not
// deduplicated across checks.
func Detect(tree *analysis.CallTree, flows []analysis.TokenFlow, actions []analysis.SemanticAction) []analysis.RiskFlag {
	flags := []analysis.RiskFlag{}

	if tree == nil {
		return append(flags, largeTransfers(flows)...)
	}

	nodes := tree.Nodes()

	flags = append(flags, unlimitedApprovals(nodes)...)
	flags = append(flags, flashloans(actions)...)
	flags = append(flags, largeTransfers(flows)...)
	flags = append(flags, unknownDelegatecalls(nodes)...)

	return append(flags, unverifiedRoot(tree.Root())...)
}

func unlimitedApprovals(nodes []*analysis.CallNode) []analysis.RiskFlag {
	var flags []analysis.RiskFlag

	for _, node := range nodes {
		if node.FunctionSelector != registry.SelectorApprove {
			continue
		}

		amount, ok := node.Input("amount", "value", "_value")
		if !ok || !isMaxUint256(amount.Value) {
			continue
		}

		flags = append(flags, analysis.RiskFlag{
			Level:       analysis.RiskMedium,
			Type:        UnlimitedApproval,
			Description: fmt.Sprintf("Unlimited ERC20 approval granted to %s. This allows the spender to move all tokens at any time.", node.Callee),
			CallID:      callID(node.ID),
		})
	}

	return flags
}

func isMaxUint256(value string) bool {
	if value == maxUint256Literal {
		return true
	}

	return tokenflow.ParseInt(value).Cmp(math.MaxBig256) == 0
}

func flashloans(actions []analysis.SemanticAction) []analysis.RiskFlag {
	var flags []analysis.RiskFlag

	for _, a := range actions {
		if a.Type != analysis.ActionFlashloan {
			continue
		}

		protocol := a.Protocol
		if protocol == "" {
			protocol = "unknown protocol"
		}

		flags = append(flags, analysis.RiskFlag{
			Level:       analysis.RiskMedium,
			Type:        FlashloanUsage,
			Description: fmt.Sprintf("Flashloan detected via %s. Flashloans can be used for legitimate arbitrage but are also used in attack vectors.", protocol),
			CallID:      callID(a.CallID),
		})
	}

	return flags
}

func largeTransfers(flows []analysis.TokenFlow) []analysis.RiskFlag {
	var flags []analysis.RiskFlag

	for _, flow := range flows {
		if flow.Type == analysis.FlowNativeTransfer && tokenflow.ParseInt(flow.RawAmount).Cmp(LargeETHThreshold) >= 0 {
			flags = append(flags, analysis.RiskFlag{
				Level:       analysis.RiskMedium,
				Type:        LargeETHTransfer,
				Description: fmt.Sprintf("Large ETH transfer of %s ETH from %s to %s.", flow.FormattedAmount, flow.From, flow.To),
			})
		}

		if flow.DollarValue == "" {
			continue
		}

		usd, err := decimal.NewFromString(nonNumeric.ReplaceAllString(flow.DollarValue, ""))
		if err != nil || usd.LessThan(LargeUSDThreshold) {
			continue
		}

		flags = append(flags, analysis.RiskFlag{
			Level:       analysis.RiskMedium,
			Type:        LargeTokenTransfer,
			Description: fmt.Sprintf("Large token transfer of %s %s (~$%s).", flow.FormattedAmount, flow.TokenSymbol, common.FormatNumber(usd.InexactFloat64())),
		})
	}

	return flags
}

func unknownDelegatecalls(nodes []*analysis.CallNode) []analysis.RiskFlag {
	var flags []analysis.RiskFlag

	for _, node := range nodes {
		if node.CallType != analysis.CallTypeDelegateCall || node.ContractName != "" {
			continue
		}

		flags = append(flags, analysis.RiskFlag{
			Level:       analysis.RiskHigh,
			Type:        DelegatecallToUnknown,
			Description: fmt.Sprintf("DELEGATECALL to unverified/unlabeled contract %s. This allows the callee to execute with the caller's storage context.", node.Callee),
			CallID:      callID(node.ID),
		})
	}

	return flags
}

func unverifiedRoot(root *analysis.CallNode) []analysis.RiskFlag {
	if root == nil || root.ContractName != "" {
		return nil
	}

	return []analysis.RiskFlag{{
		Level:       analysis.RiskLow,
		Type:        UnverifiedContract,
		Description: fmt.Sprintf("The top-level call targets contract %s which has no verified name/ABI on the simulation service. Verify this contract before trusting the transaction.", root.Callee),
	}}
}

func callID(id analysis.CallID) *analysis.CallID {
	return &id
}
