// Package tokenflow turns simulation asset changes and balance diffs into a
// flat list of token movements.
package tokenflow

import (
	"math/big"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
	"github.com/shopspring/decimal"
)

const (
	ZeroAddress   = "0x0000000000000000000000000000000000000000"
	NativeAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

	nativeSymbol   = "ETH"
	nativeName     = "Ether"
	nativeDecimals = 18

	changeMint = "Mint"
	changeBurn = "Burn"
)

// Extract converts asset changes directly and reconstructs native transfers
// from balance diffs. Callers must not rely on the order of the result.
func Extract(changes []simulation.AssetChange, diffs []simulation.BalanceDiff) []analysis.TokenFlow {
	flows := make([]analysis.TokenFlow, 0, len(changes)+len(diffs))

	for _, change := range changes {
		flows = append(flows, fromAssetChange(change))
	}

	return append(flows, nativeTransfers(diffs)...)
}

func fromAssetChange(change simulation.AssetChange) analysis.TokenFlow {
	from := strings.ToLower(change.From)
	to := strings.ToLower(change.To)

	flowType := analysis.FlowTransfer

	switch {
	case change.Type == changeMint || isZero(from):
		flowType = analysis.FlowMint
	case change.Type == changeBurn || isZero(to):
		flowType = analysis.FlowBurn
	}

	return analysis.TokenFlow{
		Type:            flowType,
		From:            from,
		To:              to,
		TokenAddress:    strings.ToLower(change.TokenInfo.ContractAddress),
		TokenSymbol:     change.TokenInfo.Symbol,
		TokenName:       change.TokenInfo.Name,
		Decimals:        change.TokenInfo.Decimals,
		RawAmount:       change.RawAmount,
		FormattedAmount: change.Amount,
		DollarValue:     change.DollarValue,
	}
}

type delta struct {
	address string
	amount  *big.Int
}

// nativeTransfers pairs every net loser with the first net gainer. This is a
// best-effort reconstruction and can misattribute multi-party flows.
func nativeTransfers(diffs []simulation.BalanceDiff) []analysis.TokenFlow {
	order := []string{}
	net := map[string]*big.Int{}

	for _, diff := range diffs {
		if diff.IsMiner {
			continue
		}

		addr := strings.ToLower(diff.Address)

		change := new(big.Int).Sub(ParseInt(diff.Dirty), ParseInt(diff.Original))

		if existing, ok := net[addr]; ok {
			existing.Add(existing, change)

			continue
		}

		net[addr] = change
		order = append(order, addr)
	}

	var gainers, losers []delta

	for _, addr := range order {
		switch amount := net[addr]; amount.Sign() {
		case 1:
			gainers = append(gainers, delta{addr, amount})
		case -1:
			losers = append(losers, delta{addr, new(big.Int).Neg(amount)})
		}
	}

	if len(gainers) == 0 {
		return nil
	}

	flows := make([]analysis.TokenFlow, 0, len(losers))

	for _, loser := range losers {
		flows = append(flows, analysis.TokenFlow{
			Type:            analysis.FlowNativeTransfer,
			From:            loser.address,
			To:              gainers[0].address,
			TokenAddress:    NativeAddress,
			TokenSymbol:     nativeSymbol,
			TokenName:       nativeName,
			Decimals:        nativeDecimals,
			RawAmount:       loser.amount.String(),
			FormattedAmount: FormatUnits(loser.amount, nativeDecimals),
		})
	}

	return flows
}

// ParseInt parses a decimal or 0x-prefixed integer. Empty or malformed input
// yields zero.
func ParseInt(s string) *big.Int {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int)
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}

	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return new(big.Int)
	}

	return v
}

// FormatUnits renders an integer amount scaled down by decimals.
func FormatUnits(amount *big.Int, decimals int) string {
	return decimal.NewFromBigInt(amount, int32(-decimals)).String()
}

func isZero(addr string) bool {
	return addr == "" || addr == ZeroAddress
}
