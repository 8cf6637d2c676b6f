// Package registry resolves 4-byte function selectors to known DeFi protocol
// operations. The registry is built once and is read-only afterwards; a single
// instance is shared by every analysis component.
package registry

import (
	"strings"
)

// Action names used by the selector table.
const (
	ActionTransfer         = "Transfer"
	ActionTransferFrom     = "TransferFrom"
	ActionApprove          = "Approve"
	ActionBalanceOf        = "BalanceOf"
	ActionSwap             = "Swap"
	ActionAddLiquidity     = "AddLiquidity"
	ActionRemoveLiquidity  = "RemoveLiquidity"
	ActionMulticall        = "Multicall"
	ActionExecute          = "Execute"
	ActionFlashloan        = "Flashloan"
	ActionDeposit          = "Deposit"
	ActionWithdraw         = "Withdraw"
	ActionBorrow           = "Borrow"
	ActionRepay            = "Repay"
	ActionLiquidation      = "Liquidation"
	ActionSupply           = "Supply"
	ActionMint             = "Mint"
	ActionRedeem           = "Redeem"
	ActionRedeemUnderlying = "RedeemUnderlying"
	ActionLiquidate        = "Liquidate"
	ActionBatchSwap        = "BatchSwap"
)

// Well-known selectors referenced directly by the detectors.
const (
	SelectorApprove         = "0x095ea7b3"
	SelectorLiquidationCall = "0xdfd5281b"
)

// Entry describes what a selector resolves to.
type Entry struct {
	Protocol          string
	Action            string
	FunctionSignature string
}

// Registry is an immutable selector lookup table.
type Registry struct {
	selectors map[string]Entry
	bridges   map[string]string

	swap      map[string]struct{}
	flashloan map[string]struct{}
	approve   map[string]struct{}
	multicall map[string]struct{}
}

// New builds a registry from the given selector and bridge tables. Keys are
// normalised to lower case. The input maps are copied.
func New(selectors map[string]Entry, bridges map[string]string) *Registry {
	r := &Registry{
		selectors: make(map[string]Entry, len(selectors)),
		bridges:   make(map[string]string, len(bridges)),
		swap:      make(map[string]struct{}),
		flashloan: make(map[string]struct{}),
		approve:   make(map[string]struct{}),
		multicall: make(map[string]struct{}),
	}

	for sel, entry := range selectors {
		key := strings.ToLower(sel)
		r.selectors[key] = entry

		switch entry.Action {
		case ActionSwap:
			r.swap[key] = struct{}{}
		case ActionFlashloan:
			r.flashloan[key] = struct{}{}
		case ActionMulticall:
			r.multicall[key] = struct{}{}
		}
	}

	r.approve[SelectorApprove] = struct{}{}

	for addr, name := range bridges {
		r.bridges[strings.ToLower(addr)] = name
	}

	return r
}

var defaultRegistry = New(knownSelectors, knownBridges)

// Default returns the process-wide registry built from the bundled tables.
func Default() *Registry {
	return defaultRegistry
}

// Lookup resolves a selector ("0x" + 8 hex chars). Case-insensitive.
func (r *Registry) Lookup(selector string) (Entry, bool) {
	entry, ok := r.selectors[strings.ToLower(selector)]

	return entry, ok
}

// Len returns the number of known selectors.
func (r *Registry) Len() int {
	return len(r.selectors)
}

func (r *Registry) IsSwap(selector string) bool {
	return has(r.swap, selector)
}

func (r *Registry) IsFlashloan(selector string) bool {
	return has(r.flashloan, selector)
}

func (r *Registry) IsApprove(selector string) bool {
	return has(r.approve, selector)
}

func (r *Registry) IsMulticall(selector string) bool {
	return has(r.multicall, selector)
}

func (r *Registry) IsLiquidation(selector string) bool {
	return strings.ToLower(selector) == SelectorLiquidationCall
}

// Bridge returns the bridge label for a known bridge contract address.
func (r *Registry) Bridge(address string) (string, bool) {
	name, ok := r.bridges[strings.ToLower(address)]

	return name, ok
}

func has(set map[string]struct{}, selector string) bool {
	if selector == "" {
		return false
	}

	_, ok := set[strings.ToLower(selector)]

	return ok
}
