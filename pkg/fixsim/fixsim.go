// Package fixsim re-simulates a transaction with a candidate fix applied and
// reports whether the fix would make it succeed.
package fixsim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/0xsequence/ethkit/go-ethereum/accounts/abi"
	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/crypto"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/failure"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/normalizer"
	format "github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/4rdii/transaction-debugger-agent/pkg/ethereum"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type FixType string

const (
	IncreaseGas       FixType = "increase_gas"
	SetETHBalance     FixType = "set_eth_balance"
	SetERC20Allowance FixType = "set_erc20_allowance"
)

const (
	DefaultGasMultiplier = 2.0
	DefaultETHAmount     = 100.0
	// DefaultMappingSlot is where OpenZeppelin's ERC20 keeps _allowances.
	DefaultMappingSlot = 1
)

var (
	ErrUnknownFixType       = errors.New("unknown fix type")
	ErrMissingAllowanceArgs = errors.New("set_erc20_allowance requires token_address and spender_address")
	ErrInvalidMappingSlot   = errors.New("mapping_slot must not be negative")

	maxStorageValue = "0x" + strings.Repeat("f", 64)
)

// Fix describes one state or gas override. Zero values select the defaults.
type Fix struct {
	Type          FixType
	GasMultiplier float64
	ETHAmount     float64
	TokenAddress  string
	Spender       string
	MappingSlot   *int64
}

type Result struct {
	WouldSucceed   bool   `json:"wouldSucceed"`
	GasUsed        uint64 `json:"gasUsed"`
	RevertReason   string `json:"revertReason,omitempty"`
	FixDescription string `json:"fixDescription"`
}

// Simulator runs one simulation request.
type Simulator interface {
	Simulate(ctx context.Context, req *simulation.Request) (*simulation.Response, error)
}

type Service struct {
	log        logrus.FieldLogger
	simulator  Simulator
	normalizer *normalizer.Normalizer
}

func NewService(log logrus.FieldLogger, simulator Simulator, norm *normalizer.Normalizer) *Service {
	return &Service{
		log:        log.WithField("component", "fix_simulator"),
		simulator:  simulator,
		normalizer: norm,
	}
}

// Simulate applies fix to tx and re-runs it without persisting the
// simulation.
func (s *Service) Simulate(ctx context.Context, tx *ethereum.TxParams, networkID string, fix Fix) (*Result, error) {
	req := tx.SimulationRequest(networkID, false)

	description, err := apply(req, tx, fix)
	if err != nil {
		return nil, err
	}

	rsp, err := s.simulator.Simulate(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		WouldSucceed:   rsp.Transaction.Status,
		GasUsed:        rsp.Transaction.GasUsed,
		FixDescription: description,
	}

	if !result.WouldSucceed {
		result.RevertReason = s.revertReason(rsp)
	}

	s.log.WithFields(logrus.Fields{
		"fix_type":      fix.Type,
		"would_succeed": result.WouldSucceed,
	}).Debug("Fix simulated")

	return result, nil
}

func (s *Service) revertReason(rsp *simulation.Response) string {
	tree := s.normalizer.Normalize(rsp.Transaction.TransactionInfo.CallTrace)

	if cause, ok := failure.RootCause(tree); ok {
		return cause.RevertReason
	}

	if info := rsp.Transaction.ErrorInfo; info != nil && info.ErrorMessage != "" {
		return info.ErrorMessage
	}

	return failure.UnknownRevert
}

func apply(req *simulation.Request, tx *ethereum.TxParams, fix Fix) (string, error) {
	switch fix.Type {
	case IncreaseGas:
		multiplier := fix.GasMultiplier
		if multiplier <= 0 {
			multiplier = DefaultGasMultiplier
		}

		req.Gas = uint64(math.Round(float64(tx.Gas) * multiplier))

		return fmt.Sprintf("Gas limit increased %sx: %s → %s",
			formatFloat(multiplier), format.FormatNumber(float64(tx.Gas)), format.FormatNumber(float64(req.Gas))), nil

	case SetETHBalance:
		amount := fix.ETHAmount
		if amount <= 0 {
			amount = DefaultETHAmount
		}

		req.StateObjects = map[string]simulation.StateOverride{
			tx.From: {Balance: BalanceOverride(amount)},
		}

		return fmt.Sprintf("Sender ETH balance set to %s ETH", formatFloat(amount)), nil

	case SetERC20Allowance:
		if fix.TokenAddress == "" || fix.Spender == "" {
			return "", ErrMissingAllowanceArgs
		}

		mappingSlot := int64(DefaultMappingSlot)
		if fix.MappingSlot != nil {
			mappingSlot = *fix.MappingSlot
		}

		slot, err := AllowanceSlot(tx.From, fix.Spender, mappingSlot)
		if err != nil {
			return "", err
		}

		req.StateObjects = map[string]simulation.StateOverride{
			fix.TokenAddress: {Storage: map[string]string{slot: maxStorageValue}},
		}

		return fmt.Sprintf("ERC20 allowance set to MaxUint256, token: %s, owner: %s..., spender: %s...",
			fix.TokenAddress, prefix(tx.From, 10), prefix(fix.Spender, 10)), nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFixType, fix.Type)
	}
}

// BalanceOverride converts an ETH amount to a hex wei balance.
func BalanceOverride(eth float64) string {
	wei := decimal.NewFromFloat(eth).Shift(18).Round(0).BigInt()

	return "0x" + wei.Text(16)
}

// AllowanceSlot computes the storage slot of allowances[owner][spender] for a
// nested mapping declared at mappingSlot.
func AllowanceSlot(owner, spender string, mappingSlot int64) (string, error) {
	if mappingSlot < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidMappingSlot, mappingSlot)
	}

	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		return "", err
	}

	uintType, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return "", err
	}

	bytes32Type, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		return "", err
	}

	inner, err := abi.Arguments{{Type: addressType}, {Type: uintType}}.Pack(common.HexToAddress(owner), big.NewInt(mappingSlot))
	if err != nil {
		return "", fmt.Errorf("failed to encode owner slot: %w", err)
	}

	innerHash := crypto.Keccak256Hash(inner)

	outer, err := abi.Arguments{{Type: addressType}, {Type: bytes32Type}}.Pack(common.HexToAddress(spender), [32]byte(innerHash))
	if err != nil {
		return "", fmt.Errorf("failed to encode spender slot: %w", err)
	}

	return crypto.Keccak256Hash(outer).Hex(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
