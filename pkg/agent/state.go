package agent

import (
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/ethereum"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
)

// Request is the immutable context of one analysis run.
type Request struct {
	TxHash      string
	NetworkID   string
	Success     bool
	GasUsed     uint64
	BlockNumber uint64
	Tree        *analysis.CallTree
	Simulation  *simulation.Response
	Tx          *ethereum.TxParams
}

// Collection names one of the result collections a tool can produce.
type Collection uint8

const (
	CollectionTokenFlows Collection = 1 << iota
	CollectionSemanticActions
	CollectionFailureReason
	CollectionRiskFlags
)

// State accumulates the collections produced during a run. It is a value:
// Apply returns a new State and never mutates the receiver's slices.
type State struct {
	TokenFlows      []analysis.TokenFlow
	SemanticActions []analysis.SemanticAction
	FailureReason   *analysis.FailureReason
	RiskFlags       []analysis.RiskFlag

	computed Collection
}

// Has reports whether c has been computed, even if it came out empty.
func (s State) Has(c Collection) bool {
	return s.computed&c == c
}

// Delta is the state change produced by one tool invocation. Only the
// collections named in Sets are applied.
type Delta struct {
	Sets            Collection
	TokenFlows      []analysis.TokenFlow
	SemanticActions []analysis.SemanticAction
	FailureReason   *analysis.FailureReason
	RiskFlags       []analysis.RiskFlag
}

func (s State) Apply(d Delta) State {
	if d.Sets&CollectionTokenFlows != 0 {
		s.TokenFlows = d.TokenFlows
	}

	if d.Sets&CollectionSemanticActions != 0 {
		s.SemanticActions = d.SemanticActions
	}

	if d.Sets&CollectionFailureReason != 0 {
		s.FailureReason = d.FailureReason
	}

	if d.Sets&CollectionRiskFlags != 0 {
		s.RiskFlags = d.RiskFlags
	}

	s.computed |= d.Sets

	return s
}

// Merge returns d with the collections set by next applied on top.
func (d Delta) Merge(next Delta) Delta {
	if next.Sets&CollectionTokenFlows != 0 {
		d.TokenFlows = next.TokenFlows
	}

	if next.Sets&CollectionSemanticActions != 0 {
		d.SemanticActions = next.SemanticActions
	}

	if next.Sets&CollectionFailureReason != 0 {
		d.FailureReason = next.FailureReason
	}

	if next.Sets&CollectionRiskFlags != 0 {
		d.RiskFlags = next.RiskFlags
	}

	d.Sets |= next.Sets

	return d
}
