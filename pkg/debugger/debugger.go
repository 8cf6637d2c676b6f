// Package debugger runs the full explanation pipeline for one transaction and
// answers follow-up questions about a finished analysis.
package debugger

import (
	"context"
	"strings"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/cache"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/4rdii/transaction-debugger-agent/pkg/ethereum"
	"github.com/4rdii/transaction-debugger-agent/pkg/llm"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
	"github.com/sirupsen/logrus"
)

const (
	ServiceChain      = "chain"
	ServiceSimulation = "simulation"
	ServiceLLM        = "llm"

	outcomeCached = "cached"
)

type ChainProvider interface {
	FetchTxParams(ctx context.Context, txHash, networkID string) (*ethereum.TxParams, error)
}

type Simulator interface {
	Simulate(ctx context.Context, req *simulation.Request) (*simulation.Response, error)
}

type Normalizer interface {
	Normalize(raw *simulation.CallTrace) *analysis.CallTree
}

// Investigator is the reasoning loop plus the deterministic completion of
// whatever it did not compute.
type Investigator interface {
	Run(ctx context.Context, req *agent.Request, observer agent.Observer) (*agent.Outcome, error)
	Complete(ctx context.Context, req *agent.Request, state agent.State) agent.State
}

type Dependencies struct {
	Chain      ChainProvider
	Simulator  Simulator
	Normalizer Normalizer
	Agent      Investigator
	Engine     llm.Engine
	Cache      cache.Cache
}

type Service struct {
	log        logrus.FieldLogger
	chain      ChainProvider
	simulator  Simulator
	normalizer Normalizer
	agent      Investigator
	engine     llm.Engine
	cache      cache.Cache
	logDir     string

	now func() time.Time
}

// New creates a Service. Q&A exchanges are logged under logDir.
func New(log logrus.FieldLogger, logDir string, deps Dependencies) *Service {
	return &Service{
		log:        log.WithField("component", "debugger"),
		chain:      deps.Chain,
		simulator:  deps.Simulator,
		normalizer: deps.Normalizer,
		agent:      deps.Agent,
		engine:     deps.Engine,
		cache:      deps.Cache,
		logDir:     logDir,
		now:        time.Now,
	}
}

// Explain analyzes a transaction, serving a cached result when one exists.
// Progress events of a fresh analysis are delivered to observer, which may be
// nil.
func (s *Service) Explain(ctx context.Context, txHash, networkID string, observer agent.Observer) (*analysis.Result, error) {
	if err := ValidateTx(txHash, networkID); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"tx_hash":    txHash,
		"network_id": networkID,
	})

	cached, ok, err := s.cache.Get(ctx, txHash, networkID)
	if err != nil {
		log.WithError(err).Warn("Result cache lookup failed, analyzing anyway")
	}

	if ok {
		common.AnalysesTotal.WithLabelValues(networkID, outcomeCached).Inc()
		log.Debug("Serving cached analysis")

		return cached, nil
	}

	start := time.Now()

	result, err := s.analyze(ctx, log, txHash, networkID, observer)
	if err != nil {
		common.AnalysesTotal.WithLabelValues(networkID, common.StatusError).Inc()

		return nil, err
	}

	common.AnalysesTotal.WithLabelValues(networkID, common.StatusSuccess).Inc()
	common.AnalysisDuration.WithLabelValues(networkID).Observe(time.Since(start).Seconds())

	if err := s.cache.Set(ctx, result); err != nil {
		log.WithError(err).Warn("Failed to cache analysis result")
	}

	return result, nil
}

func (s *Service) analyze(ctx context.Context, log logrus.FieldLogger, txHash, networkID string, observer agent.Observer) (*analysis.Result, error) {
	log.Info("Analyzing transaction")

	tx, err := s.chain.FetchTxParams(ctx, txHash, networkID)
	if err != nil {
		return nil, &UpstreamError{Service: ServiceChain, Err: err}
	}

	log.WithField("block_number", tx.BlockNumber).Debug("Fetched transaction parameters")

	sim, err := s.simulator.Simulate(ctx, tx.SimulationRequest(networkID, true))
	if err != nil {
		return nil, &UpstreamError{Service: ServiceSimulation, Err: err}
	}

	tree := s.normalizer.Normalize(sim.Transaction.TransactionInfo.CallTrace)

	if root := tree.Root(); root != nil && root.Callee == "" {
		root.Callee = strings.ToLower(tx.Target())
	}

	log.WithField("calls", tree.Len()).Debug("Normalized call trace")

	req := &agent.Request{
		TxHash:      txHash,
		NetworkID:   networkID,
		Success:     sim.Transaction.Status,
		GasUsed:     sim.Transaction.GasUsed,
		BlockNumber: sim.Transaction.BlockNumber,
		Tree:        tree,
		Simulation:  sim,
		Tx:          tx,
	}

	outcome, err := s.agent.Run(ctx, req, observer)
	if err != nil {
		return nil, &UpstreamError{Service: ServiceLLM, Err: err}
	}

	state := s.agent.Complete(ctx, req, outcome.State)

	return &analysis.Result{
		TxHash:          txHash,
		NetworkID:       networkID,
		Success:         req.Success,
		GasUsed:         req.GasUsed,
		BlockNumber:     req.BlockNumber,
		CallTree:        tree,
		TokenFlows:      nonNil(state.TokenFlows),
		SemanticActions: nonNil(state.SemanticActions),
		RiskFlags:       nonNil(state.RiskFlags),
		FailureReason:   state.FailureReason,
		LLMExplanation:  outcome.Narrative,
		AnalyzedAt:      s.now().UTC(),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
