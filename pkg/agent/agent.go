// Package agent drives the reasoning engine through a bounded, tool-calling
// investigation of one transaction.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/action"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/4rdii/transaction-debugger-agent/pkg/ethereum"
	"github.com/4rdii/transaction-debugger-agent/pkg/explorer"
	"github.com/4rdii/transaction-debugger-agent/pkg/fixsim"
	"github.com/4rdii/transaction-debugger-agent/pkg/llm"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// MaxTurns is the hard cap on reasoning turns per run.
	MaxTurns = 12

	// PlaceholderNarrative is used when the loop ends without a final answer.
	PlaceholderNarrative = "Analysis could not be completed."

	// StatusFailed labels runs aborted by an engine error.
	StatusFailed = "FAILED"

	unknownToolLabel = "unknown"
)

type Phase string

const (
	PhaseInit              Phase = "INIT"
	PhaseAwaitingModel     Phase = "AWAITING_MODEL"
	PhaseToolDispatch      Phase = "TOOL_DISPATCH"
	PhaseDone              Phase = "DONE"
	PhaseTurnLimitExceeded Phase = "TURN_LIMIT_EXCEEDED"
)

type Config struct {
	MaxTurns int    `yaml:"maxTurns" default:"12"`
	LogDir   string `yaml:"logDir" default:"logs"`
}

func (c *Config) Validate() error {
	if c.MaxTurns <= 0 || c.MaxTurns > MaxTurns {
		return fmt.Errorf("agent maxTurns must be between 1 and %d", MaxTurns)
	}

	if c.LogDir == "" {
		return errors.New("agent logDir is required")
	}

	return nil
}

// Explorer looks up verified contract metadata.
type Explorer interface {
	ContractABI(ctx context.Context, address, networkID string) ([]explorer.ABIEntry, error)
	ContractSource(ctx context.Context, address, networkID string) (*explorer.ContractSource, error)
}

// Cast replays transactions and performs historical read-only calls.
type Cast interface {
	Run(ctx context.Context, txHash, networkID string) (string, error)
	Call(ctx context.Context, address, signature string, args []string, networkID string, blockNumber uint64) (string, error)
}

// FixSimulator re-simulates a transaction with a fix applied.
type FixSimulator interface {
	Simulate(ctx context.Context, tx *ethereum.TxParams, networkID string, fix fixsim.Fix) (*fixsim.Result, error)
}

// Dependencies are the collaborators the tools call into.
type Dependencies struct {
	Engine   llm.Engine
	Detector *action.Detector
	Explorer Explorer
	Cast     Cast
	Fixes    FixSimulator
}

// Outcome is the result of one run.
type Outcome struct {
	RunID      uuid.UUID
	Phase      Phase
	Narrative  string
	Turns      int
	State      State
	Transcript []llm.Message
	// LogPath is empty when the run log could not be written.
	LogPath string
}

type Orchestrator struct {
	log      logrus.FieldLogger
	config   *Config
	engine   llm.Engine
	detector *action.Detector
	explorer Explorer
	cast     Cast
	fixes    FixSimulator

	tools     map[string]tool
	catalogue []llm.ToolDef

	now func() time.Time
}

func New(log logrus.FieldLogger, config *Config, deps Dependencies) *Orchestrator {
	o := &Orchestrator{
		log:      log.WithField("component", "agent"),
		config:   config,
		engine:   deps.Engine,
		detector: deps.Detector,
		explorer: deps.Explorer,
		cast:     deps.Cast,
		fixes:    deps.Fixes,
		tools:    map[string]tool{},
		now:      time.Now,
	}

	for _, t := range o.buildTools() {
		o.tools[t.def.Name] = t
		o.catalogue = append(o.catalogue, t.def)
	}

	return o
}

// Tools returns the catalogue advertised to the reasoning engine, in order.
func (o *Orchestrator) Tools() []llm.ToolDef {
	return append([]llm.ToolDef(nil), o.catalogue...)
}

// Run investigates req until the engine gives a final answer or the turn
// budget is spent. Only an engine failure is returned as an error.
func (o *Orchestrator) Run(ctx context.Context, req *Request, observer Observer) (*Outcome, error) {
	if observer == nil {
		observer = nopObserver{}
	}

	outcome := &Outcome{
		RunID:     uuid.New(),
		Phase:     PhaseInit,
		Narrative: PlaceholderNarrative,
		Transcript: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: initialMessage(req)},
		},
	}

	log := o.log.WithFields(logrus.Fields{
		"tx_hash":    req.TxHash,
		"network_id": req.NetworkID,
		"run_id":     outcome.RunID.String(),
	})

	outcome.Phase = PhaseAwaitingModel

	for outcome.Phase == PhaseAwaitingModel {
		if outcome.Turns >= o.config.MaxTurns {
			outcome.Phase = PhaseTurnLimitExceeded

			break
		}

		outcome.Turns++

		completion, err := o.engine.Complete(ctx, outcome.Transcript, o.catalogue)
		if err != nil {
			common.AgentTurns.WithLabelValues(StatusFailed).Observe(float64(outcome.Turns))

			return nil, fmt.Errorf("reasoning engine failed on turn %d: %w", outcome.Turns, err)
		}

		outcome.Transcript = append(outcome.Transcript, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})

		if len(completion.ToolCalls) == 0 {
			if completion.Content != "" {
				outcome.Narrative = completion.Content
			}

			outcome.Phase = PhaseDone
			observer.Observe(Event{Type: EventFinalAnswer, Turn: outcome.Turns})

			break
		}

		outcome.Phase = PhaseToolDispatch

		names := make([]string, 0, len(completion.ToolCalls))
		for _, call := range completion.ToolCalls {
			names = append(names, call.Name)
		}

		observer.Observe(Event{Type: EventToolCall, Turn: outcome.Turns, ToolNames: names})

		for _, call := range completion.ToolCalls {
			delta, observation := o.dispatch(ctx, log, req, outcome.State, call)
			outcome.State = outcome.State.Apply(delta)

			observer.Observe(Event{
				Type:     EventToolResult,
				Turn:     outcome.Turns,
				ToolName: call.Name,
				Summary:  summarize(observation),
			})

			outcome.Transcript = append(outcome.Transcript, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    observation,
			})
		}

		outcome.Phase = PhaseAwaitingModel
	}

	common.AgentTurns.WithLabelValues(string(outcome.Phase)).Observe(float64(outcome.Turns))

	log.WithFields(logrus.Fields{
		"phase": outcome.Phase,
		"turns": outcome.Turns,
	}).Info("Agent run finished")

	o.writeRunLog(log, req, outcome)

	return outcome, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, log logrus.FieldLogger, req *Request, state State, call llm.ToolCall) (Delta, string) {
	t, ok := o.tools[call.Name]
	if !ok {
		common.ToolCallsTotal.WithLabelValues(unknownToolLabel, common.StatusError).Inc()
		log.WithField("tool", call.Name).Warn("Reasoning engine requested an unknown tool")

		return Delta{}, "Unknown tool: " + call.Name
	}

	start := time.Now()

	delta, observation, err := o.invoke(ctx, t, req, state, call.Arguments)

	common.ToolCallDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		common.ToolCallsTotal.WithLabelValues(call.Name, common.StatusError).Inc()
		log.WithError(err).WithField("tool", call.Name).Warn("Tool execution failed")

		return Delta{}, "Tool execution error: " + err.Error()
	}

	common.ToolCallsTotal.WithLabelValues(call.Name, common.StatusSuccess).Inc()

	return delta, observation
}

func (o *Orchestrator) invoke(ctx context.Context, t tool, req *Request, state State, rawArgs string) (Delta, string, error) {
	args, err := parseArguments(rawArgs)
	if err != nil {
		return Delta{}, "", err
	}

	return t.run(ctx, req, state, args)
}

func (o *Orchestrator) writeRunLog(log logrus.FieldLogger, req *Request, outcome *Outcome) {
	entry := &runLog{
		TxHash:     req.TxHash,
		RunID:      outcome.RunID,
		Model:      o.engine.Model(),
		At:         o.now(),
		Transcript: outcome.Transcript,
	}

	path, err := entry.Write(o.config.LogDir)
	if err != nil {
		common.RunLogWriteErrors.Inc()
		log.WithError(err).Warn("Failed to write agent run log")

		return
	}

	outcome.LogPath = path
}

// Complete computes every collection the run did not produce, in dependency
// order, so the final result never lacks one.
func (o *Orchestrator) Complete(ctx context.Context, req *Request, state State) State {
	steps := []struct {
		collection Collection
		run        toolFunc
	}{
		{CollectionTokenFlows, o.extractTokenFlows},
		{CollectionSemanticActions, o.detectSemanticActions},
		{CollectionFailureReason, o.analyzeFailure},
		{CollectionRiskFlags, o.detectRisks},
	}

	for _, step := range steps {
		if state.Has(step.collection) {
			continue
		}

		delta, _, err := step.run(ctx, req, state, map[string]any{})
		if err != nil {
			o.log.WithError(err).Warn("Failed to complete analysis collection")

			continue
		}

		state = state.Apply(delta)
	}

	return state
}
