package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/action"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis/normalizer"
	"github.com/4rdii/transaction-debugger-agent/pkg/cache"
	"github.com/4rdii/transaction-debugger-agent/pkg/debugger"
	"github.com/4rdii/transaction-debugger-agent/pkg/ethereum"
	"github.com/4rdii/transaction-debugger-agent/pkg/explorer"
	"github.com/4rdii/transaction-debugger-agent/pkg/fixsim"
	"github.com/4rdii/transaction-debugger-agent/pkg/foundry"
	"github.com/4rdii/transaction-debugger-agent/pkg/llm"
	"github.com/4rdii/transaction-debugger-agent/pkg/registry"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
	"github.com/sirupsen/logrus"
)

// NewDebugger builds the debugger service and its collaborators from config.
// The returned cache is shared with the caller for stats collection.
func NewDebugger(ctx context.Context, log logrus.FieldLogger, config *Config) (*debugger.Service, cache.Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{}
	reg := registry.Default()
	norm := normalizer.New(reg)

	provider := ethereum.NewProvider(log, &config.Chain)
	simulator := simulation.NewClient(log, &config.Simulation, httpClient)

	engine, err := llm.NewOpenAI(log, &config.LLM)
	if err != nil {
		return nil, nil, err
	}

	resultCache, err := cache.New(ctx, log, &config.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	orchestrator := agent.New(log, &config.Agent, agent.Dependencies{
		Engine:   engine,
		Detector: action.NewDetector(reg),
		Explorer: explorer.NewClient(log, &config.Explorer, httpClient),
		Cast:     foundry.NewRunner(log, &config.Foundry, provider),
		Fixes:    fixsim.NewService(log, simulator, norm),
	})

	service := debugger.New(log, config.Agent.LogDir, debugger.Dependencies{
		Chain:      provider,
		Simulator:  simulator,
		Normalizer: norm,
		Agent:      orchestrator,
		Engine:     engine,
		Cache:      resultCache,
	})

	return service, resultCache, nil
}
