package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/agent"
	"github.com/4rdii/transaction-debugger-agent/pkg/cache"
	"github.com/4rdii/transaction-debugger-agent/pkg/ethereum"
	"github.com/4rdii/transaction-debugger-agent/pkg/explorer"
	"github.com/4rdii/transaction-debugger-agent/pkg/foundry"
	"github.com/4rdii/transaction-debugger-agent/pkg/llm"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// APIAddr is the address to listen on for the API server.
	APIAddr string `yaml:"apiAddr" default:":3001"`
	// LoggingLevel is the logging level to use.
	LoggingLevel string `yaml:"logging" default:"info"`
	// Chain is the RPC provider configuration.
	Chain ethereum.Config `yaml:"chain"`
	// Simulation is the simulation service configuration.
	Simulation simulation.Config `yaml:"simulation"`
	// Explorer is the contract explorer configuration.
	Explorer explorer.Config `yaml:"explorer"`
	// Foundry is the local cast configuration.
	Foundry foundry.Config `yaml:"foundry"`
	// LLM is the reasoning engine configuration.
	LLM llm.Config `yaml:"llm"`
	// Agent is the reasoning loop configuration.
	Agent agent.Config `yaml:"agent"`
	// Cache is the result cache configuration.
	Cache cache.Config `yaml:"cache"`
	// Stats is the periodic stats job configuration.
	Stats StatsConfig `yaml:"stats"`
	// ShutdownTimeout is the timeout for shutting down the server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

func (c *Config) Validate() error {
	if c.APIAddr == "" {
		return errors.New("apiAddr is required")
	}

	validators := []struct {
		name     string
		validate func() error
	}{
		{"chain", c.Chain.Validate},
		{"simulation", c.Simulation.Validate},
		{"explorer", c.Explorer.Validate},
		{"foundry", c.Foundry.Validate},
		{"llm", c.LLM.Validate},
		{"agent", c.Agent.Validate},
		{"cache", c.Cache.Validate},
		{"stats", c.Stats.Validate},
	}

	for _, v := range validators {
		if err := v.validate(); err != nil {
			return fmt.Errorf("invalid %s configuration: %w", v.name, err)
		}
	}

	return nil
}

// LoadConfig reads a YAML config file after loading .env, expanding
// ${VAR} references from the environment and applying defaults.
func LoadConfig(file string) (*Config, error) {
	if file == "" {
		file = "config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	type plain Config

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(yamlFile))), (*plain)(config)); err != nil {
		return nil, err
	}

	return config, nil
}
