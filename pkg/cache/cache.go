// Package cache stores completed analysis results keyed by transaction hash
// and network. Entries are written once per analysis and never updated.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/redis"
	"github.com/sirupsen/logrus"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	resultHit  = "hit"
	resultMiss = "miss"
)

// Cache is safe for concurrent use.
type Cache interface {
	// Get reports a miss with ok=false and a nil error.
	Get(ctx context.Context, txHash, networkID string) (result *analysis.Result, ok bool, err error)
	Set(ctx context.Context, result *analysis.Result) error
	Len(ctx context.Context) (int, error)
	Backend() string
}

type Config struct {
	Backend string       `yaml:"backend" default:"memory"`
	Redis   redis.Config `yaml:"redis"`
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendRedis:
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("invalid cache redis config: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("unknown cache backend %q", c.Backend)
	}
}

// Key is the cache key of a transaction: the lower-cased hash and the
// network id.
func Key(txHash, networkID string) string {
	return strings.ToLower(txHash) + ":" + networkID
}

// New builds the configured backend. The redis backend waits for the server
// to become reachable.
func New(ctx context.Context, log logrus.FieldLogger, config *Config) (Cache, error) {
	if config.Backend != BackendRedis {
		return NewMemory(), nil
	}

	client, err := redis.New(&config.Redis)
	if err != nil {
		return nil, err
	}

	if err := redis.WaitReady(ctx, log.WithField("component", "cache"), client); err != nil {
		_ = client.Close()

		return nil, err
	}

	return NewRedis(client, config.Redis.Prefix, config.Redis.TTL), nil
}
