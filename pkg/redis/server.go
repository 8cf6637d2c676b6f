package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// New creates a new Redis client from configuration
func New(config *Config) (*redis.Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	// Accept both host:port and redis:// URLs
	addr := config.Address
	if strings.HasPrefix(addr, "redis://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis address: %w", err)
		}

		return redis.NewClient(opts), nil
	}

	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// WaitReady pings the server with exponential backoff until it answers, the
// context is cancelled, or two minutes pass.
func WaitReady(ctx context.Context, log logrus.FieldLogger, client *redis.Client) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 2 * time.Minute

	attempt := 0

	operation := func() error {
		attempt++

		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("Redis not reachable yet, will retry")

			return err
		}

		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("redis unreachable after %d attempts: %w", attempt, err)
	}

	return nil
}
