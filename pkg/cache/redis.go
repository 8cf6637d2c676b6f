package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// Redis stores results as JSON strings under {prefix}:result:{key}.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(txHash, networkID string) string {
	return r.prefix + ":result:" + Key(txHash, networkID)
}

func (r *Redis) Get(ctx context.Context, txHash, networkID string) (*analysis.Result, bool, error) {
	data, err := r.client.Get(ctx, r.key(txHash, networkID)).Bytes()
	if errors.Is(err, redis.Nil) {
		common.CacheLookups.WithLabelValues(BackendRedis, resultMiss).Inc()

		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached result: %w", err)
	}

	var result analysis.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached result: %w", err)
	}

	common.CacheLookups.WithLabelValues(BackendRedis, resultHit).Inc()

	return &result, true, nil
}

func (r *Redis) Set(ctx context.Context, result *analysis.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := r.client.Set(ctx, r.key(result.TxHash, result.NetworkID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}

	return nil
}

// Len counts cached results with SCAN, so it is approximate while writes are
// in flight.
func (r *Redis) Len(ctx context.Context) (int, error) {
	count := 0

	iter := r.client.Scan(ctx, 0, r.prefix+":result:*", scanBatch).Iterator()
	for iter.Next(ctx) {
		count++
	}

	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count cached results: %w", err)
	}

	return count, nil
}

func (r *Redis) Backend() string {
	return BackendRedis
}

func (r *Redis) Close() error {
	return r.client.Close()
}
