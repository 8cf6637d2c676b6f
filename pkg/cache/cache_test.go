package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/4rdii/transaction-debugger-agent/internal/testutil"
	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/cache"
	"github.com/4rdii/transaction-debugger-agent/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const txHash = "0xABCDEF0000000000000000000000000000000000000000000000000000000001"

func sampleResult(hash, network string) *analysis.Result {
	root := &analysis.CallNode{ID: 0, CallType: analysis.CallTypeCall, Success: true, Children: []*analysis.CallNode{}}

	return &analysis.Result{
		TxHash:          hash,
		NetworkID:       network,
		Success:         true,
		GasUsed:         21000,
		BlockNumber:     19000000,
		CallTree:        analysis.NewCallTree([]*analysis.CallNode{root}),
		TokenFlows:      []analysis.TokenFlow{},
		SemanticActions: []analysis.SemanticAction{},
		RiskFlags:       []analysis.RiskFlag{},
		LLMExplanation:  "A plain transfer.",
		AnalyzedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKey_LowercasesHash(t *testing.T) {
	assert.Equal(t, cache.Key("0xabcdef", "1"), cache.Key("0xABCDEF", "1"))
	assert.NotEqual(t, cache.Key("0xabcdef", "1"), cache.Key("0xabcdef", "137"))
}

func backends(t *testing.T) map[string]cache.Cache {
	t.Helper()

	client, _ := testutil.NewMiniredisClient(t)

	return map[string]cache.Cache{
		cache.BackendMemory: cache.NewMemory(),
		cache.BackendRedis:  cache.NewRedis(client, "test", time.Hour),
	}
}

func TestCache_GetSet(t *testing.T) {
	ctx := context.Background()

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, c.Backend())

			_, ok, err := c.Get(ctx, txHash, "1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Set(ctx, sampleResult(txHash, "1")))

			got, ok, err := c.Get(ctx, "0xabcdef0000000000000000000000000000000000000000000000000000000001", "1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, uint64(21000), got.GasUsed)
			assert.Equal(t, "A plain transfer.", got.LLMExplanation)
			assert.Equal(t, 1, got.CallTree.Len())
			assert.True(t, got.AnalyzedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

			_, ok, err = c.Get(ctx, txHash, "137")
			require.NoError(t, err)
			assert.False(t, ok)

			n, err := c.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestCache_LastWriteWins(t *testing.T) {
	ctx := context.Background()

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := sampleResult(txHash, "1")
			second := sampleResult(txHash, "1")
			second.LLMExplanation = "second"

			require.NoError(t, c.Set(ctx, first))
			require.NoError(t, c.Set(ctx, second))

			got, ok, err := c.Get(ctx, txHash, "1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "second", got.LLMExplanation)

			n, err := c.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = c.Set(ctx, sampleResult(txHash, "1"))
			_, _, _ = c.Get(ctx, txHash, "1")
		}()
	}

	wg.Wait()

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedis_KeyLayoutAndTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := testutil.NewMiniredisClient(t)

	c := cache.NewRedis(client, "dbg", 10*time.Minute)
	require.NoError(t, c.Set(ctx, sampleResult(txHash, "1")))

	key := "dbg:result:" + cache.Key(txHash, "1")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Minute, mr.TTL(key))

	mr.FastForward(11 * time.Minute)

	_, ok, err := c.Get(ctx, txHash, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	client, mr := testutil.NewMiniredisClient(t)

	require.NoError(t, mr.Set("dbg:result:"+cache.Key(txHash, "1"), "{not json"))

	_, ok, err := cache.NewRedis(client, "dbg", 0).Get(ctx, txHash, "1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	log := testutil.NewLogger()

	c, err := cache.New(ctx, log, &cache.Config{Backend: cache.BackendMemory})
	require.NoError(t, err)
	assert.Equal(t, cache.BackendMemory, c.Backend())

	mr := testutil.NewMiniredis(t)

	c, err = cache.New(ctx, log, &cache.Config{
		Backend: cache.BackendRedis,
		Redis:   redis.Config{Address: "redis://" + mr.Addr(), Prefix: "dbg"},
	})
	require.NoError(t, err)
	assert.Equal(t, cache.BackendRedis, c.Backend())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  cache.Config
		wantErr bool
	}{
		{"memory", cache.Config{Backend: cache.BackendMemory}, false},
		{"redis", cache.Config{Backend: cache.BackendRedis, Redis: redis.Config{Address: "localhost:6379"}}, false},
		{"redis without address", cache.Config{Backend: cache.BackendRedis}, true},
		{"unknown", cache.Config{Backend: "disk"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
