package cache

import (
	"context"
	"sync"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
)

// Memory is a process-local cache with no eviction. Contents are lost on
// restart.
type Memory struct {
	mu      sync.RWMutex
	results map[string]*analysis.Result
}

func NewMemory() *Memory {
	return &Memory{results: map[string]*analysis.Result{}}
}

func (m *Memory) Get(_ context.Context, txHash, networkID string) (*analysis.Result, bool, error) {
	m.mu.RLock()
	result, ok := m.results[Key(txHash, networkID)]
	m.mu.RUnlock()

	if ok {
		common.CacheLookups.WithLabelValues(BackendMemory, resultHit).Inc()
	} else {
		common.CacheLookups.WithLabelValues(BackendMemory, resultMiss).Inc()
	}

	return result, ok, nil
}

func (m *Memory) Set(_ context.Context, result *analysis.Result) error {
	m.mu.Lock()
	m.results[Key(result.TxHash, result.NetworkID)] = result
	m.mu.Unlock()

	return nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.results), nil
}

func (m *Memory) Backend() string {
	return BackendMemory
}
