package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/cache"
	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

type StatsConfig struct {
	// Enabled turns the periodic stats job on.
	Enabled bool `yaml:"enabled" default:"true"`
	// Interval is how often the cache size and memory gauges are refreshed.
	Interval time.Duration `yaml:"interval" default:"1m"`
}

func (c *StatsConfig) Validate() error {
	if c.Enabled && c.Interval <= 0 {
		return fmt.Errorf("stats interval must be positive")
	}

	return nil
}

// StatsCollector periodically refreshes the cache size and process memory
// gauges.
type StatsCollector struct {
	log       logrus.FieldLogger
	config    StatsConfig
	cache     cache.Cache
	scheduler *gocron.Scheduler

	maxAllocBytes uint64
}

func NewStatsCollector(log logrus.FieldLogger, config StatsConfig, c cache.Cache) *StatsCollector {
	return &StatsCollector{
		log:    log.WithField("component", "stats_collector"),
		config: config,
		cache:  c,
	}
}

// Start schedules the collection job and returns immediately.
func (s *StatsCollector) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Stats collector is disabled")

		return nil
	}

	s.log.WithField("interval", s.config.Interval).Info("Starting stats collector")

	s.scheduler = gocron.NewScheduler(time.Local)

	if _, err := s.scheduler.Every(s.config.Interval).Do(func() {
		s.Collect(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule stats job: %w", err)
	}

	s.scheduler.StartAsync()

	return nil
}

func (s *StatsCollector) Stop() {
	if s.scheduler != nil {
		s.log.Info("Stopping stats collector")
		s.scheduler.Stop()
	}
}

// Collect refreshes every gauge once.
func (s *StatsCollector) Collect(ctx context.Context) {
	entries, err := s.cache.Len(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to count cached results")
	} else {
		common.CacheEntries.WithLabelValues(s.cache.Backend()).Set(float64(entries))
	}

	var memStats runtime.MemStats

	runtime.ReadMemStats(&memStats)

	common.MemoryUsage.WithLabelValues("alloc").Set(float64(memStats.Alloc))
	common.MemoryUsage.WithLabelValues("sys").Set(float64(memStats.Sys))
	common.MemoryUsage.WithLabelValues("heap_alloc").Set(float64(memStats.HeapAlloc))
	common.GoroutineCount.Set(float64(runtime.NumGoroutine()))

	if memStats.Alloc > s.maxAllocBytes {
		s.maxAllocBytes = memStats.Alloc
	}

	s.log.WithFields(logrus.Fields{
		"cache_entries": entries,
		"alloc_mb":      memStats.Alloc / 1024 / 1024,
		"max_alloc_mb":  s.maxAllocBytes / 1024 / 1024,
		"goroutines":    runtime.NumGoroutine(),
		"num_gc":        memStats.NumGC,
	}).Debug("Stats summary")
}
