package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/4rdii/transaction-debugger-agent/pkg/api"
	"github.com/4rdii/transaction-debugger-agent/pkg/cache"
	"github.com/4rdii/transaction-debugger-agent/pkg/debugger"
	"github.com/4rdii/transaction-debugger-agent/pkg/observability"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	log    logrus.FieldLogger
	config *Config

	service *debugger.Service
	cache   cache.Cache
	stats   *StatsCollector

	apiServer    *http.Server
	pprofServer  *http.Server
	healthServer *http.Server
}

func NewServer(ctx context.Context, log logrus.FieldLogger, config *Config) (*Server, error) {
	service, resultCache, err := NewDebugger(ctx, log, config)
	if err != nil {
		return nil, err
	}

	return &Server{
		log:     log,
		config:  config,
		service: service,
		cache:   resultCache,
		stats:   NewStatsCollector(log, config.Stats, resultCache),
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Start metrics server
	g.Go(func() error {
		return observability.StartMetricsServer(ctx, s.log, s.config.MetricsAddr)
	})

	// Start API server
	g.Go(func() error {
		if err := s.startAPI(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	// Start pprof server if configured
	if s.config.PProfAddr != nil {
		g.Go(func() error {
			if err := s.startPProf(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})
	}

	// Start health check server if configured
	if s.config.HealthCheckAddr != nil {
		g.Go(func() error {
			if err := s.startHealthCheck(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})
	}

	g.Go(func() error {
		return s.stats.Start(ctx)
	})

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		return s.stop(ctx)
	})

	return g.Wait()
}

func (s *Server) stop(ctx context.Context) error {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	s.stats.Stop()

	for name, srv := range map[string]*http.Server{
		"api":    s.apiServer,
		"pprof":  s.pprofServer,
		"health": s.healthServer,
	} {
		if srv == nil {
			continue
		}

		if err := srv.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Errorf("failed to shutdown %s server", name)
		}
	}

	if err := observability.StopMetricsServer(cleanupCtx); err != nil {
		s.log.WithError(err).Error("failed to stop metrics server")
	}

	if closer, ok := s.cache.(io.Closer); ok {
		s.log.Info("Closing result cache...")

		if err := closer.Close(); err != nil {
			s.log.WithError(err).Error("failed to close result cache")
		}
	}

	s.log.Info("Server stopped gracefully")

	return nil
}

// Handler returns the API routes plus the liveness endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	api.NewHandler(s.log, s.service).RegisterRoutes(mux)
	mux.HandleFunc("GET /health", healthHandler)

	return mux
}

func (s *Server) startAPI() error {
	s.log.WithField("addr", s.config.APIAddr).Info("Starting API server")

	s.apiServer = &http.Server{
		Addr:              s.config.APIAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.apiServer.ListenAndServe()
}

func (s *Server) startPProf() error {
	s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

	s.pprofServer = &http.Server{
		Addr:              *s.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.pprofServer.ListenAndServe()
}

func (s *Server) startHealthCheck() error {
	s.log.WithField("addr", *s.config.HealthCheckAddr).Info("Starting healthcheck server")

	s.healthServer = &http.Server{
		Addr:              *s.config.HealthCheckAddr,
		Handler:           http.HandlerFunc(healthHandler),
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.healthServer.ListenAndServe()
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
}
