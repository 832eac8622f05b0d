package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	r "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yachaerang/pricebatch/pkg/api"
	"github.com/yachaerang/pricebatch/pkg/ingest"
	"github.com/yachaerang/pricebatch/pkg/kamis"
	"github.com/yachaerang/pricebatch/pkg/observability"
	"github.com/yachaerang/pricebatch/pkg/orchestrator"
	"github.com/yachaerang/pricebatch/pkg/redis"
	"github.com/yachaerang/pricebatch/pkg/rollup"
	"github.com/yachaerang/pricebatch/pkg/scheduler"
	"github.com/yachaerang/pricebatch/pkg/storage"
)

// Server represents the main application server
type Server struct {
	log    logrus.FieldLogger
	config *Config

	redis *r.Client
	store *storage.Store

	orchestrator *orchestrator.Service
	scheduler    scheduler.Service
	api          api.Service

	pprofServer *http.Server
}

// NewServer creates a new server instance with the full job pipeline wired.
func NewServer(_ context.Context, log logrus.FieldLogger, config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	redisClient, err := redis.NewClient(config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	store, err := storage.NewStore(log, config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	kamisClient, err := kamis.NewClient(log, config.Kamis)
	if err != nil {
		return nil, fmt.Errorf("failed to create kamis client: %w", err)
	}

	ingestService, err := ingest.NewService(log, config.Ingest, kamisClient, store)
	if err != nil {
		return nil, err
	}

	rollupService, err := rollup.NewService(log, config.Rollup, store)
	if err != nil {
		return nil, err
	}

	locker := orchestrator.NewRedisLocker(log, redisClient)

	jobs, err := orchestrator.NewService(log, config.Orchestrator, ingestService, rollupService, locker, config.Redis.PrefixKey("lock"))
	if err != nil {
		return nil, err
	}

	schedulerService, err := scheduler.NewService(log, config.Scheduler, jobs, redisClient)
	if err != nil {
		return nil, err
	}

	return &Server{
		log:          log,
		config:       config,
		redis:        redisClient,
		store:        store,
		orchestrator: jobs,
		scheduler:    schedulerService,
		api:          api.NewService(config.API, jobs, log),
	}, nil
}

// Jobs exposes the orchestrator for one-shot CLI runs.
func (s *Server) Jobs() *orchestrator.Service {
	return s.orchestrator
}

// Migrate creates or updates the database schema.
func (s *Server) Migrate(ctx context.Context) error {
	return s.store.Migrate(ctx)
}

// Close releases connections without a full start/stop cycle.
func (s *Server) Close() error {
	if err := s.store.Close(); err != nil {
		return err
	}

	return s.redis.Close()
}

// Start starts the server and all its components
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	// Start metrics server
	g.Go(func() error {
		observability.StartMetricsServer(s.config.MetricsAddr)
		<-ctx.Done()

		return nil
	})

	// Start pprof server if configured
	if s.config.PProfAddr != nil {
		g.Go(func() error {
			if err := s.startPProf(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			<-ctx.Done()

			return nil
		})
	}

	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if err := s.api.Start(ctx); err != nil {
		return fmt.Errorf("failed to start api: %w", err)
	}

	s.log.Info("Server started")

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		// Use a fresh context for cleanup since the current one is canceled
		return s.stop(context.Background())
	})

	return g.Wait()
}

func (s *Server) stop(ctx context.Context) error {
	cleanupCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	if err := s.api.Stop(); err != nil {
		s.log.WithError(err).Error("failed to stop api server")
	}

	if err := s.scheduler.Stop(); err != nil {
		s.log.WithError(err).Error("failed to stop scheduler")
	}

	if s.pprofServer != nil {
		if err := s.pprofServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown pprof server")
		}
	}

	if err := observability.StopMetricsServer(cleanupCtx); err != nil {
		s.log.WithError(err).Error("failed to stop metrics server")
	}

	if err := s.store.Close(); err != nil {
		s.log.WithError(err).Error("failed to close store")
	}

	if err := s.redis.Close(); err != nil {
		s.log.WithError(err).Error("failed to close redis")
	}

	s.log.Info("Server stopped gracefully")

	return nil
}

func (s *Server) startPProf() error {
	s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

	s.pprofServer = &http.Server{
		Addr:              *s.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	return s.pprofServer.ListenAndServe()
}
