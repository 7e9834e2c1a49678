// Package server wires the Mood Mate components together and runs their lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/lewisedginton/mood_mate/internal/api"
	"github.com/lewisedginton/mood_mate/internal/archiver"
	"github.com/lewisedginton/mood_mate/internal/chat"
	appconfig "github.com/lewisedginton/mood_mate/internal/config"
	"github.com/lewisedginton/mood_mate/internal/middleware"
	"github.com/lewisedginton/mood_mate/internal/storage_manager"
	"github.com/lewisedginton/mood_mate/pkg/health"
	"github.com/lewisedginton/mood_mate/pkg/httpmiddleware"
	"github.com/lewisedginton/mood_mate/pkg/logger"
	"github.com/lewisedginton/mood_mate/pkg/metrics"
	"github.com/lewisedginton/mood_mate/pkg/utils"
)

const (
	shutdownTimeout   = 10 * time.Second
	forceExitTimeout  = 30 * time.Second
	storageCheckLimit = 3 * time.Second
)

// Server encapsulates all the Mood Mate components and lifecycle management
type Server struct {
	cfg      *appconfig.AppConfig
	log      logger.Logger
	metrics  *metrics.Metrics
	chat     *chat.Service
	archiver *archiver.Archiver
	health   *health.HealthChecker
	api      *api.API
	http     *http.Server
	cancel   context.CancelFunc
}

// New creates a new Server instance with all components initialized. Nothing listens
// until Run is called.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.GRPCHealthPort > 0, log),
		health:  health.New(health.WithLogger(log)),
	}

	var provider storage_manager.FileProvider
	if cfg.Archive.Enabled() {
		sm, err := s.createStorageManager(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage manager: %w", err)
		}
		provider = sm.GetProvider("")
		s.archiver = archiver.New(provider, log, nil)
	}

	chatConfig := chat.Config{
		Logger:      log,
		IdleTimeout: cfg.Sessions.IdleTimeout,
		Metrics:     s.metrics,
	}
	if s.archiver != nil {
		chatConfig.OnExpire = s.archiver.OnExpire(context.WithoutCancel(ctx))
	}
	var err error
	s.chat, err = chat.New(chatConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat service: %w", err)
	}

	s.registerHealthChecks(provider)

	s.api, err = api.New(api.Config{
		Service:    s.chat,
		Logger:     log,
		Health:     s.health,
		Middleware: s.middlewareConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API: %w", err)
	}

	s.http = &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           s.api,
		ReadTimeout:       cfg.HTTP.ReadTimeout(),
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout(),
		WriteTimeout:      cfg.HTTP.WriteTimeout(),
		IdleTimeout:       cfg.HTTP.IdleTimeout(),
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	}
	s.http.RegisterOnShutdown(s.api.CloseSockets)

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.api
}

func (s *Server) middlewareConfig() httpmiddleware.Config {
	mw := httpmiddleware.DefaultConfig()
	mw.Logger = s.log
	mw.EnableLogging = true
	mw.Timeout = s.cfg.HTTP.RequestTimeout
	mw.MaxRequestSize = s.cfg.Security.MaxRequestSize
	mw.Recoverer = middleware.Recovery(middleware.DefaultRecoveryConfig(s.log))

	if len(s.cfg.Security.CORSAllowedOrigins) > 0 {
		mw.CORS.AllowedOrigins = s.cfg.Security.CORSAllowedOrigins
	}
	if s.cfg.Security.SecurityHeadersEnabled {
		opts := httpmiddleware.DefaultSecurityOptions(s.cfg.IsDevelopment())
		mw.Security = &opts
	} else {
		mw.EnableSecurity = false
	}
	if s.cfg.Metrics.EnableHTTPMetrics {
		mw.Metrics = s.metrics.HTTPMiddleware()
	}
	return mw
}

func (s *Server) registerHealthChecks(provider storage_manager.FileProvider) {
	s.health.AddLivenessCheck(health.NewCheckFunc("chat_service", func(ctx context.Context) error {
		if report := s.chat.Health(ctx); report.Status != "healthy" {
			return fmt.Errorf("chat service reports %s", report.Status)
		}
		return nil
	}))
	s.health.AddReadinessCheck(health.NewCheckFunc("session_sweeper", func(context.Context) error {
		if !s.chat.SweeperRunning() {
			return errors.New("session sweeper is not running")
		}
		return nil
	}))
	if provider != nil {
		s.health.AddReadinessCheck(health.NewCheckFunc("archive_storage", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, storageCheckLimit)
			defer cancel()
			_, err := provider.List(ctx, "analytics")
			return err
		}))
	}
}

// createStorageManager creates a storage manager based on configuration
func (s *Server) createStorageManager(ctx context.Context) (*storage_manager.StorageManager, error) {
	cfg := &s.cfg.Archive

	switch cfg.Backend {
	case appconfig.ArchiveLocal:
		s.log.Info("Using local archive storage", logger.StringField("directory", cfg.LocalDir))

		// 0750 needed for directory traversal
		if err := os.MkdirAll(cfg.LocalDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
		return storage_manager.New(ctx, storage_manager.Config{
			Backend:     storage_manager.BackendLocal,
			LocalConfig: &storage_manager.LocalConfig{BaseDir: cfg.LocalDir},
		})

	case appconfig.ArchiveS3:
		s.log.Info("Using S3 archive storage",
			logger.StringField("bucket", cfg.S3Bucket),
			logger.StringField("prefix", cfg.S3Prefix),
			logger.StringField("region", cfg.S3Region))
		return storage_manager.New(ctx, storage_manager.Config{
			Backend: storage_manager.BackendS3,
			S3Config: &storage_manager.S3Config{
				Bucket:  cfg.S3Bucket,
				Prefix:  cfg.S3Prefix,
				Region:  cfg.S3Region,
				Profile: cfg.S3Profile,
			},
		})

	default:
		return nil, fmt.Errorf("unsupported archive backend: %s", cfg.Backend)
	}
}

// Run starts every listener and background task and blocks until ctx is cancelled,
// a shutdown signal arrives or a listener fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	s.setupGracefulShutdown(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.chat.RunSweeper(ctx, s.cfg.SweepInterval())
	}()

	if s.archiver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.archiver.Run(ctx, s.cfg.Archive.Interval, s.chat.Snapshot)
		}()
	}

	var metricsErrs chan error
	if s.cfg.Metrics.ExposeMetrics {
		metricsErrs = s.metrics.Listen(ctx, s.cfg.Metrics.Port)
	}

	var grpcErrs chan error
	if s.cfg.GRPCHealthPort > 0 {
		grpcErrs = s.startGRPCHealth(ctx)
	}

	errs := utils.MergeErrorChans(s.serveHTTP(ctx), metricsErrs, grpcErrs)

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errs:
		if ok && err != nil {
			s.log.Error("Listener failed", logger.ErrorField(err))
			runErr = err
		}
	}

	cancel()
	for err := range errs {
		s.log.Warn("Listener error during shutdown", logger.ErrorField(err))
	}
	wg.Wait()
	s.log.Info("Server stopped")
	return runErr
}

// serveHTTP runs the API listener until ctx is done, then drains it.
func (s *Server) serveHTTP(ctx context.Context) chan error {
	errChan := make(chan error, 1)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		s.log.Info("Starting HTTP server", logger.StringField("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		defer close(errChan)
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		s.log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout) //nolint:contextcheck // parent is already cancelled
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // see above
			s.log.Error("HTTP server shutdown error", logger.ErrorField(err))
		}
		<-stopped
	}()

	return errChan
}

// startGRPCHealth serves grpc.health.v1 fed by the readiness checks.
func (s *Server) startGRPCHealth(ctx context.Context) chan error {
	errChan := make(chan error, 1)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.GRPCHealthPort))
	if err != nil {
		errChan <- fmt.Errorf("grpc health listener: %w", err)
		close(errChan)
		return errChan
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.log.GrpcRequestsInterceptor,
		s.metrics.GrpcRequestsInterceptor,
	))
	updater := s.health.RegisterWithGRPC(grpcServer)

	go func() {
		defer close(errChan)
		s.log.Info("Starting gRPC health server", logger.IntField("port", s.cfg.GRPCHealthPort))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("grpc health server: %w", err)
		}
	}()
	go func() {
		<-ctx.Done()
		s.log.Info("Stopping gRPC health server")
		updater.Stop()
		grpcServer.GracefulStop()
	}()

	return errChan
}

// setupGracefulShutdown cancels the run context on SIGINT or SIGTERM
func (s *Server) setupGracefulShutdown(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			s.log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))
		case <-ctx.Done():
			return
		}

		if s.cancel != nil {
			s.cancel()
		}

		// Give processes time to shutdown gracefully, then force exit
		time.AfterFunc(forceExitTimeout, func() {
			s.log.Warn("Force exiting due to timeout")
			os.Exit(1)
		})
	}()
}
