package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/assembly-coach/internal/api"
	"github.com/ashureev/assembly-coach/internal/assets"
	"github.com/ashureev/assembly-coach/internal/coach"
	"github.com/ashureev/assembly-coach/internal/config"
	"github.com/ashureev/assembly-coach/internal/detector"
	"github.com/ashureev/assembly-coach/internal/identity"
	"github.com/ashureev/assembly-coach/internal/middleware"
	"github.com/ashureev/assembly-coach/internal/retention"
	"github.com/ashureev/assembly-coach/internal/stability"
	"github.com/ashureev/assembly-coach/internal/store"
	"github.com/ashureev/assembly-coach/internal/stream"
	"github.com/ashureev/assembly-coach/internal/version"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the coaching server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("Failed to load configuration", "error", err)
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

//nolint:funlen // Startup wiring is kept sequential so dependency setup stays explicit.
func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := slog.Default()
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "version", version.Get().Version)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(parent); err != nil {
		slog.Error("Database health check failed", "error", err)
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	det, health, closeDetector, err := newDetector(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize detector", "error", err)
		return err
	}
	defer closeDetector()

	res, err := assets.NewURLResolver(assets.ImageRoute, cfg.Assets.VideoBaseURL)
	if err != nil {
		return fmt.Errorf("asset urls: %w", err)
	}
	if _, err := os.Stat(cfg.Assets.ImageDir); err != nil {
		slog.Warn("Reference image directory unavailable", "dir", cfg.Assets.ImageDir, "error", err)
	}

	vote, err := stability.ParseClassVote(cfg.Coach.ClassVote)
	if err != nil {
		return err
	}
	machine, err := coach.NewMachine(coach.Config{
		InitialStep:        coach.StepStart,
		BufferCapacity:     cfg.Coach.BufferCapacity,
		StableThreshold:    cfg.Coach.StableThreshold,
		CompareThreshold:   cfg.Coach.CompareThreshold,
		ClassVote:          vote,
		TimeUnit:           cfg.Coach.TimeUnit,
		IncludeLayoutSteps: cfg.Coach.IncludeLayoutSteps,
	}, det, res, coach.WithLogger(logger))
	if err != nil {
		slog.Error("Failed to initialize session", "error", err)
		return err
	}
	svc := coach.NewService(machine, repo, logger)
	slog.Info("Coaching session ready", "session_id", svc.SessionID(), "layout_steps", cfg.Coach.IncludeLayoutSteps)

	// Initialize handlers.
	baseHandler := api.NewHandler(svc, repo)
	coachHandler := api.NewCoachHandler(baseHandler, cfg.Assets.ImageDir)
	healthHandler := api.NewHealthHandler(repo, health, cfg.Detector.Timeout)
	streams := stream.NewManager()
	wsHandler := stream.NewHandler(svc, streams, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins(cfg)))

	healthHandler.RegisterHealth(r)
	coachHandler.RegisterRoutes(r)
	r.With(identity.Middleware).Get("/ws/frames", wsHandler.ServeHTTP)

	// WebSocket streams are hijacked, so WriteTimeout stays off.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	retention.NewWorker(repo, cfg.JournalRetention, retention.DefaultInterval, nil).Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		slog.Error("Server failed", "error", err)
		return err
	case <-ctx.Done():
	}
	stop()

	slog.Info("Shutting down gracefully...")
	streams.CloseAll("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server stopped successfully")
	return nil
}

// newDetector dials the detector service, or returns the in-process stub
// when DETECTOR_STUB is set. health is nil for the stub.
func newDetector(cfg *config.Config, logger *slog.Logger) (detector.Detector, api.HealthChecker, func(), error) {
	if cfg.Detector.Stub {
		slog.Warn("Using stub detector; no objects will ever be detected")
		return detector.NewStatic(), nil, func() {}, nil
	}

	gcfg := detector.DefaultGrpcClientConfig()
	gcfg.Address = cfg.Detector.Addr
	gcfg.RequestTimeout = cfg.Detector.Timeout

	slog.Info("Connecting to detector service via gRPC", "address", gcfg.Address)
	client, err := detector.NewGrpcClient(gcfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return detector.NewCached(client), client, client.Close, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
