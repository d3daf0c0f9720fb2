// Mission Control - multi-agent chat and terminal bridge server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akozyrev/mission-control/internal/api"
	"github.com/akozyrev/mission-control/internal/bridge"
	"github.com/akozyrev/mission-control/internal/broadcast"
	"github.com/akozyrev/mission-control/internal/completion"
	"github.com/akozyrev/mission-control/internal/config"
	"github.com/akozyrev/mission-control/internal/domain"
	"github.com/akozyrev/mission-control/internal/middleware"
	"github.com/akozyrev/mission-control/internal/session"
	"github.com/akozyrev/mission-control/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	hub := broadcast.NewHub()

	mgr, err := bridge.NewManager(hub, bridge.Config{
		BaseDir:        cfg.Bridge.DataDir,
		Shell:          cfg.Bridge.Shell,
		StartupCommand: cfg.Bridge.StartupCommand,
		Cols:           uint16(cfg.Bridge.Cols),
		Rows:           uint16(cfg.Bridge.Rows),
		RingSize:       cfg.Bridge.RingSize,
	})
	if err != nil {
		slog.Error("Failed to initialize process bridge", "error", err)
		os.Exit(1)
	}
	defer mgr.Close()
	slog.Info("Process bridge initialized", "data_dir", cfg.Bridge.DataDir, "shell", cfg.Bridge.Shell)

	sessions := session.NewStore()
	if saved, activeID, err := repo.LoadSessions(context.Background()); err != nil {
		slog.Warn("Failed to load persisted sessions", "error", err)
	} else {
		sessions.Load(saved, activeID)
	}

	// Persist the session list on mutation, coalesced so streaming chunk
	// updates do not hammer the database.
	dirty := make(chan struct{}, 1)
	sessions.SetNotify(func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	client := completion.NewClient(cfg.Completion.BaseURL, cfg.Completion.APIKey, cfg.Completion.Timeout)
	chat := session.NewChat(sessions, client, repoRuleSource{repo}, hub)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, mgr, sessions, chat)
	agentHandler := api.NewAgentHandler(baseHandler)
	sessionHandler := api.NewSessionHandler(baseHandler)
	stateHandler := api.NewStateHandler(baseHandler)
	wsHandler := broadcast.NewWebSocketHandler(hub, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	// A configured frontend origin narrows CORS; without one (development)
	// any origin is allowed.
	corsOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))

	agentHandler.RegisterRoutes(r)
	sessionHandler.RegisterRoutes(r)
	stateHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws", wsHandler.ServeHTTP)

	// Create server. Generations stream for a while, so no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go persistLoop(ctx, repo, sessions, dirty)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	saveSessions(repo, sessions)
	slog.Info("Server stopped successfully")
}

// persistLoop flushes the session list to the repository shortly after a
// mutation is flagged. Best effort: failures are logged, never fatal.
func persistLoop(ctx context.Context, repo store.Repository, sessions *session.Store, dirty <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-dirty:
			time.Sleep(time.Second) // coalesce bursts of chunk updates
			saveSessions(repo, sessions)
		}
	}
}

func saveSessions(repo store.Repository, sessions *session.Store) {
	snapshot, activeID := sessions.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.SaveSessions(ctx, snapshot, activeID); err != nil {
		slog.Warn("Failed to persist sessions", "error", err)
	}
}

// repoRuleSource supplies the current rule list at request time.
type repoRuleSource struct {
	repo store.Repository
}

func (r repoRuleSource) Rules() []domain.Rule {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rules, err := r.repo.LoadRules(ctx)
	if err != nil {
		slog.Warn("Failed to load rules for preamble", "error", err)
		return nil
	}
	return rules
}
