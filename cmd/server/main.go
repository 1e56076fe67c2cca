// Intake - conversational intake engine server
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/reliefline/intake/internal/api"
	"github.com/reliefline/intake/internal/config"
	"github.com/reliefline/intake/internal/flow"
	"github.com/reliefline/intake/internal/identity"
	"github.com/reliefline/intake/internal/journal"
	"github.com/reliefline/intake/internal/middleware"
	"github.com/reliefline/intake/internal/pipeline"
	"github.com/reliefline/intake/internal/risk"
	"github.com/reliefline/intake/internal/store"
	"github.com/reliefline/intake/internal/transport"
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
	deliveryJournal, err := journal.Open(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize journal", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := deliveryJournal.Close(); closeErr != nil {
			slog.Error("Failed to close journal", "error", closeErr)
		}
	}()

	if err := deliveryJournal.Ping(context.Background()); err != nil {
		slog.Error("Journal health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Journal connected", "path", cfg.DBPath)

	forms, err := flow.Forms()
	if err != nil {
		slog.Error("Form definitions invalid", "error", err)
		os.Exit(1)
	}

	sink := pipeline.NewHTTPSink(cfg.SinkURL, cfg.SinkTimeout)
	var notifier pipeline.Notifier
	if n := pipeline.NewHTTPNotifier(cfg.NotifyURL, cfg.SinkTimeout); n != nil {
		notifier = n
	}
	submitter := pipeline.NewSubmitter(sink, deliveryJournal, notifier)

	sessions := store.NewSessions()
	locks := store.NewKeyLock()
	riskEngine := risk.New()
	engine := flow.New(sessions, locks, riskEngine, submitter, forms)

	// Initialize handlers.
	eventsHandler := api.NewHandler(engine)
	adminHandler := api.NewAdminHandler(riskEngine, deliveryJournal)
	healthHandler := api.NewHealthHandler(deliveryJournal, sink)
	wsHandler := transport.NewWebSocketHandler(engine, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.FrontendURL, cfg.IsDevelopment()))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	eventsHandler.RegisterRoutes(r)

	// Operator routes; front them with auth at the proxy.
	adminHandler.RegisterRoutes(r)

	// WebSocket chat endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start background sweep.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store.StartSweeper(ctx, sessions, riskEngine, locks, cfg.SessionTTL, cfg.SweepInterval)

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

	slog.Info("Server stopped successfully")
}
