// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trailpaw-ai/companion-platform/internal/config"
	"github.com/trailpaw-ai/companion-platform/internal/conversation"
	"github.com/trailpaw-ai/companion-platform/internal/dialogue"
	"github.com/trailpaw-ai/companion-platform/internal/events"
	"github.com/trailpaw-ai/companion-platform/internal/handler"
	"github.com/trailpaw-ai/companion-platform/internal/llm"
	"github.com/trailpaw-ai/companion-platform/internal/middleware"
	"github.com/trailpaw-ai/companion-platform/internal/session"
	"github.com/trailpaw-ai/companion-platform/internal/store"
	"github.com/trailpaw-ai/companion-platform/pkg/logger"
	"github.com/trailpaw-ai/companion-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "companion-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the durable store
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	// Seed the persona catalog
	personas, err := config.LoadPersonas(cfg.PersonasFile)
	if err != nil {
		log.Error("failed to load personas", zap.Error(err))
		os.Exit(1)
	}
	if err := db.SeedPersonas(ctx, personas); err != nil {
		log.Error("failed to seed personas", zap.Error(err))
		os.Exit(1)
	}
	log.Info("persona catalog seeded", zap.Int("count", len(personas)))

	// Connect the session store. Redis in deployment; in-memory fallback
	// keeps local development working without one.
	var kv session.KV
	var sessionPinger handler.SessionPinger
	if cfg.RedisAddr != "" {
		redisKV := session.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisKV.Close()
		kv = redisKV
		sessionPinger = redisKV
	} else {
		log.Warn("REDIS_ADDR not set, using in-memory session store")
		kv = session.NewMemoryKV()
	}
	sessions := session.NewStore(kv, cfg.SessionTimeout, cfg.SessionRenewBelow, log)

	// Connect the audit event stream if configured
	var eventClient *events.Client
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		eventClient, err = events.Connect(ctx, events.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, audit events disabled", zap.Error(err))
		} else {
			defer eventClient.Close()
			publisher = events.NewPublisher(eventClient, log)
			if err := publisher.EnsureStream(ctx); err != nil {
				log.Warn("failed to ensure audit stream", zap.Error(err))
			}
		}
	}

	// Initialize the generation backend
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	} else {
		log.Error("no generation backend API key configured")
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to create generation backend client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("generation backend ready", zap.String("provider", llmClient.Name()))

	// Wire the core
	directory := conversation.NewDirectory(db, log)
	resolver := conversation.NewResolver(db)
	orchestrator := dialogue.NewOrchestrator(directory, resolver, db, db, llmClient, publisher, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, sessionPinger, eventClient)
	authHandler := handler.NewAuthHandler(db, sessions, publisher, log)
	personaHandler := handler.NewPersonaHandler(db, directory, log)
	chatHandler := handler.NewChatHandler(orchestrator, directory, db, publisher, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Token"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Open endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Session-gated endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(sessions))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.Get("/personas", personaHandler.List)
			r.Route("/personas/{id}", func(r chi.Router) {
				r.Post("/chat", chatHandler.Chat)
				r.Get("/history", chatHandler.History)
				r.Post("/reset", chatHandler.Reset)
			})
		})
	})

	// Create HTTP server. WriteTimeout stays zero so SSE turn streams are
	// never cut off by the server.
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
