package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-trends/internal/api/handlers"
	"github.com/dvloznov/statement-trends/internal/api/middleware"
	"github.com/dvloznov/statement-trends/internal/assistant"
	"github.com/dvloznov/statement-trends/internal/config"
	"github.com/dvloznov/statement-trends/internal/jobs/inmemory"
	"github.com/dvloznov/statement-trends/internal/logger"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	var (
		configDir = flag.String("config", ".", "Directory containing config.yaml")
		port      = flag.String("port", "", "HTTP server port (overrides server.port)")
	)
	flag.Parse()

	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load(*configDir)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	log, err := cfg.Logger()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to create logger")
	}

	ctx := logger.WithContext(context.Background(), log)

	registry, err := cfg.Registry(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create statement registry")
	}
	masters := cfg.Masters(log)
	chatlogs := cfg.Chatlogs()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)
	if cfg.Server.Workers > 0 {
		jobQueue.Workers = cfg.Server.Workers
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	routes := handlers.Routes{
		Statements: handlers.NewStatementsHandler(registry, masters, logger.WithComponent(log, "statements")),
		Jobs:       handlers.NewJobsHandler(jobStore, log),
		Sessions:   handlers.NewSessionsHandler(chatlogs, cfg.Gemini.Model, log),
	}

	// The assistant is optional: without credentials the statement
	// endpoints keep working and questions are rejected with 404.
	gen, err := assistant.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini client unavailable - assistant endpoints disabled")
	} else {
		svc := assistant.NewService(gen, cfg.Layout(), chatlogs, logger.WithComponent(log, "assistant"))
		routes.Assistant = handlers.NewAssistantHandler(jobQueue, log)

		// Start job consumer in background
		go func() {
			log.Info().Msg("Starting assistant worker")
			if err := jobQueue.Start(workerCtx, assistant.JobHandler(svc)); err != nil {
				log.Error().Err(err).Msg("Assistant worker stopped with error")
			}
		}()
	}

	// Create router
	mux := http.NewServeMux()
	routes.Register(mux)

	// Apply middleware
	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.CORS,
		middleware.Auth(cfg.Server.AuthToken, "/health"),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
