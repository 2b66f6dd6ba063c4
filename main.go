// datachat - conversational data-analysis backend.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"datachat/agent"
	"datachat/config"
	"datachat/dataset"
	"datachat/logger"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "model", cfg.ModelName)

	// The detailed pipeline log goes to its own file so prompt and script
	// traces stay out of the structured server log.
	fileLog := logger.NewLogger()
	if cfg.DetailedLog {
		if err := fileLog.Init(filepath.Join(cfg.DataDir, "logs")); err != nil {
			slog.Error("Failed to initialize detailed log", "error", err)
			os.Exit(1)
		}
		defer fileLog.Close()
	}
	agentLog := fileLog.Log

	registry, err := dataset.NewRegistry(cfg.DBPath, agentLog)
	if err != nil {
		slog.Error("Failed to open dataset catalog", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := registry.Close(); closeErr != nil {
			slog.Error("Failed to close dataset catalog", "error", closeErr)
		}
	}()
	slog.Info("Dataset catalog ready", "path", cfg.DBPath)

	chatModel, err := agent.NewChatModel(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to create chat model", "error", err)
		os.Exit(1)
	}

	// Wire the pipeline.
	classifier := agent.NewIntentClassifier(chatModel, agentLog)
	synthesizer := agent.NewCodeSynthesizer(chatModel, cfg.MaxTokens, agentLog)
	runner := agent.NewPythonRunner(cfg.PythonPath, cfg.ScriptTimeout, agentLog)
	executor := agent.NewAnalysisExecutor(synthesizer, runner, agentLog)
	composer := agent.NewResponseComposer(chatModel, agentLog)
	sessions := agent.NewSessionStore(cfg.SessionCapacity)
	orchestrator := agent.NewOrchestrator(registry, classifier, synthesizer, executor, composer, sessions, agentLog)

	ingestor := dataset.NewIngestor(registry, chatModel, cfg.DataDir, agentLog)

	h := NewHandler(orchestrator, ingestor, registry, cfg)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // analysis turns run scripts and multiple completions
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

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

// corsMiddleware mirrors the permissive CORS policy the frontend expects.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
