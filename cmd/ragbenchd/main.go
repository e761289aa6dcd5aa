package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuzminvik/ragbench/internal/compare"
	"github.com/kuzminvik/ragbench/internal/config"
	"github.com/kuzminvik/ragbench/internal/embedder"
	"github.com/kuzminvik/ragbench/internal/llm"
	"github.com/kuzminvik/ragbench/internal/metrics"
	"github.com/kuzminvik/ragbench/internal/reranker"
	"github.com/kuzminvik/ragbench/internal/retriever"
	"github.com/kuzminvik/ragbench/internal/server"
	"github.com/kuzminvik/ragbench/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting comparison service",
		"http_port", cfg.HTTPPort,
		"vector_store", cfg.VectorStorePath,
		"rerank_mode", cfg.RerankMode,
	)

	// Load the vector store
	store, err := vectorstore.Load(cfg.VectorStorePath)
	if err != nil {
		return fmt.Errorf("failed to load vector store: %w", err)
	}
	slog.Info("loaded vector store",
		"path", cfg.VectorStorePath,
		"chunks", store.Len(),
		"dimension", store.Dimension(),
	)

	if cfg.VectorStoreWatch {
		if err := vectorstore.Watch(ctx, store, cfg.VectorStorePath, slog.Default()); err != nil {
			return fmt.Errorf("failed to watch vector store: %w", err)
		}
	}

	// Initialize Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.OllamaEmbeddingModel,
		Dimension: store.Dimension(),
		Timeout:   cfg.EmbedTimeout,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel)

	// RAG path always generates through Ollama
	ragLLM := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.OllamaLLMModel),
	)
	slog.Info("initialized Ollama LLM", "model", cfg.OllamaLLMModel)

	// The direct path may use a different backend to compare against
	var directLLM llm.LLM
	switch cfg.DirectBackend {
	case "", "ollama":
		directLLM = ragLLM
	case "openai":
		directLLM = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.DirectModel,
		})
		slog.Info("initialized OpenAI client for direct path")
	default:
		return fmt.Errorf("unknown direct backend %q", cfg.DirectBackend)
	}

	defaultMode, err := reranker.ParseMode(cfg.RerankMode)
	if err != nil {
		return fmt.Errorf("invalid rerank mode: %w", err)
	}

	rerank := reranker.New(ragLLM, reranker.Config{
		MinScore:     cfg.RerankMinScore,
		LightKeep:    cfg.RerankLightKeep,
		StrictKeep:   cfg.RerankStrictKeep,
		ScoreTimeout: cfg.RerankScoreTimeout,
	}, slog.Default())

	// Initialize the metrics sink and recorder
	var (
		sink    metrics.Sink
		history server.History
	)
	switch cfg.MetricsBackend {
	case "", "file":
		fileSink := metrics.NewFileSink(cfg.MetricsPath)
		sink, history = fileSink, fileSink
		slog.Info("recording comparisons to file", "path", cfg.MetricsPath)
	case "postgres":
		pgSink, err := metrics.NewPostgresSink(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pgSink.Close()
		sink, history = pgSink, pgSink
		slog.Info("recording comparisons to PostgreSQL")
	default:
		return fmt.Errorf("unknown metrics backend %q", cfg.MetricsBackend)
	}

	recorder := metrics.NewRecorder(sink, cfg.MetricsQueueSize, slog.Default())
	defer recorder.Close()

	harness := compare.NewHarness(
		embed,
		retriever.New(store),
		rerank,
		ragLLM,
		directLLM,
		compare.Options{
			TopK:            cfg.TopK,
			MaxContextChars: cfg.MaxContextChars,
			PathTimeout:     cfg.PathTimeout,
			DirectModel:     cfg.DirectModel,
		},
		compare.WithRecorder(recorder),
	)

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		Comparer:       harness,
		History:        history,
		DefaultMode:    defaultMode,
		APIKey:         cfg.APIKey,
		AllowedOrigins: []string{"*"}, // Configure in production
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	slog.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ embedder.Embedder = (*embedder.OllamaEmbedder)(nil)
	_ llm.LLM           = (*llm.OllamaClient)(nil)
	_ llm.LLM           = (*llm.OpenAIClient)(nil)
	_ server.Comparer   = (*compare.Harness)(nil)
	_ server.History    = (*metrics.FileSink)(nil)
	_ server.History    = (*metrics.PostgresSink)(nil)
)
