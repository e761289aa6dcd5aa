// Package config loads configuration from environment variables and .env files.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the comparison service
type Config struct {
	// Server
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	APIKey   string `env:"API_KEY"`

	// Vector store
	VectorStorePath  string `env:"VECTOR_STORE_PATH" envDefault:"vector_store.json"`
	VectorStoreWatch bool   `env:"VECTOR_STORE_WATCH" envDefault:"true"`

	// Ollama
	OllamaURL            string        `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbeddingModel string        `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	OllamaLLMModel       string        `env:"OLLAMA_LLM_MODEL" envDefault:"llama3.2:3b"`
	EmbedTimeout         time.Duration `env:"EMBED_TIMEOUT" envDefault:"15s"`

	// Direct path backend: "ollama" or "openai"
	DirectBackend string `env:"DIRECT_BACKEND" envDefault:"ollama"`
	DirectModel   string `env:"DIRECT_MODEL"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// Retrieval and reranking
	TopK               int           `env:"RAG_TOP_K" envDefault:"10"`
	RerankMode         string        `env:"RERANK_MODE" envDefault:"light"`
	RerankMinScore     float64       `env:"RERANK_MIN_SCORE" envDefault:"0.6"`
	RerankLightKeep    int           `env:"RERANK_LIGHT_KEEP" envDefault:"5"`
	RerankStrictKeep   int           `env:"RERANK_STRICT_KEEP" envDefault:"2"`
	RerankScoreTimeout time.Duration `env:"RERANK_SCORE_TIMEOUT" envDefault:"20s"`
	MaxContextChars    int           `env:"MAX_CONTEXT_CHARS" envDefault:"4000"`
	PathTimeout        time.Duration `env:"PATH_TIMEOUT" envDefault:"60s"`

	// Metrics backend: "file" or "postgres"
	MetricsBackend   string `env:"METRICS_BACKEND" envDefault:"file"`
	MetricsPath      string `env:"METRICS_PATH" envDefault:"rag_comparisons.jsonl"`
	DatabaseURL      string `env:"DATABASE_URL"`
	MetricsQueueSize int    `env:"METRICS_QUEUE_SIZE" envDefault:"64"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
