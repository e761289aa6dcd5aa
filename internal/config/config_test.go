package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.RerankMode != "light" {
		t.Errorf("expected default rerank mode light, got %s", cfg.RerankMode)
	}
	if cfg.RerankMinScore != 0.6 {
		t.Errorf("expected default min score 0.6, got %f", cfg.RerankMinScore)
	}
	if cfg.RerankLightKeep != 5 || cfg.RerankStrictKeep != 2 {
		t.Errorf("expected keep sizes 5/2, got %d/%d", cfg.RerankLightKeep, cfg.RerankStrictKeep)
	}
	if cfg.TopK != 10 {
		t.Errorf("expected default top-k 10, got %d", cfg.TopK)
	}
	if cfg.PathTimeout != 60*time.Second {
		t.Errorf("expected default path timeout 60s, got %v", cfg.PathTimeout)
	}
	if cfg.MetricsBackend != "file" {
		t.Errorf("expected default metrics backend file, got %s", cfg.MetricsBackend)
	}
	if cfg.DirectBackend != "ollama" {
		t.Errorf("expected default direct backend ollama, got %s", cfg.DirectBackend)
	}
	if !cfg.VectorStoreWatch {
		t.Error("expected store watching on by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("RERANK_MODE", "strict")
	t.Setenv("RERANK_MIN_SCORE", "0.75")
	t.Setenv("PATH_TIMEOUT", "90s")
	t.Setenv("VECTOR_STORE_WATCH", "false")
	t.Setenv("DIRECT_BACKEND", "openai")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.HTTPPort)
	}
	if cfg.RerankMode != "strict" {
		t.Errorf("expected strict mode, got %s", cfg.RerankMode)
	}
	if cfg.RerankMinScore != 0.75 {
		t.Errorf("expected min score 0.75, got %f", cfg.RerankMinScore)
	}
	if cfg.PathTimeout != 90*time.Second {
		t.Errorf("expected path timeout 90s, got %v", cfg.PathTimeout)
	}
	if cfg.VectorStoreWatch {
		t.Error("expected store watching disabled")
	}
	if cfg.DirectBackend != "openai" {
		t.Errorf("expected openai backend, got %s", cfg.DirectBackend)
	}
}
