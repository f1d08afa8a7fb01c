package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vidsage/vidsage/engine/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunking.TargetSize != 1000 || cfg.Chunking.Overlap != 200 {
		t.Errorf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Provider.Type != "ollama" {
		t.Errorf("default provider = %q", cfg.Provider.Type)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
chunking:
  target_size: 500
  overlap: 50
retrieval:
  top_k: 8
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunking.TargetSize != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("yaml values not applied: %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 8 {
		t.Errorf("TopK = %d", cfg.Retrieval.TopK)
	}
	// Untouched sections keep defaults.
	if cfg.Qdrant.Collection != "video_transcripts" {
		t.Errorf("Collection = %q", cfg.Qdrant.Collection)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("retrieval:\n  top_k: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RETRIEVAL_TOP_K", "3")
	t.Setenv("QDRANT_ADDR", "qdrant.internal:6334")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("TopK = %d, env should win", cfg.Retrieval.TopK)
	}
	if cfg.Qdrant.Addr != "qdrant.internal:6334" {
		t.Errorf("Addr = %q", cfg.Qdrant.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals target", func(c *Config) { c.Chunking.Overlap = c.Chunking.TargetSize }},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"zero target size", func(c *Config) { c.Chunking.TargetSize = 0 }},
		{"zero dims", func(c *Config) { c.Qdrant.Dims = 0 }},
		{"unknown provider", func(c *Config) { c.Provider.Type = "openai" }},
		{"gemini without key", func(c *Config) { c.Provider.Type = "gemini" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
