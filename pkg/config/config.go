// Package config loads the application configuration: defaults, then an
// optional YAML file, then environment variable overrides, in that
// precedence order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vidsage/vidsage/engine/domain"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	NATS      NATSConfig      `yaml:"nats"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Provider  ProviderConfig  `yaml:"provider"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// QdrantConfig contains vector store connection details.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
	Dims       int    `yaml:"dims"`
}

// NATSConfig configures the optional ingest queue.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// ChunkingConfig controls transcript segmentation.
type ChunkingConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
}

// RetrievalConfig controls the query path.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ProviderConfig selects the embedding/generation backends.
type ProviderConfig struct {
	// Type is "ollama" or "gemini".
	Type          string `yaml:"type"`
	OllamaURL     string `yaml:"ollama_url"`
	EmbedModel    string `yaml:"embed_model"`
	GenerateModel string `yaml:"generate_model"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`
}

// CatalogConfig locates the catalog file.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Qdrant: QdrantConfig{
			Addr:       "localhost:6334",
			Collection: "video_transcripts",
			Dims:       768,
		},
		NATS: NATSConfig{URL: "nats://localhost:4222"},
		Chunking: ChunkingConfig{
			TargetSize: 1000,
			Overlap:    200,
		},
		Retrieval: RetrievalConfig{TopK: 5},
		Provider: ProviderConfig{
			Type:          "ollama",
			OllamaURL:     "http://localhost:11434",
			EmbedModel:    "nomic-embed-text",
			GenerateModel: "llama3.1",
		},
		Catalog: CatalogConfig{Path: "data/videos.json"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path
// (skipped when absent), and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr(&c.Server.Addr, "VIDSAGE_ADDR")
	setStr(&c.Qdrant.Addr, "QDRANT_ADDR")
	setStr(&c.Qdrant.Collection, "QDRANT_COLLECTION")
	setInt(&c.Qdrant.Dims, "QDRANT_DIMS")
	setStr(&c.NATS.URL, "NATS_URL")
	setInt(&c.Chunking.TargetSize, "CHUNK_TARGET_SIZE")
	setInt(&c.Chunking.Overlap, "CHUNK_OVERLAP")
	setInt(&c.Retrieval.TopK, "RETRIEVAL_TOP_K")
	setStr(&c.Provider.Type, "PROVIDER")
	setStr(&c.Provider.OllamaURL, "OLLAMA_URL")
	setStr(&c.Provider.EmbedModel, "EMBED_MODEL")
	setStr(&c.Provider.GenerateModel, "GENERATE_MODEL")
	setStr(&c.Provider.GeminiAPIKey, "GEMINI_API_KEY")
	setStr(&c.Catalog.Path, "CATALOG_PATH")
	setStr(&c.Logging.Level, "LOG_LEVEL")
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.TargetSize <= 0 {
		return fmt.Errorf("%w: chunk target size must be positive", domain.ErrInvalidConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.TargetSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)",
			domain.ErrInvalidConfig, c.Chunking.Overlap, c.Chunking.TargetSize)
	}
	if c.Qdrant.Dims <= 0 {
		return fmt.Errorf("%w: embedding dims must be positive", domain.ErrInvalidConfig)
	}
	switch c.Provider.Type {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidConfig, c.Provider.Type)
	}
	if c.Provider.Type == "gemini" && c.Provider.GeminiAPIKey == "" {
		return fmt.Errorf("%w: gemini provider requires an api key", domain.ErrInvalidConfig)
	}
	return nil
}
