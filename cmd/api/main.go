// Package main implements the vidsage API server: video ingestion,
// transcript chat, catalog listing, and operational endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vidsage/vidsage/engine/answer"
	"github.com/vidsage/vidsage/engine/catalog"
	"github.com/vidsage/vidsage/engine/domain"
	"github.com/vidsage/vidsage/engine/pipeline"
	"github.com/vidsage/vidsage/engine/retrieve"
	"github.com/vidsage/vidsage/engine/scraper"
	"github.com/vidsage/vidsage/engine/semantic"
	"github.com/vidsage/vidsage/pkg/config"
	"github.com/vidsage/vidsage/pkg/gemini"
	"github.com/vidsage/vidsage/pkg/metrics"
	"github.com/vidsage/vidsage/pkg/mid"
	"github.com/vidsage/vidsage/pkg/ollama"
	"github.com/vidsage/vidsage/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// buildProviders returns the embedder and generator for the configured
// backend. The generator is wrapped in a circuit breaker either way.
func buildProviders(ctx context.Context, cfg *config.Config) (semantic.Embedder, answer.Generator, error) {
	var (
		embedder semantic.Embedder
		gen      answer.Generator
	)
	switch cfg.Provider.Type {
	case "gemini":
		client, err := gemini.New(ctx, cfg.Provider.GeminiAPIKey, cfg.Provider.GenerateModel, cfg.Provider.EmbedModel)
		if err != nil {
			return nil, nil, err
		}
		embedder, gen = client, client
	default:
		embedder = ollama.NewEmbedClient(cfg.Provider.OllamaURL, cfg.Provider.EmbedModel)
		gen = ollama.NewGenerateClient(cfg.Provider.OllamaURL, cfg.Provider.GenerateModel)
	}
	return embedder, resilience.GuardGenerator(nil, gen), nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, generator, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection, embedder, cfg.Qdrant.Dims)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Initialize(ctx); err != nil {
		return err
	}

	cat, err := catalog.Open(cfg.Catalog.Path, logger)
	if err != nil {
		return err
	}

	svc, err := pipeline.New(pipeline.Deps{
		Fetcher:    scraper.NewFetcher(nil),
		Store:      store,
		Catalog:    cat,
		Retriever:  retrieve.New(store, cfg.Retrieval.TopK),
		Synth:      answer.New(generator, answer.DefaultOptions(), logger),
		TargetSize: cfg.Chunking.TargetSize,
		Overlap:    cfg.Chunking.Overlap,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	reg := metrics.New()
	srv := newServer(svc, reg, logger)

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", cfg.Server.Addr, "provider", cfg.Provider.Type)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

// newServer wires the HTTP routes and middleware.
func newServer(svc *pipeline.Service, reg *metrics.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/videos", handleIngest(svc, reg, logger))
	mux.HandleFunc("GET /api/videos", handleList(svc))
	mux.HandleFunc("DELETE /api/videos/{id}", handleDelete(svc, logger))
	mux.HandleFunc("POST /api/chat", handleChat(svc, reg, logger))
	mux.HandleFunc("GET /api/stats", handleStats(svc, logger))
	mux.Handle("GET /metrics", reg.Handler())

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.CORS("*"),
		mid.OTel("vidsage-api"),
	)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// IngestRequest is the JSON body for POST /api/videos.
type IngestRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

func handleIngest(svc *pipeline.Service, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}

		start := time.Now()
		report, err := svc.Ingest(r.Context(), req.URL, req.Title)
		if err != nil {
			logger.Error("ingest failed", "url", req.URL, "stage", domain.Stage(err), "err", err)
			writeError(w, statusFor(err), err.Error())
			return
		}
		reg.Counter("ingests_total", "Completed video ingests").Inc()
		reg.Histogram("ingest_seconds", "Ingest duration", nil).Since(start)

		status := http.StatusCreated
		if report.AlreadyExists {
			status = http.StatusOK
		}
		writeJSON(w, status, report)
	}
}

func handleList(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"videos": svc.List()})
	}
}

func handleDelete(svc *pipeline.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		n, err := svc.Delete(r.Context(), id)
		if err != nil {
			logger.Error("delete failed", "video_id", id, "err", err)
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"video_id": id, "chunks_removed": n})
	}
}

// ChatRequest is the JSON body for POST /api/chat. K is the number of
// context chunks to retrieve; zero or omitted uses the server default.
type ChatRequest struct {
	Question string `json:"question"`
	VideoID  string `json:"video_id,omitempty"`
	K        int    `json:"k,omitempty"`
}

func handleChat(svc *pipeline.Service, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		start := time.Now()
		res, err := svc.Ask(r.Context(), req.Question, req.K, req.VideoID)
		if err != nil {
			logger.Error("chat failed", "err", err)
			writeError(w, statusFor(err), err.Error())
			return
		}
		reg.Counter("chats_total", "Answered questions").Inc()
		reg.Histogram("chat_seconds", "Chat duration", nil).Since(start)

		writeJSON(w, http.StatusOK, res)
	}
}

func handleStats(svc *pipeline.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			logger.Error("stats failed", "err", err)
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion),
		errors.Is(err, domain.ErrNotAccessible),
		errors.Is(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrEmbeddingBackend),
		errors.Is(err, domain.ErrGenerationBackend),
		errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
