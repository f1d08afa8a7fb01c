// Command worker consumes queued ingest jobs from NATS, runs them
// through the ingestion pipeline with retries, and dead-letters jobs
// that keep failing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/vidsage/vidsage/engine/answer"
	"github.com/vidsage/vidsage/engine/catalog"
	"github.com/vidsage/vidsage/engine/pipeline"
	"github.com/vidsage/vidsage/engine/retrieve"
	"github.com/vidsage/vidsage/engine/scraper"
	"github.com/vidsage/vidsage/engine/semantic"
	"github.com/vidsage/vidsage/pkg/config"
	"github.com/vidsage/vidsage/pkg/fn"
	"github.com/vidsage/vidsage/pkg/gemini"
	"github.com/vidsage/vidsage/pkg/natsutil"
	"github.com/vidsage/vidsage/pkg/ollama"
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

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var embedder semantic.Embedder
	var gen answer.Generator
	switch cfg.Provider.Type {
	case "gemini":
		client, err := gemini.New(ctx, cfg.Provider.GeminiAPIKey, cfg.Provider.GenerateModel, cfg.Provider.EmbedModel)
		if err != nil {
			return err
		}
		embedder, gen = client, client
	default:
		embedder = ollama.NewEmbedClient(cfg.Provider.OllamaURL, cfg.Provider.EmbedModel)
		gen = ollama.NewGenerateClient(cfg.Provider.OllamaURL, cfg.Provider.GenerateModel)
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
		Synth:      answer.New(gen, answer.DefaultOptions(), logger),
		TargetSize: cfg.Chunking.TargetSize,
		Overlap:    cfg.Chunking.Overlap,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Drain()

	sub, err := natsutil.Subscribe(nc, pipeline.IngestSubject, func(ctx context.Context, job pipeline.IngestJob) {
		logger.Info("ingest job received", "url", job.URL)

		r := fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[pipeline.IngestReport] {
			return fn.FromPair(svc.Ingest(ctx, job.URL, job.Title))
		})
		report, err := r.Unwrap()
		if err != nil {
			logger.Error("ingest job failed, dead-lettering", "url", job.URL, "err", err)
			dlq := pipeline.DLQMessage{Job: job, Error: err.Error(), Retries: pipeline.MaxRetries}
			if perr := natsutil.Publish(ctx, nc, pipeline.DLQSubject, dlq); perr != nil {
				logger.Error("dlq publish failed", "err", perr)
			}
			return
		}
		logger.Info("ingest job done",
			"video_id", report.VideoID,
			"chunks", report.ChunkCount,
			"already_exists", report.AlreadyExists)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", pipeline.IngestSubject, err)
	}
	defer sub.Unsubscribe()

	logger.Info("worker started", "subject", pipeline.IngestSubject, "nats", cfg.NATS.URL)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}
