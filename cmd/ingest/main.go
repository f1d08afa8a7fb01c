// Command ingest adds YouTube videos to the knowledge base from the
// command line. URLs are ingested directly, or published to the worker
// queue with -publish.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/vidsage/vidsage/engine/answer"
	"github.com/vidsage/vidsage/engine/catalog"
	"github.com/vidsage/vidsage/engine/pipeline"
	"github.com/vidsage/vidsage/engine/retrieve"
	"github.com/vidsage/vidsage/engine/scraper"
	"github.com/vidsage/vidsage/engine/semantic"
	"github.com/vidsage/vidsage/pkg/config"
	"github.com/vidsage/vidsage/pkg/gemini"
	"github.com/vidsage/vidsage/pkg/natsutil"
	"github.com/vidsage/vidsage/pkg/ollama"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	file := flag.String("file", "", "file with one video URL per line")
	publish := flag.Bool("publish", false, "queue jobs on NATS instead of ingesting directly")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	urls := flag.Args()
	if *file != "" {
		fromFile, err := readURLs(*file)
		if err != nil {
			logger.Error("read url file", "err", err)
			os.Exit(1)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest [-config path] [-publish] [-file urls.txt] [url ...]")
		os.Exit(2)
	}

	ctx := context.Background()

	if *publish {
		if err := publishJobs(ctx, cfg, urls, logger); err != nil {
			logger.Error("publish failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := ingestDirect(ctx, cfg, urls, logger); err != nil {
		os.Exit(1)
	}
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func publishJobs(ctx context.Context, cfg *config.Config, urls []string, logger *slog.Logger) error {
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Drain()

	for _, u := range urls {
		if err := natsutil.Publish(ctx, nc, pipeline.IngestSubject, pipeline.IngestJob{URL: u}); err != nil {
			return err
		}
		logger.Info("job queued", "url", u)
	}
	return nc.Flush()
}

func ingestDirect(ctx context.Context, cfg *config.Config, urls []string, logger *slog.Logger) error {
	var embedder semantic.Embedder
	var gen answer.Generator
	switch cfg.Provider.Type {
	case "gemini":
		client, err := gemini.New(ctx, cfg.Provider.GeminiAPIKey, cfg.Provider.GenerateModel, cfg.Provider.EmbedModel)
		if err != nil {
			logger.Error("gemini client", "err", err)
			return err
		}
		embedder, gen = client, client
	default:
		embedder = ollama.NewEmbedClient(cfg.Provider.OllamaURL, cfg.Provider.EmbedModel)
		gen = ollama.NewGenerateClient(cfg.Provider.OllamaURL, cfg.Provider.GenerateModel)
	}

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection, embedder, cfg.Qdrant.Dims)
	if err != nil {
		logger.Error("qdrant connect", "err", err)
		return err
	}
	defer store.Close()
	if err := store.Initialize(ctx); err != nil {
		logger.Error("qdrant initialize", "err", err)
		return err
	}

	cat, err := catalog.Open(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Error("catalog open", "err", err)
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
		logger.Error("pipeline", "err", err)
		return err
	}

	var failed int
	for _, u := range urls {
		report, err := svc.Ingest(ctx, u, "")
		if err != nil {
			logger.Error("ingest failed", "url", u, "err", err)
			failed++
			continue
		}
		if report.AlreadyExists {
			fmt.Printf("skipped %s (already ingested, %d chunks)\n", report.VideoID, report.ChunkCount)
		} else {
			fmt.Printf("ingested %s: %d chunks from %d chars\n", report.VideoID, report.ChunkCount, report.TranscriptLength)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d videos failed", failed, len(urls))
	}
	return nil
}
