// Command chat is an interactive terminal client: type a question, get
// an answer grounded in the ingested transcripts.
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

	"github.com/vidsage/vidsage/engine/answer"
	"github.com/vidsage/vidsage/engine/catalog"
	"github.com/vidsage/vidsage/engine/pipeline"
	"github.com/vidsage/vidsage/engine/retrieve"
	"github.com/vidsage/vidsage/engine/scraper"
	"github.com/vidsage/vidsage/engine/semantic"
	"github.com/vidsage/vidsage/pkg/config"
	"github.com/vidsage/vidsage/pkg/gemini"
	"github.com/vidsage/vidsage/pkg/ollama"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	videoID := flag.String("video", "", "restrict answers to one video id")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx := context.Background()

	var embedder semantic.Embedder
	var gen answer.Generator
	switch cfg.Provider.Type {
	case "gemini":
		client, err := gemini.New(ctx, cfg.Provider.GeminiAPIKey, cfg.Provider.GenerateModel, cfg.Provider.EmbedModel)
		if err != nil {
			logger.Error("gemini client", "err", err)
			os.Exit(1)
		}
		embedder, gen = client, client
	default:
		embedder = ollama.NewEmbedClient(cfg.Provider.OllamaURL, cfg.Provider.EmbedModel)
		gen = ollama.NewGenerateClient(cfg.Provider.OllamaURL, cfg.Provider.GenerateModel)
	}

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection, embedder, cfg.Qdrant.Dims)
	if err != nil {
		logger.Error("qdrant connect", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Initialize(ctx); err != nil {
		logger.Error("qdrant initialize", "err", err)
		os.Exit(1)
	}

	cat, err := catalog.Open(cfg.Catalog.Path, logger)
	if err != nil {
		logger.Error("catalog open", "err", err)
		os.Exit(1)
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
		os.Exit(1)
	}

	if items := svc.List(); len(items) > 0 {
		fmt.Printf("%d videos in the knowledge base:\n", len(items))
		for _, item := range items {
			fmt.Printf("  %s  %s (%d chunks)\n", item.VideoID, item.Title, item.ChunkCount)
		}
	} else {
		fmt.Println("The knowledge base is empty. Ingest videos first with the ingest command.")
	}
	fmt.Println("Ask a question, or type 'quit' to exit.")

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !sc.Scan() {
			break
		}
		q := strings.TrimSpace(sc.Text())
		if q == "" {
			continue
		}
		if q == "quit" || q == "exit" {
			break
		}

		res, err := svc.Ask(ctx, q, 0, *videoID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}

		fmt.Println("\n" + res.Answer)
		if len(res.Sources) > 0 {
			fmt.Println("\nSources:")
			for i, s := range res.Sources {
				fmt.Printf("  [%d] %s (chunk %d, distance %.3f)\n", i+1, s.Title, s.Ordinal, s.Distance)
			}
		}
	}
}
