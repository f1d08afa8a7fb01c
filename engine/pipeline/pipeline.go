// Package pipeline orchestrates the full video lifecycle: URL to stored
// chunks on the ingest side, question to grounded answer on the query
// side. All cross-package coordination lives here; the leaf packages
// never call each other.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vidsage/vidsage/engine/answer"
	"github.com/vidsage/vidsage/engine/catalog"
	"github.com/vidsage/vidsage/engine/domain"
	"github.com/vidsage/vidsage/engine/scraper"
	"github.com/vidsage/vidsage/engine/segment"
	"github.com/vidsage/vidsage/engine/semantic"
	"github.com/vidsage/vidsage/pkg/fn"
)

// minTranscriptLength rejects transcripts too short to carry content.
const minTranscriptLength = 50

// Fetcher retrieves a transcript for a video ID.
type Fetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// ChunkStore is the vector-store surface the pipeline needs.
type ChunkStore interface {
	AddItemChunks(ctx context.Context, videoID, videoURL, title string, chunks []string) (int, error)
	DeleteItem(ctx context.Context, videoID string) (int, error)
	Stats(ctx context.Context) (semantic.Stats, error)
}

// Retriever fetches context chunks for a question. k <= 0 selects the
// retriever's configured count.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int, videoID string) ([]semantic.RetrievedChunk, error)
}

// Synthesizer produces a grounded answer from chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, chunks []semantic.RetrievedChunk) (answer.Result, error)
}

// Deps holds the external dependencies of the Service.
type Deps struct {
	Fetcher    Fetcher
	Store      ChunkStore
	Catalog    *catalog.Catalog
	Retriever  Retriever
	Synth      Synthesizer
	TargetSize int
	Overlap    int
	Logger     *slog.Logger
}

// Service is the orchestrator. Safe for concurrent use; ingests of the
// same video are serialized, different videos proceed in parallel.
type Service struct {
	deps  Deps
	locks keyedLocks
}

// New creates a Service. Zero chunking params select the segmenter
// defaults.
func New(deps Deps) (*Service, error) {
	if deps.TargetSize == 0 {
		deps.TargetSize = segment.DefaultTargetSize
	}
	if deps.Overlap == 0 {
		deps.Overlap = segment.DefaultOverlap
	}
	if deps.Overlap >= deps.TargetSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than target size %d",
			domain.ErrInvalidConfig, deps.Overlap, deps.TargetSize)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}, nil
}

// IngestReport describes one completed ingest.
type IngestReport struct {
	VideoID          string `json:"video_id"`
	VideoURL         string `json:"video_url"`
	Title            string `json:"title"`
	ChunkCount       int    `json:"chunk_count"`
	TranscriptLength int    `json:"transcript_length"`
	AlreadyExists    bool   `json:"already_exists"`
}

// fetched carries intermediate ingest state between stages.
type fetched struct {
	videoID    string
	videoURL   string
	title      string
	transcript string
	chunks     []string
	added      int
}

// Ingest runs a video end to end: resolve the ID, fetch the transcript,
// segment, embed and store, then record the catalog entry. A video whose
// chunks are already stored skips straight to the catalog update and is
// reported with AlreadyExists.
func (s *Service) Ingest(ctx context.Context, rawURL, title string) (IngestReport, error) {
	videoID, err := scraper.ExtractVideoID(rawURL)
	if err != nil {
		return IngestReport{}, domain.NewStageError("extract_video_id", err)
	}

	unlock := s.locks.lock(videoID)
	defer unlock()

	if title == "" {
		title = "Video " + videoID
	}

	init := fetched{
		videoID:  videoID,
		videoURL: "https://www.youtube.com/watch?v=" + videoID,
		title:    title,
	}

	run := fn.Pipeline(
		stage("fetch_transcript", s.fetchTranscript),
		stage("segment", s.segmentTranscript),
		stage("store_chunks", s.storeChunks),
	)

	f, err := run(ctx, init).Unwrap()
	if err != nil {
		return IngestReport{}, err
	}

	report := IngestReport{
		VideoID:          f.videoID,
		VideoURL:         f.videoURL,
		Title:            f.title,
		ChunkCount:       f.added,
		TranscriptLength: len(f.transcript),
		AlreadyExists:    f.added == 0,
	}
	if report.AlreadyExists {
		// The fresh segmentation can disagree with what was stored if
		// the chunking config changed since the original ingest, so the
		// prior catalog entry's count wins when one exists.
		if prev, ok := s.deps.Catalog.Get(f.videoID); ok {
			report.ChunkCount = prev.ChunkCount
		} else {
			report.ChunkCount = len(f.chunks)
		}
	}

	// The catalog entry is refreshed even on a dedup skip, so a video
	// ingested before the catalog existed still gets listed.
	err = s.deps.Catalog.AddOrUpdate(catalog.Item{
		VideoID:          f.videoID,
		VideoURL:         f.videoURL,
		Title:            f.title,
		ChunkCount:       report.ChunkCount,
		TranscriptLength: len(f.transcript),
	})
	if err != nil {
		return IngestReport{}, domain.NewStageError("record_catalog", err)
	}

	s.deps.Logger.Info("video ingested",
		"video_id", f.videoID,
		"chunks", report.ChunkCount,
		"transcript_chars", len(f.transcript),
		"already_exists", report.AlreadyExists)
	return report, nil
}

func (s *Service) fetchTranscript(ctx context.Context, f fetched) fn.Result[fetched] {
	text, err := s.deps.Fetcher.Fetch(ctx, f.videoID)
	if err != nil {
		return fn.Err[fetched](err)
	}
	if len(text) < minTranscriptLength {
		return fn.Err[fetched](fmt.Errorf("%w: transcript is only %d characters", domain.ErrNoContent, len(text)))
	}
	f.transcript = text
	return fn.Ok(f)
}

func (s *Service) segmentTranscript(_ context.Context, f fetched) fn.Result[fetched] {
	chunks, err := segment.Split(f.transcript, s.deps.TargetSize, s.deps.Overlap)
	if err != nil {
		return fn.Err[fetched](err)
	}
	if len(chunks) == 0 {
		return fn.Err[fetched](fmt.Errorf("%w: segmentation produced no chunks", domain.ErrNoContent))
	}
	f.chunks = chunks
	return fn.Ok(f)
}

func (s *Service) storeChunks(ctx context.Context, f fetched) fn.Result[fetched] {
	added, err := s.deps.Store.AddItemChunks(ctx, f.videoID, f.videoURL, f.title, f.chunks)
	if err != nil {
		return fn.Err[fetched](err)
	}
	f.added = added
	return fn.Ok(f)
}

// stage wraps a step with an OTel span and tags failures with the stage
// name.
func stage(name string, step fn.Stage[fetched, fetched]) fn.Stage[fetched, fetched] {
	traced := fn.TracedStage(name, step)
	return func(ctx context.Context, f fetched) fn.Result[fetched] {
		r := traced(ctx, f)
		if r.IsErr() {
			_, err := r.Unwrap()
			return fn.Err[fetched](domain.NewStageError(name, err))
		}
		return r
	}
}

// Ask answers a question over the stored transcripts. An optional
// videoID scopes retrieval to one video; k <= 0 retrieves the default
// number of context chunks.
func (s *Service) Ask(ctx context.Context, question string, k int, videoID string) (answer.Result, error) {
	if strings.TrimSpace(question) == "" {
		return answer.Result{}, domain.ErrEmptyQuestion
	}

	chunks, err := s.deps.Retriever.Retrieve(ctx, question, k, videoID)
	if err != nil {
		return answer.Result{}, err
	}
	return s.deps.Synth.Synthesize(ctx, question, chunks)
}

// Delete removes a video's chunks and its catalog entry, returning how
// many chunks were removed.
func (s *Service) Delete(ctx context.Context, videoID string) (int, error) {
	unlock := s.locks.lock(videoID)
	defer unlock()

	n, err := s.deps.Store.DeleteItem(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if err := s.deps.Catalog.Delete(videoID); err != nil {
		return n, err
	}
	s.deps.Logger.Info("video deleted", "video_id", videoID, "chunks_removed", n)
	return n, nil
}

// CombinedStats joins store-side and catalog-side counters.
type CombinedStats struct {
	Store   semantic.Stats `json:"store"`
	Catalog catalog.Stats  `json:"catalog"`
}

// Stats reports current corpus size from both the vector store and the
// catalog.
func (s *Service) Stats(ctx context.Context) (CombinedStats, error) {
	st, err := s.deps.Store.Stats(ctx)
	if err != nil {
		return CombinedStats{}, err
	}
	return CombinedStats{Store: st, Catalog: s.deps.Catalog.Stats()}, nil
}

// List returns the catalog entries, newest first.
func (s *Service) List() []catalog.Item {
	return s.deps.Catalog.List()
}

// keyedLocks serializes operations per video ID.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
