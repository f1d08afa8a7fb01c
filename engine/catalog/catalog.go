// Package catalog tracks which videos have been ingested. State lives
// in a single JSON file so the catalog survives restarts and stays
// human-inspectable.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vidsage/vidsage/engine/domain"
)

// Item is one catalog entry.
type Item struct {
	VideoID          string    `json:"video_id"`
	VideoURL         string    `json:"video_url"`
	Title            string    `json:"title"`
	ChunkCount       int       `json:"chunk_count"`
	TranscriptLength int       `json:"transcript_length"`
	IngestedAt       time.Time `json:"ingested_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Stats summarizes the catalog.
type Stats struct {
	TotalVideos      int     `json:"total_videos"`
	TotalChunks      int     `json:"total_chunks"`
	TotalTranscripts int     `json:"total_transcript_chars"`
	AvgChunks        float64 `json:"avg_chunks_per_video"`
}

// Catalog is a file-backed video registry. Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	path   string
	items  map[string]Item
	logger *slog.Logger
	now    func() time.Time
}

// Open loads the catalog at path, creating parent directories as needed.
// A corrupt file is logged and replaced with an empty catalog rather than
// blocking startup.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create dir for %s: %w", path, err)
	}

	c := &Catalog{
		path:   path,
		items:  make(map[string]Item),
		logger: logger,
		now:    time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &c.items); err != nil {
		logger.Warn("starting empty", "path", path,
			"err", fmt.Errorf("%w: %v", domain.ErrCatalogCorrupt, err))
		c.items = make(map[string]Item)
	}
	return c, nil
}

// AddOrUpdate records or refreshes a video entry. IngestedAt is preserved
// across updates; UpdatedAt always moves.
func (c *Catalog) AddOrUpdate(item Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	if prev, ok := c.items[item.VideoID]; ok {
		item.IngestedAt = prev.IngestedAt
	} else {
		item.IngestedAt = now
	}
	item.UpdatedAt = now
	c.items[item.VideoID] = item
	return c.save()
}

// Get returns the entry for a video ID.
func (c *Catalog) Get(videoID string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[videoID]
	return item, ok
}

// List returns all entries, newest ingests first.
func (c *Catalog) List() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IngestedAt.Equal(out[j].IngestedAt) {
			return out[i].IngestedAt.After(out[j].IngestedAt)
		}
		return out[i].VideoID < out[j].VideoID
	})
	return out
}

// Delete removes an entry. Deleting an absent ID is a no-op.
func (c *Catalog) Delete(videoID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[videoID]; !ok {
		return nil
	}
	delete(c.items, videoID)
	return c.save()
}

// Stats aggregates the catalog counters.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Stats
	s.TotalVideos = len(c.items)
	for _, item := range c.items {
		s.TotalChunks += item.ChunkCount
		s.TotalTranscripts += item.TranscriptLength
	}
	if s.TotalVideos > 0 {
		s.AvgChunks = float64(s.TotalChunks) / float64(s.TotalVideos)
	}
	return s
}

// save writes the catalog atomically: temp file in the same directory,
// then rename. Callers hold the write lock.
func (c *Catalog) save() error {
	data, err := json.MarshalIndent(c.items, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("catalog: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("catalog: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("catalog: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("catalog: rename %s: %w", c.path, err)
	}
	return nil
}
