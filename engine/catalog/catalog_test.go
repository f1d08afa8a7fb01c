package catalog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vidsage/vidsage/engine/domain"
)

func openTemp(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "videos.json"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

func TestAddOrUpdateAndGet(t *testing.T) {
	c := openTemp(t)

	err := c.AddOrUpdate(Item{VideoID: "vid1", Title: "First", ChunkCount: 3, TranscriptLength: 2500})
	if err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}

	got, ok := c.Get("vid1")
	if !ok {
		t.Fatal("Get: entry missing")
	}
	if got.Title != "First" || got.ChunkCount != 3 {
		t.Errorf("unexpected item: %+v", got)
	}
	if got.IngestedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestAddOrUpdate_PreservesIngestedAt(t *testing.T) {
	c := openTemp(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return base }

	if err := c.AddOrUpdate(Item{VideoID: "vid1", Title: "v1"}); err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return base.Add(time.Hour) }
	if err := c.AddOrUpdate(Item{VideoID: "vid1", Title: "v2"}); err != nil {
		t.Fatal(err)
	}

	got, _ := c.Get("vid1")
	if !got.IngestedAt.Equal(base) {
		t.Errorf("IngestedAt = %v, want original %v", got.IngestedAt, base)
	}
	if !got.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, base.Add(time.Hour))
	}
	if got.Title != "v2" {
		t.Errorf("Title = %q, want updated value", got.Title)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	c, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddOrUpdate(Item{VideoID: "vid1", Title: "First", ChunkCount: 2}); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Get("vid1")
	if !ok || got.ChunkCount != 2 {
		t.Errorf("entry did not survive reopen: %+v ok=%v", got, ok)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open on corrupt file: %v", err)
	}
	if len(c.List()) != 0 {
		t.Error("corrupt catalog should start empty")
	}
	// And it must still be writable afterwards.
	if err := c.AddOrUpdate(Item{VideoID: "vid1"}); err != nil {
		t.Fatalf("AddOrUpdate after corruption: %v", err)
	}
}

func TestCorruptFileLogsSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	if _, err := Open(path, logger); err != nil {
		t.Fatalf("Open on corrupt file: %v", err)
	}
	if !strings.Contains(buf.String(), domain.ErrCatalogCorrupt.Error()) {
		t.Errorf("warning should carry the corruption sentinel, got: %s", buf.String())
	}
}

func TestListOrder(t *testing.T) {
	c := openTemp(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		tick := base.Add(time.Duration(i) * time.Minute)
		c.now = func() time.Time { return tick }
		if err := c.AddOrUpdate(Item{VideoID: id}); err != nil {
			t.Fatal(err)
		}
	}

	got := c.List()
	if len(got) != 2 {
		t.Fatalf("List = %d items, want 2", len(got))
	}
	if got[0].VideoID != "newer" {
		t.Errorf("List[0] = %q, want newest first", got[0].VideoID)
	}
}

func TestDelete(t *testing.T) {
	c := openTemp(t)
	if err := c.AddOrUpdate(Item{VideoID: "vid1"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete("vid1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get("vid1"); ok {
		t.Error("entry still present after delete")
	}
	if err := c.Delete("missing"); err != nil {
		t.Errorf("deleting an absent id should be a no-op, got %v", err)
	}
}

func TestStats(t *testing.T) {
	c := openTemp(t)
	c.AddOrUpdate(Item{VideoID: "a", ChunkCount: 3, TranscriptLength: 1000})
	c.AddOrUpdate(Item{VideoID: "b", ChunkCount: 5, TranscriptLength: 2500})

	s := c.Stats()
	if s.TotalVideos != 2 || s.TotalChunks != 8 || s.TotalTranscripts != 3500 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.AvgChunks != 4 {
		t.Errorf("AvgChunks = %v, want 4", s.AvgChunks)
	}
}

func TestStats_EmptyCatalog(t *testing.T) {
	s := openTemp(t).Stats()
	if s.TotalVideos != 0 || s.TotalChunks != 0 || s.AvgChunks != 0 {
		t.Errorf("empty catalog stats should be all zero: %+v", s)
	}
}
