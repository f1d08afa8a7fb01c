package segment

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vidsage/vidsage/engine/domain"
)

// transcript builds deterministic prose of n sentences, each exactly
// width characters long including its ". " terminator.
func transcript(n, width int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		body := fmt.Sprintf("sentence %03d talks about transformers and retrieval", i)
		if len(body) > width-2 {
			body = body[:width-2]
		}
		for len(body) < width-2 {
			body += "x"
		}
		b.WriteString(body)
		b.WriteString(". ")
	}
	return strings.TrimSpace(b.String())
}

// overlapLen returns the length of the longest suffix of a that is also
// a prefix of b.
func overlapLen(a, b string) int {
	max := min(len(a), len(b))
	for n := max; n > 0; n-- {
		if strings.HasSuffix(a, b[:n]) {
			return n
		}
	}
	return 0
}

func TestSplit_OverlapNotSmallerThanSize(t *testing.T) {
	for _, overlap := range []int{100, 150} {
		_, err := Split("some text", 100, overlap)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("overlap=%d: err = %v, want ErrInvalidConfig", overlap, err)
		}
	}
}

func TestSplit_NegativeOverlap(t *testing.T) {
	if _, err := Split("some text", 100, -1); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t  \n"} {
		chunks, err := Split(text, 100, 20)
		if err != nil {
			t.Fatalf("Split(%q): %v", text, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", text, len(chunks))
		}
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	text := "One short paragraph that fits."
	chunks, err := Split(text, 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("chunks = %q", chunks)
	}
}

func TestSplit_ChunksWithinTargetSize(t *testing.T) {
	text := transcript(60, 50)
	chunks, err := Split(text, 300, 60)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 300 {
			t.Errorf("chunk %d is %d chars, exceeds target 300", i, len(c))
		}
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("alpha beta gamma delta. ", 5)
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)
	chunks, err := Split(text, len(para)+20, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if strings.Contains(c, "\n\n") {
			t.Errorf("chunk %d spans a paragraph break: %q", i, c)
		}
	}
}

func TestSplit_ChunksAreContiguousSpans(t *testing.T) {
	text := transcript(50, 50)
	chunks, err := Split(text, 400, 80)
	if err != nil {
		t.Fatal(err)
	}

	// Every chunk must appear in the source, each starting no later
	// than the previous chunk's end: nothing is dropped between them.
	prevStart, prevEnd := 0, 0
	for i, c := range chunks {
		at := strings.Index(text[prevStart:], c)
		if at < 0 {
			t.Fatalf("chunk %d not found in source after offset %d", i, prevStart)
		}
		start := prevStart + at
		if i > 0 && start > prevEnd {
			t.Errorf("gap of %d chars before chunk %d", start-prevEnd, i)
		}
		prevStart, prevEnd = start, start+len(c)
	}
	if prevEnd < len(text) {
		t.Errorf("last chunk ends at %d, source is %d chars", prevEnd, len(text))
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	text := transcript(50, 50)
	chunks, err := Split(text, 500, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected >= 3 chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		if overlapLen(chunks[i], chunks[i+1]) == 0 {
			t.Errorf("chunks %d and %d share no overlap", i, i+1)
		}
	}
}

func TestSplit_OverlapApproximatesRequested(t *testing.T) {
	// 50-char sentences, 1000/200: the merge window drops sentences
	// until exactly four (200 chars) remain to seed the next chunk.
	text := transcript(50, 50)
	chunks, err := Split(text, 1000, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected >= 2 chunks, got %d", len(chunks))
	}
	if got := overlapLen(chunks[0], chunks[1]); got < 150 {
		t.Errorf("overlap between chunk 0 and 1 is %d chars, want >= 150", got)
	}
}

func TestSplit_HugeUnsplittableWord(t *testing.T) {
	word := strings.Repeat("a", 500)
	text := "intro " + word + " outro"
	chunks, err := Split(text, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(chunks, "")
	if !strings.Contains(joined, word[:100]) {
		t.Error("oversized word content was dropped")
	}
	// The oversized word is cut at raw character level into fitting
	// chunks rather than crashing or emitting one giant chunk.
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d is %d chars, exceeds target", i, len(c))
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := transcript(30, 47)
	a, err := Split(text, 350, 70)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Split(text, 350, 70)
	if len(a) != len(b) {
		t.Fatalf("run lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
