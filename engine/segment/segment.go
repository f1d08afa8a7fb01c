// Package segment splits raw transcript text into overlapping chunks at
// natural boundaries for embedding and retrieval.
package segment

import (
	"fmt"
	"strings"

	"github.com/vidsage/vidsage/engine/domain"
)

// DefaultSeparators is the boundary priority: paragraph breaks, line
// breaks, sentence ends, spaces, then raw characters as a last resort.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

const (
	// DefaultTargetSize is the target chunk length in characters.
	DefaultTargetSize = 1000
	// DefaultOverlap is the approximate shared length between
	// consecutive chunks, in characters.
	DefaultOverlap = 200
)

// Split divides text into chunks of at most targetSize characters that
// overlap by roughly overlap characters. Splitting prefers the coarsest
// separator present in a span and recurses to finer ones for oversized
// pieces, so chunks rarely break mid-word. A single unsplittable unit
// longer than targetSize is emitted as-is rather than failing.
//
// Split is pure: no I/O, deterministic for identical inputs. Empty or
// whitespace-only text yields an empty slice.
func Split(text string, targetSize, overlap int) ([]string, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("%w: target size %d must be positive", domain.ErrInvalidConfig, targetSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", domain.ErrInvalidConfig, overlap)
	}
	if overlap >= targetSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than target size %d", domain.ErrInvalidConfig, overlap, targetSize)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	s := splitter{targetSize: targetSize, overlap: overlap}
	return s.split(text, DefaultSeparators), nil
}

type splitter struct {
	targetSize int
	overlap    int
}

// split recursively divides text using the first separator from seps that
// occurs in it. Pieces that fit under targetSize are merged into chunks;
// oversized pieces recurse into the remaining, finer separators.
func (s splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var finer []string
	for i, cand := range seps {
		if cand == "" {
			sep = ""
			finer = nil
			break
		}
		if strings.Contains(text, cand) {
			sep = cand
			finer = seps[i+1:]
			break
		}
	}

	pieces := splitKeepingSeparator(text, sep)

	var chunks []string
	var fitting []string
	for _, piece := range pieces {
		if len(piece) < s.targetSize {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			chunks = append(chunks, s.merge(fitting)...)
			fitting = nil
		}
		if len(finer) == 0 {
			// Unsplittable oversize unit: emit best-effort.
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, finer)...)
		}
	}
	if len(fitting) > 0 {
		chunks = append(chunks, s.merge(fitting)...)
	}
	return chunks
}

// splitKeepingSeparator splits text on sep, attaching each separator to
// the start of the following piece so that concatenating pieces restores
// the original text. An empty separator splits into single runes.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

// merge greedily accumulates pieces into chunks of at most targetSize,
// then carries trailing pieces totalling about overlap characters into
// the start of the next chunk. The overlap is derived from actual split
// points, never a fixed arithmetic offset.
func (s splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
			chunks = append(chunks, doc)
		}
	}

	for _, piece := range pieces {
		if total+len(piece) > s.targetSize && len(window) > 0 {
			flush()
			// Drop leading pieces until the retained tail fits
			// within the overlap and leaves room for the new piece.
			for total > s.overlap || (total+len(piece) > s.targetSize && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += len(piece)
	}
	flush()
	return chunks
}
