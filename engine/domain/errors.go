// Package domain holds the error taxonomy shared by all engine packages.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match with errors.Is; packages wrap these with
// fmt.Errorf("%w: ...") to preserve the raw backend message for diagnostics.
var (
	// ErrInvalidConfig reports bad startup parameters, e.g. a chunk
	// overlap that is not smaller than the chunk target size. Fatal.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotAccessible reports a video that exists-check failed for:
	// bad URL, unknown id, or a removed video.
	ErrNotAccessible = errors.New("video not accessible")

	// ErrNoContent reports a reachable video with no usable transcript.
	ErrNoContent = errors.New("no transcript available")

	// ErrRateLimited is a subkind of transcript fetch failure: the
	// source is throttling us. The caller should wait, not retry hot.
	ErrRateLimited = errors.New("rate limited by video source")

	// ErrForbidden is a subkind of transcript fetch failure: private,
	// age-restricted, or region-blocked content.
	ErrForbidden = errors.New("access to video forbidden")

	// ErrStoreUnavailable reports the vector backend being down or the
	// adapter not yet initialized. Fatal to the calling operation.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrEmbeddingBackend reports an embedding API failure (quota,
	// auth, network). Propagated, never swallowed.
	ErrEmbeddingBackend = errors.New("embedding backend error")

	// ErrGenerationBackend reports a generation API failure.
	ErrGenerationBackend = errors.New("generation backend error")

	// ErrCatalogCorrupt marks a catalog file that failed to parse. The
	// catalog self-heals by reinitializing; this is logged, not returned.
	ErrCatalogCorrupt = errors.New("catalog file corrupted")

	// ErrEmptyQuestion reports a blank question on the query path.
	ErrEmptyQuestion = errors.New("question is empty")
)

// StageError tags a pipeline failure with the stage it happened in, so
// callers see "store_chunks: embedding backend error: ..." rather than a
// bare cause.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the stage name.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Stage returns the stage name of err if it is a StageError, else "".
func Stage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
