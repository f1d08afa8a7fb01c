// Package retrieve turns a user question into the ranked context chunks
// the answer layer will ground on.
package retrieve

import (
	"context"
	"strings"

	"github.com/vidsage/vidsage/engine/domain"
	"github.com/vidsage/vidsage/engine/semantic"
)

// DefaultTopK is the number of chunks retrieved when the caller does not
// ask for a specific count.
const DefaultTopK = 5

// Searcher is the vector-store surface the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, videoID string) ([]semantic.RetrievedChunk, error)
}

// Retriever fetches the most relevant chunks for a question.
type Retriever struct {
	store Searcher
	topK  int
}

// New creates a Retriever. topK <= 0 selects DefaultTopK.
func New(store Searcher, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, topK: topK}
}

// Retrieve returns up to k chunks for the question, closest first.
// k <= 0 selects the retriever's configured count. An optional videoID
// scopes retrieval to one video. A blank question is rejected before
// touching any backend.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int, videoID string) ([]semantic.RetrievedChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if k <= 0 {
		k = r.topK
	}
	return r.store.Search(ctx, question, k, videoID)
}
