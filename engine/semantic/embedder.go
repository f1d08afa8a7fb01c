package semantic

import "context"

// EmbedMode selects the asymmetric embedding variant. Document and query
// texts get different task prefixes on models that support them, which
// measurably improves retrieval quality.
type EmbedMode string

const (
	EmbedDocument EmbedMode = "document"
	EmbedQuery    EmbedMode = "query"
)

// Embedder turns text into vectors. Implementations must return one
// vector per input text, in input order, all with the same dimension.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error)
}
