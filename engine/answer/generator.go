package answer

import "context"

// Generation is one completion from a text backend.
type Generation struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Generator produces a completion for a fully assembled prompt.
// Implementations wrap a concrete backend (Ollama, Gemini).
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (Generation, error)
}
