// Package answer assembles grounded prompts from retrieved transcript
// chunks and synthesizes an answer with a text backend. The prompt pins
// the model to the supplied context and asks it to cite chunks.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vidsage/vidsage/engine/semantic"
)

// noContextAnswer is returned without any backend call when retrieval
// produced nothing to ground on.
const noContextAnswer = "I couldn't find any relevant information in the video transcripts " +
	"to answer your question. This might mean the topic isn't covered in " +
	"the available videos, or you might need to rephrase your question."

// Options configures synthesis.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// DefaultOptions returns the synthesis defaults.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   1024,
		Temperature: 0.7,
	}
}

// Result is a synthesized answer with its supporting chunks.
type Result struct {
	Answer       string                   `json:"answer"`
	Sources      []semantic.RetrievedChunk `json:"sources"`
	Model        string                   `json:"model"`
	InputTokens  int                      `json:"input_tokens"`
	OutputTokens int                      `json:"output_tokens"`
	NoContext    bool                     `json:"no_context_found"`
}

// Synthesizer turns retrieved chunks plus a question into an answer.
type Synthesizer struct {
	gen    Generator
	opts   Options
	logger *slog.Logger
}

// New creates a Synthesizer. A nil logger gets slog.Default.
func New(gen Generator, opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{gen: gen, opts: opts, logger: logger}
}

// Synthesize builds the grounded prompt and calls the backend. With no
// chunks it returns the canned no-context answer and never touches the
// backend.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []semantic.RetrievedChunk) (Result, error) {
	if len(chunks) == 0 {
		return Result{Answer: noContextAnswer, NoContext: true}, nil
	}

	prompt := BuildPrompt(question, chunks)
	gen, err := s.gen.Generate(ctx, prompt, s.opts.MaxTokens, s.opts.Temperature)
	if err != nil {
		return Result{}, err
	}

	s.logger.Debug("answer synthesized",
		"chunks", len(chunks),
		"model", gen.Model,
		"input_tokens", gen.InputTokens,
		"output_tokens", gen.OutputTokens)

	return Result{
		Answer:       gen.Text,
		Sources:      chunks,
		Model:        gen.Model,
		InputTokens:  gen.InputTokens,
		OutputTokens: gen.OutputTokens,
	}, nil
}

// BuildPrompt renders the grounded prompt: instructions, then the
// numbered context blocks, then the user's question verbatim at the end.
func BuildPrompt(question string, chunks []semantic.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		title := c.Title
		if title == "" {
			title = "Unknown Video"
		}
		parts[i] = fmt.Sprintf("[Chunk %d]\nVideo: %s\nChunk Index: %d\nContent: %s\n",
			i+1, title, c.Ordinal, c.Text)
	}
	contextText := strings.Join(parts, "\n---\n\n")

	var b strings.Builder
	b.WriteString("You are a helpful AI assistant that answers questions about YouTube videos based on their transcripts.\n\n")
	b.WriteString("CONTEXT FROM VIDEO TRANSCRIPTS:\n")
	b.WriteString("================================\n")
	b.WriteString(contextText)
	b.WriteString("\n\n================================\n\n")
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Answer the user's question ONLY based on the context provided above\n")
	b.WriteString("2. If the context doesn't contain enough information to answer the question, say so clearly\n")
	b.WriteString("3. When possible, reference which chunk(s) your answer comes from (e.g., \"According to Chunk 2...\")\n")
	b.WriteString("4. Be concise but complete in your answer\n")
	b.WriteString("5. If multiple chunks provide relevant information, synthesize them into a coherent response\n")
	b.WriteString("6. Do NOT use information from your general knowledge that isn't in the provided context\n")
	b.WriteString("7. If the user asks about something not covered in the transcripts, politely state that the information isn't available in the provided videos\n\n")
	b.WriteString("USER QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nANSWER:")
	return b.String()
}
