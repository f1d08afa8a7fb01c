// Package gemini implements answer.Generator and semantic.Embedder on
// the Gemini API, for deployments without a local Ollama instance.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/vidsage/vidsage/engine/answer"
	"github.com/vidsage/vidsage/engine/domain"
	"github.com/vidsage/vidsage/engine/semantic"
)

// Client calls the Gemini API for generation and embedding.
type Client struct {
	client     *genai.Client
	model      string
	embedModel string
}

// New creates a Gemini client. Both model names are required when the
// corresponding capability is used.
func New(ctx context.Context, apiKey, model, embedModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", domain.ErrInvalidConfig)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Client{client: c, model: model, embedModel: embedModel}, nil
}

// Generate implements answer.Generator.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (answer.Generation, error) {
	mt := int32(maxTokens)
	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			MaxOutputTokens: mt,
			Temperature:     &temperature,
		},
	)
	if err != nil {
		return answer.Generation{}, fmt.Errorf("%w: %v", domain.ErrGenerationBackend, err)
	}

	gen := answer.Generation{
		Text:  strings.TrimSpace(resp.Text()),
		Model: c.model,
	}
	if u := resp.UsageMetadata; u != nil {
		gen.InputTokens = int(u.PromptTokenCount)
		gen.OutputTokens = int(u.CandidatesTokenCount)
	}
	return gen, nil
}

// EmbedBatch implements semantic.Embedder.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, mode semantic.EmbedMode) ([][]float32, error) {
	taskType := "RETRIEVAL_DOCUMENT"
	if mode == semantic.EmbedQuery {
		taskType = "RETRIEVAL_QUERY"
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: t}}}
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingBackend, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", domain.ErrEmbeddingBackend, len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
