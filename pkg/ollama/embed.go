// Package ollama implements the semantic.Embedder and answer.Generator
// interfaces on top of Ollama's HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vidsage/vidsage/engine/domain"
	"github.com/vidsage/vidsage/engine/semantic"
)

// Task prefixes for asymmetric embedding models such as nomic-embed-text.
const (
	documentPrefix = "search_document: "
	queryPrefix    = "search_query: "
)

// EmbedClient embeds text through Ollama's /api/embeddings endpoint.
type EmbedClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewEmbedClient creates an Ollama embedding client.
func NewEmbedClient(baseURL, model string) *EmbedClient {
	return &EmbedClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type embedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResp struct {
	Embedding []float64 `json:"embedding"`
}

func (c *EmbedClient) embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(embedReq{Model: c.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrEmbeddingBackend, resp.StatusCode)
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrEmbeddingBackend, err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch implements semantic.Embedder. The mode selects the task
// prefix prepended to each text.
func (c *EmbedClient) EmbedBatch(ctx context.Context, texts []string, mode semantic.EmbedMode) ([][]float32, error) {
	prefix := documentPrefix
	if mode == semantic.EmbedQuery {
		prefix = queryPrefix
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vals, err := c.embed(ctx, prefix+text)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d]: %w", i, err)
		}
		out[i] = vals
	}
	return out, nil
}
