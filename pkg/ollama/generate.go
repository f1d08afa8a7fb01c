package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vidsage/vidsage/engine/answer"
	"github.com/vidsage/vidsage/engine/domain"
)

// GenerateClient produces completions through Ollama's /api/chat endpoint.
type GenerateClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewGenerateClient creates an Ollama generation client.
func NewGenerateClient(baseURL, model string) *GenerateClient {
	return &GenerateClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResp struct {
	Message         chatMessage `json:"message"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Generate implements answer.Generator.
func (c *GenerateClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (answer.Generation, error) {
	body, _ := json.Marshal(chatReq{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options: map[string]any{
			"num_predict": maxTokens,
			"temperature": temperature,
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return answer.Generation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return answer.Generation{}, fmt.Errorf("%w: %v", domain.ErrGenerationBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return answer.Generation{}, fmt.Errorf("%w: status %d", domain.ErrGenerationBackend, resp.StatusCode)
	}

	var result chatResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return answer.Generation{}, fmt.Errorf("%w: decode: %v", domain.ErrGenerationBackend, err)
	}

	return answer.Generation{
		Text:         result.Message.Content,
		Model:        c.model,
		InputTokens:  result.PromptEvalCount,
		OutputTokens: result.EvalCount,
	}, nil
}
