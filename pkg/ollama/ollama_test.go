package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidsage/vidsage/engine/domain"
	"github.com/vidsage/vidsage/engine/semantic"
)

func TestEmbedBatch(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedReq
		json.NewDecoder(r.Body).Decode(&req)
		prompts = append(prompts, req.Prompt)
		json.NewEncoder(w).Encode(embedResp{Embedding: []float64{0.1, 0.2}})
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "nomic-embed-text")
	got, err := c.EmbedBatch(context.Background(), []string{"alpha", "beta"}, semantic.EmbedDocument)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 2 {
		t.Fatalf("unexpected shape: %v", got)
	}
	if prompts[0] != "search_document: alpha" {
		t.Errorf("prompt = %q, want document prefix", prompts[0])
	}
}

func TestEmbedBatch_QueryPrefix(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedReq
		json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Prompt
		json.NewEncoder(w).Encode(embedResp{Embedding: []float64{1}})
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "m")
	if _, err := c.EmbedBatch(context.Background(), []string{"what is alpha"}, semantic.EmbedQuery); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(prompt, "search_query: ") {
		t.Errorf("prompt = %q, want query prefix", prompt)
	}
}

func TestEmbedBatch_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "m")
	_, err := c.EmbedBatch(context.Background(), []string{"x"}, semantic.EmbedDocument)
	if !errors.Is(err, domain.ErrEmbeddingBackend) {
		t.Errorf("error = %v, want ErrEmbeddingBackend", err)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatReq
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream should be disabled")
		}
		if req.Options["num_predict"].(float64) != 1024 {
			t.Errorf("num_predict = %v", req.Options["num_predict"])
		}
		json.NewEncoder(w).Encode(chatResp{
			Message:         chatMessage{Role: "assistant", Content: "the answer"},
			PromptEvalCount: 100,
			EvalCount:       20,
		})
	}))
	defer srv.Close()

	c := NewGenerateClient(srv.URL, "llama3")
	got, err := c.Generate(context.Background(), "prompt", 1024, 0.7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Text != "the answer" || got.Model != "llama3" {
		t.Errorf("unexpected generation: %+v", got)
	}
	if got.InputTokens != 100 || got.OutputTokens != 20 {
		t.Errorf("token counts not mapped: %+v", got)
	}
}

func TestGenerate_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewGenerateClient(srv.URL, "m")
	_, err := c.Generate(context.Background(), "p", 10, 0)
	if !errors.Is(err, domain.ErrGenerationBackend) {
		t.Errorf("error = %v, want ErrGenerationBackend", err)
	}
}
