package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func ollamaServer(t *testing.T, dim int) (*httptest.Server, *[]string) {
	t.Helper()

	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models": []}`))
		case "/api/embeddings":
			var req ollamaEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			if req.Model != "all-minilm" {
				t.Errorf("unexpected model: %s", req.Model)
			}
			prompts = append(prompts, req.Prompt)

			emb := make([]float32, dim)
			emb[0] = float32(len(prompts))
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: emb})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &prompts
}

func TestNewOllamaEmbedding_Defaults(t *testing.T) {
	svc, err := NewOllamaEmbedding("", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.baseURL != "http://localhost:11434" {
		t.Errorf("unexpected base URL %s", svc.baseURL)
	}
	if svc.Model() != "all-minilm" || svc.Dimensions() != 384 {
		t.Errorf("unexpected defaults: %s/%d", svc.Model(), svc.Dimensions())
	}
}

func TestNewOllamaEmbedding_UnknownModelNeedsDimension(t *testing.T) {
	if _, err := NewOllamaEmbedding("", "my-model", 0); !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
	if _, err := NewOllamaEmbedding("", "my-model", 256); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOllamaEmbedding_EmbedBatch(t *testing.T) {
	server, prompts := ollamaServer(t, 384)

	svc, _ := NewOllamaEmbedding(server.URL, "all-minilm", 384)
	results, err := svc.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, emb := range results {
		if emb[0] != float32(i+1) {
			t.Errorf("result %d out of order", i)
		}
	}
	if len(*prompts) != 3 || (*prompts)[2] != "c" {
		t.Errorf("unexpected prompts %v", *prompts)
	}
}

func TestOllamaEmbedding_DimensionMismatch(t *testing.T) {
	server, _ := ollamaServer(t, 3)

	svc, _ := NewOllamaEmbedding(server.URL, "all-minilm", 384)
	_, err := svc.EmbedQuery(context.Background(), "hello")
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestOllamaEmbedding_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model \"all-minilm\" not found"}`))
	}))
	defer server.Close()

	svc, _ := NewOllamaEmbedding(server.URL, "all-minilm", 384)
	_, err := svc.Embed(context.Background(), []string{"x"})
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("expected ErrEmbedding, got %v", err)
	}
	if err := svc.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check to fail")
	}
}

func TestOllamaEmbedding_HealthCheck(t *testing.T) {
	server, _ := ollamaServer(t, 384)

	svc, _ := NewOllamaEmbedding(server.URL, "all-minilm", 384)
	if err := svc.HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
