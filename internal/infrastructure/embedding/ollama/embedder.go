// Package ollama provides the embedding provider over the Ollama HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/markocampo/campus-assistant/internal/core/domain"
	"github.com/markocampo/campus-assistant/internal/infrastructure/resilience"
)

type Embedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func NewEmbedder(baseURL, model string, options Options) *Embedder {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Embedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]any{
		"model": e.model,
		"input": []string{text},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed body: %w", err)
	}

	var vector []float32
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create embed request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return domain.WrapError(domain.ErrProviderUnavailable, "embed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return domain.WrapError(domain.ErrProviderUnavailable, "embed", fmt.Errorf("status %s", resp.Status))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("embed status: %s", resp.Status)
		}

		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return fmt.Errorf("decode embed response: %w", err)
		}
		if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
			return domain.WrapError(domain.ErrProviderUnavailable, "embed", fmt.Errorf("empty embedding result"))
		}
		vector = response.Embeddings[0]
		return nil
	}

	if e.executor != nil {
		if err := e.executor.Do(ctx, "embed_query", call); err != nil {
			return nil, err
		}
		return vector, nil
	}
	if err := call(ctx); err != nil {
		return nil, err
	}
	return vector, nil
}
