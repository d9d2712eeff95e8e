// Package ollama calls the local Ollama embeddings API.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider embeds text through a running Ollama instance.
type Provider struct {
	client *resty.Client
	model  string
}

// New creates a Provider against baseURL (scheme optional) for the given
// model.
func New(baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second)
	return &Provider{client: c, model: model}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error"`
}

// Embed generates a dense vector for the given text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return []float32{0}, nil
	}

	var out embedResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&embedRequest{Model: p.model, Prompt: text}).
		SetResult(&out).
		Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama embeddings error: %s", out.Error)
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// HealthPing checks /api/tags for the configured model's presence.
func (p *Provider) HealthPing(ctx context.Context) error {
	var data struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&data).
		Get("/api/tags")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ollama status %d", resp.StatusCode())
	}
	want := strings.Split(p.model, ":")[0]
	for _, m := range data.Models {
		if strings.Split(m.Name, ":")[0] == want {
			return nil
		}
	}
	return fmt.Errorf("ollama model %s not present", p.model)
}
