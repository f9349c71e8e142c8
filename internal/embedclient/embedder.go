// Package embedclient provides the Embedder interface shared by the code
// index and memory store subsystems, plus an HTTP-backed implementation
// that calls a local embedding endpoint.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"codexcore/internal/observability"
)

// Embedder converts text to embedding vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
	Ping(ctx context.Context) error
}

// Config describes a local embedding endpoint.
type Config struct {
	BaseURL   string
	Path      string
	Model     string
	APIKey    string
	APIHeader string
	Timeout   time.Duration
	BatchSize int
}

type httpEmbedder struct {
	cfg    Config
	dim    int
	mu     sync.Mutex
	client *http.Client
}

// NewHTTPClient builds an Embedder against a local embedding server. dim is
// the expected embedding dimension (0 if unknown until first call). Requests
// go through an otelhttp-instrumented client so embedding calls show up in
// the same traces as index builds and provider completions.
func NewHTTPClient(cfg Config, dim int) Embedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &httpEmbedder{cfg: cfg, dim: dim, client: observability.NewHTTPClient(nil)}
}

func (c *httpEmbedder) Name() string   { return c.cfg.Model }
func (c *httpEmbedder) Dimension() int { return c.dim }

func (c *httpEmbedder) Ping(ctx context.Context) error {
	_, err := c.EmbedBatch(ctx, []string{"ping"})
	return err
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out [][]float32
	for i := 0; i < len(texts); i += c.cfg.BatchSize {
		end := i + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.call(ctx, texts[i:end])
		if err != nil {
			return out, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *httpEmbedder) call(ctx context.Context, inputs []string) ([][]float32, error) {
	reqBody, err := json.Marshal(embedReq{Model: c.cfg.Model, Input: inputs})
	if err != nil {
		return nil, err
	}
	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.cfg.BaseURL+c.cfg.Path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	} else if c.cfg.APIHeader != "" {
		req.Header.Set(c.cfg.APIHeader, c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedclient: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedclient: embedding endpoint error: %s: %s", resp.Status, string(body))
	}

	var er embedResp
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, fmt.Errorf("embedclient: parse response: %w", err)
	}
	if len(er.Data) != len(inputs) {
		return nil, fmt.Errorf("embedclient: unexpected embedding count: got %d, want %d", len(er.Data), len(inputs))
	}
	out := make([][]float32, len(er.Data))
	c.mu.Lock()
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
		if c.dim == 0 && len(out[i]) > 0 {
			c.dim = len(out[i])
		}
	}
	c.mu.Unlock()
	return out, nil
}
