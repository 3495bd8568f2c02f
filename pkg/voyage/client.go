// Package voyage provides a client for the Voyage AI embeddings API.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the embedding operations used by the pipeline.
type Client interface {
	// Embed returns one vector per input text, in input order. All vectors in
	// one response share the same dimension.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// embedRequest is the wire request body.
type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// embedResponse is the parsed API response.
type embedResponse struct {
	Data []embedDatum `json:"data"`
	Model string      `json:"model"`
	Usage embedUsage  `json:"usage"`
}

type embedDatum struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type embedUsage struct {
	TotalTokens int `json:"total_tokens"`
}

// errorBody is the shape of Voyage error responses.
type errorBody struct {
	Detail string `json:"detail"`
}

// Option configures the Voyage client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Voyage embeddings client.
func NewClient(apiKey, model string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.voyageai.com/v1",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed performs exactly one API call per invocation. Transport and HTTP
// failures are surfaced, never retried; the only retry loop in the pipeline
// is the schema-validation loop inside extraction.
func (c *httpClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if c.apiKey == "" {
		return nil, eris.New("voyage: missing API key")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "voyage: rate limit wait")
		}
	}

	payload, err := json.Marshal(embedRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, eris.Wrap(err, "voyage: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "voyage: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "voyage: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "voyage: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Detail != "" {
			return nil, eris.Errorf("voyage: status %d: %s", resp.StatusCode, eb.Detail)
		}
		return nil, eris.Errorf("voyage: unexpected status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "voyage: unmarshal response")
	}

	if len(parsed.Data) != len(texts) {
		return nil, eris.Errorf("voyage: expected %d embeddings, got %d", len(texts), len(parsed.Data))
	}

	// Zip vectors back by their declared index, not arrival order, and check
	// that every vector is well formed with a consistent dimension.
	out := make([][]float64, len(texts))
	dim := -1
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, eris.Errorf("voyage: embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, eris.Errorf("voyage: empty embedding at index %d", d.Index)
		}
		if dim == -1 {
			dim = len(d.Embedding)
		} else if len(d.Embedding) != dim {
			return nil, eris.Errorf("voyage: inconsistent embedding dimension at index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, eris.Errorf("voyage: missing embedding for input %d", i)
		}
	}

	return out, nil
}
