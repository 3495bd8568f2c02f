// Package extract calls the multimodal model for schema-constrained image
// analysis and the embedding endpoint for text vectors. The schema-validation
// retry loop here is the only retry loop in the pipeline.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/studioforge/asset-cli/internal/jsontree"
	"github.com/studioforge/asset-cli/internal/model"
	"github.com/studioforge/asset-cli/pkg/anthropic"
	"github.com/studioforge/asset-cli/pkg/voyage"
)

// Client defines the extraction operations consumed by the pipeline runners.
type Client interface {
	Extract(ctx context.Context, img Image, schema map[string]any, instruction string, maxRetries int) (map[string]any, error)
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedAll(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}

// Image is an inline image for a vision request.
type Image struct {
	MediaType string
	Data      string // base64
}

// LoadImage reads an image file and encodes it for a vision request.
// Returns a not-found pipeline error when the file is missing, before any
// external call is made.
func LoadImage(path string) (Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Image{}, model.WrapError(model.KindNotFound, err, "extract: image file")
		}
		return Image{}, model.WrapError(model.KindNotFound, err, "extract: read image")
	}

	mediaType := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mediaType = "image/jpeg"
	case ".gif":
		mediaType = "image/gif"
	case ".webp":
		mediaType = "image/webp"
	}

	return Image{MediaType: mediaType, Data: base64.StdEncoding.EncodeToString(raw)}, nil
}

// extractSystem demands JSON-only output. The schema is injected verbatim;
// the same data that drives validation drives the request.
const extractSystem = `You are an image analysis engine. Respond with ONLY a valid JSON object matching this schema exactly. No prose, no markdown fences, no additional keys.

Schema:
%s`

// correctiveMessage names the violations of the previous attempt.
const correctiveMessage = `Your previous response did not conform to the schema:
%s

Respond again with ONLY a valid JSON object matching the schema. Fix every listed violation.`

// Service implements Client against Anthropic (vision) and Voyage (embeddings).
type Service struct {
	apiKey   string
	model    string
	ai       anthropic.Client
	embedder voyage.Client
}

// Option configures the Service.
type Option func(*Service)

// WithAIClient injects a custom vision client (for testing).
func WithAIClient(c anthropic.Client) Option {
	return func(s *Service) { s.ai = c }
}

// NewService builds an extraction service. An empty apiKey is allowed at
// construction; calls fail fast before any network traffic.
func NewService(apiKey, visionModel string, embedder voyage.Client, opts ...Option) *Service {
	s := &Service{
		apiKey:   apiKey,
		model:    visionModel,
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ai == nil && apiKey != "" {
		s.ai = anthropic.NewClient(apiKey)
	}
	return s
}

// Model returns the configured vision model identifier.
func (s *Service) Model() string { return s.model }

// Extract sends the image and instruction to the vision model and parses a
// schema-conforming JSON object out of the reply. Parse and schema failures
// append a corrective message and retry, bounded to maxRetries+1 attempts.
// Transport and HTTP failures are never retried.
func (s *Service) Extract(ctx context.Context, img Image, schema map[string]any, instruction string, maxRetries int) (map[string]any, error) {
	if s.ai == nil {
		return nil, model.NewError(model.KindUpstream, "extract: missing anthropic api key")
	}

	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, model.WrapError(model.KindValidation, err, "extract: marshal schema")
	}

	system := []anthropic.SystemBlock{{Text: fmt.Sprintf(extractSystem, string(schemaJSON))}}
	messages := []anthropic.Message{{
		Role: "user",
		Blocks: []anthropic.RequestBlock{
			anthropic.ImageBlock(img.MediaType, img.Data),
			{Type: "text", Text: instruction},
		},
	}}

	attempts := maxRetries + 1
	var attemptErrs []string

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.model,
			MaxTokens: 2048,
			System:    system,
			Messages:  messages,
		})
		if err != nil {
			return nil, model.WrapError(model.KindUpstream, err, "extract: vision call")
		}
		resp.Usage.LogCost(s.model, "extract")

		text := resp.Text()
		var parsed map[string]any
		var violation string

		if err := json.Unmarshal([]byte(cleanJSON(text)), &parsed); err != nil {
			violation = fmt.Sprintf("response is not valid JSON: %v", err)
		} else if res := jsontree.Validate(parsed, schema); !res.OK {
			violation = strings.Join(res.Errors, "; ")
		} else {
			return parsed, nil
		}

		attemptErrs = append(attemptErrs, fmt.Sprintf("attempt %d: %s", attempt, violation))
		zap.L().Warn("extract: schema validation failed",
			zap.Int("attempt", attempt),
			zap.String("violation", violation),
		)

		// Carry the failed reply into the conversation so the corrective
		// message has something concrete to point at.
		messages = append(messages,
			anthropic.TextMessage("assistant", text),
			anthropic.TextMessage("user", fmt.Sprintf(correctiveMessage, violation)),
		)
	}

	return nil, model.NewError(model.KindValidation,
		fmt.Sprintf("extract: output never conformed to schema after %d attempts: %s",
			attempts, strings.Join(attemptErrs, " | ")))
}

// Embed returns the embedding vector for one text.
func (s *Service) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := s.EmbedAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedAll returns one vector per text, in input order.
func (s *Service) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	if s.embedder == nil {
		return nil, model.NewError(model.KindUpstream, "extract: missing embedding client")
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, model.WrapError(model.KindUpstream, err, "extract: embed")
	}
	return vecs, nil
}

// cleanJSON strips markdown fences and surrounding prose, keeping the
// outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
