// Package embedding generates note embeddings through the Gemini API. The
// rest of the system only ever consumes vectors; nothing else talks to the
// embedding service.
package embedding

import (
	"context"

	"google.golang.org/genai"

	"github.com/pbaille/notable/internal/config"
	"github.com/pbaille/notable/internal/errs"
)

// Service handles embedding generation via the Gemini API.
type Service struct {
	client *genai.Client
	model  string
	dims   int
}

// New creates an embedding Service from config. The API key comes from
// config (or GEMINI_API_KEY via config.Load).
func New(ctx context.Context, cfg config.EmbeddingConfig) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, errs.New(errs.CodeEmbedConfigMissing, "GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeEmbedUpstream, "creating gemini client")
	}

	return &Service{
		client: client,
		model:  cfg.Model,
		dims:   cfg.Dimensions,
	}, nil
}

// Embed generates an embedding vector for the given text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Every returned vector
// is validated against the configured dimensionality; a mismatch is an
// error, never silently truncated or padded.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := s.client.Models.EmbedContent(ctx, s.model, contents, nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeEmbedUpstream, "embedding content")
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, errs.Errorf(errs.CodeEmbedUpstream,
			"expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if len(e.Values) != s.dims {
			return nil, errs.Errorf(errs.CodeEmbedDimsInvalid,
				"embedding must be exactly %d dimensions, got %d", s.dims, len(e.Values))
		}
		vectors[i] = e.Values
	}

	return vectors, nil
}
