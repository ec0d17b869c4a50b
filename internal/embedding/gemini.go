package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-embedding-001"

// GeminiEmbedder embeds texts through the Gemini API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

// NewGeminiEmbedder creates an embedder for the Gemini API backend.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions int) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}

	return &GeminiEmbedder{client: client, model: model, dimensions: int32(dimensions)}, nil
}

// ModelName returns the configured model.
func (g *GeminiEmbedder) ModelName() string { return g.model }

// Embed returns one normalized vector per text. Reduced output sizes are not
// unit length as returned, so normalization is required here.
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.Text(truncate(t, maxInputRunes))...)
	}

	cfg := &genai.EmbedContentConfig{}
	if g.dimensions > 0 {
		cfg.OutputDimensionality = &g.dimensions
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", embeddingCount(resp), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("empty gemini embedding at index %d", i)
		}
		out[i] = Normalize(e.Values)
	}
	return out, nil
}

func embeddingCount(resp *genai.EmbedContentResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Embeddings)
}
