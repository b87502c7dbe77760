package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "text-embedding-004"

// GeminiEncoder embeds text with the Gemini API.
type GeminiEncoder struct {
	client *genai.Client
	model  string
}

// NewGeminiEncoder creates a Gemini API client for apiKey. An empty model
// selects DefaultGeminiModel.
func NewGeminiEncoder(ctx context.Context, apiKey, model string) (*GeminiEncoder, error) {
	return newGeminiEncoder(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

func newGeminiEncoder(ctx context.Context, cfg *genai.ClientConfig, model string) (*GeminiEncoder, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiEncoder{client: client, model: model}, nil
}

func (e *GeminiEncoder) Model() string {
	return e.model
}

func (e *GeminiEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EncodeBatch embeds all texts in a single request.
func (e *GeminiEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed content: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embed content: empty embedding at index %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
