package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = string(openai.SmallEmbedding3)

// OpenAIEncoder embeds text through the OpenAI embeddings endpoint or any
// server that speaks the same protocol.
type OpenAIEncoder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEncoder creates an encoder. An empty baseURL targets the OpenAI API
// and an empty model selects DefaultOpenAIModel.
func NewOpenAIEncoder(apiKey, baseURL, model string) *OpenAIEncoder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIEncoder{client: openai.NewClientWithConfig(cfg), model: model}
}

func (e *OpenAIEncoder) Model() string {
	return e.model
}

func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EncodeBatch embeds all texts in one request. Results are placed by the
// index the server reports, not by response order.
func (e *OpenAIEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai create embeddings: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("openai create embeddings: index %d out of range", item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("openai create embeddings: empty embedding at index %d", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("openai create embeddings: missing embedding for index %d", i)
		}
	}
	return out, nil
}
