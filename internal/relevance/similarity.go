package relevance

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
)

var (
	errDimensionMismatch = errors.New("embedding dimension mismatch")
	errNonFiniteScore    = errors.New("non-finite similarity")
)

type scoredTopic struct {
	phrase string
	score  float64
}

// embedTopics computes the reference vectors once. Batch encoders get a
// single call; plain encoders are fanned out with a bounded errgroup.
func embedTopics(ctx context.Context, enc Encoder, phrases []string, concurrency int) ([]ReferenceTopic, error) {
	vectors := make([][]float32, len(phrases))

	if batch, ok := enc.(BatchEncoder); ok {
		got, err := batch.EncodeBatch(ctx, phrases)
		if err != nil {
			return nil, fmt.Errorf("encode reference topics: %w", err)
		}
		if len(got) != len(phrases) {
			return nil, fmt.Errorf("encode reference topics: got %d vectors for %d topics", len(got), len(phrases))
		}
		vectors = got
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(concurrency, 1))
		for i, phrase := range phrases {
			g.Go(func() error {
				vec, err := enc.Encode(gctx, phrase)
				if err != nil {
					return fmt.Errorf("encode reference topic %q: %w", phrase, err)
				}
				vectors[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	topics := make([]ReferenceTopic, len(phrases))
	for i, phrase := range phrases {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("encode reference topic %q: empty vector", phrase)
		}
		topics[i] = ReferenceTopic{Phrase: phrase, Vector: vectors[i]}
	}
	return topics, nil
}

// similarity runs the optional semantic stage for one query.
func (c *Classifier) similarity(ctx context.Context, query string) Similarity {
	if c.encoder == nil || len(c.topics) == 0 {
		return Similarity{}
	}
	ranked, err := c.rankTopics(ctx, query)
	if err != nil {
		return Similarity{Available: true, Err: err}
	}
	best := 0.0
	if len(ranked) > 0 {
		best = ranked[0].score
	}
	return Similarity{Score: clamp01(best), Available: true}
}

// rankTopics embeds the query and orders reference topics by descending
// cosine similarity; equal scores keep reference order.
func (c *Classifier) rankTopics(ctx context.Context, query string) ([]scoredTopic, error) {
	vec, err := c.encoder.Encode(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	ranked := make([]scoredTopic, 0, len(c.topics))
	for _, topic := range c.topics {
		score, err := cosineSimilarity(vec, topic.Vector)
		if err != nil {
			return nil, fmt.Errorf("compare with %q: %w", topic.Phrase, err)
		}
		ranked = append(ranked, scoredTopic{phrase: topic.Phrase, score: score})
	}
	slices.SortStableFunc(ranked, func(a, b scoredTopic) int {
		return cmp.Compare(b.score, a.score)
	})
	return ranked, nil
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", errDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	r := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, errNonFiniteScore
	}
	return r, nil
}

// clamp01 bounds a score to [0,1]. Negative cosine and NaN count as 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, 1))
}
