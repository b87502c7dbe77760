// Package relevance decides whether a free-text query belongs to the data
// structures and algorithms domain.
//
// The pipeline is a single pass per call: normalize, extract phrases, score
// keywords, score semantic similarity (when an encoder is configured), check
// off-topic terms, combine, decide. A Classifier holds no mutable state after
// New returns.
package relevance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	DefaultThreshold      = 0.3
	DefaultMaxSuggestions = 5

	// ShortQueryReason is reported for queries under three characters.
	ShortQueryReason = "Query too short"

	minQueryRunes      = 3
	keywordWeight      = 0.7
	semanticWeight     = 0.3
	offTopicCeiling    = 0.6
	offTopicDamping    = 0.5
	relatedTopicFloor  = 0.3
	defaultConcurrency = 4
)

type options struct {
	encoder     Encoder
	topics      []string
	logger      zerolog.Logger
	concurrency int
}

// Option configures a Classifier.
type Option func(*options)

// WithEncoder enables the semantic stage.
func WithEncoder(enc Encoder) Option {
	return func(o *options) { o.encoder = enc }
}

// WithReferenceTopics replaces the default semantic anchor phrases.
func WithReferenceTopics(phrases []string) Option {
	return func(o *options) { o.topics = phrases }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEncodeConcurrency bounds parallel reference-topic encoding for
// encoders without a batch method.
func WithEncodeConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// Classifier scores queries against a lexicon and optional reference topics.
type Classifier struct {
	lexicon    Lexicon
	normalizer *Normalizer
	index      *termIndex
	encoder    Encoder
	topics     []ReferenceTopic
	logger     zerolog.Logger
}

// New validates the lexicon, builds the term index and, when an encoder is
// given, embeds the reference topics. An invalid lexicon is fatal. A failure
// to embed the reference topics only disables the semantic stage.
func New(ctx context.Context, lex Lexicon, opts ...Option) (*Classifier, error) {
	o := options{
		topics:      defaultReferenceTopics,
		logger:      zerolog.Nop(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := lex.Validate(); err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	normalizer := NewNormalizer()
	c := &Classifier{
		lexicon:    lex.clone(),
		normalizer: normalizer,
		index:      buildTermIndex(lex, normalizer),
		logger:     o.logger,
	}

	if o.encoder != nil && len(o.topics) > 0 {
		topics, err := embedTopics(ctx, o.encoder, o.topics, o.concurrency)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Semantic similarity disabled, falling back to keyword matching")
		} else {
			c.encoder = o.encoder
			c.topics = topics
			c.logger.Debug().Int("topics", len(topics)).Msg("Reference topics embedded")
		}
	}
	return c, nil
}

// SemanticEnabled reports whether the semantic stage contributes to scores.
func (c *Classifier) SemanticEnabled() bool {
	return c.encoder != nil
}

// Classify scores query and decides whether it is DSA related. It never
// fails: short queries and semantic-stage errors yield well-formed results.
func (c *Classifier) Classify(ctx context.Context, query string, threshold float64) Result {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < minQueryRunes {
		return Result{
			MatchedKeywords: []string{},
			PrimaryCategory: CategoryUnknown,
			Reason:          ShortQueryReason,
		}
	}

	normalized := c.normalizer.Normalize(query)
	keywords := c.index.scoreKeywords(normalized)

	sim := c.similarity(ctx, query)
	if sim.Err != nil {
		c.logger.Debug().Err(sim.Err).Msg("Semantic similarity failed, scoring keywords only")
	}

	offTopic := c.index.hasOffTopic(normalized.Lower)
	combined := combineScores(keywords.Score, sim.Value(), offTopic)
	relevant := isRelevant(combined, threshold, offTopic)

	result := Result{
		IsDSARelated:    relevant,
		Confidence:      combined,
		MatchedKeywords: keywords.Matched,
		PrimaryCategory: keywords.Primary,
		KeywordScore:    keywords.Score,
		SemanticScore:   sim.Value(),
		OffTopic:        offTopic,
		Reason:          reasonFor(relevant, combined, threshold),
	}
	if !relevant {
		result.Suggestion = redirectSuggestion(keywords.Matched)
	}

	c.logger.Debug().
		Str("category", result.PrimaryCategory.String()).
		Float64("keyword_score", result.KeywordScore).
		Float64("semantic_score", result.SemanticScore).
		Float64("confidence", result.Confidence).
		Bool("off_topic", offTopic).
		Bool("relevant", relevant).
		Msg("Query classified")
	return result
}

// SuggestRelatedTopics returns up to max reference topics whose similarity
// to query exceeds 0.3, best first. Without an encoder it returns an empty
// slice.
func (c *Classifier) SuggestRelatedTopics(ctx context.Context, query string, max int) []string {
	suggestions := []string{}
	if c.encoder == nil || max <= 0 {
		return suggestions
	}
	ranked, err := c.rankTopics(ctx, query)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Topic suggestion failed")
		return suggestions
	}
	for _, topic := range ranked {
		if len(suggestions) == max || topic.score <= relatedTopicFloor {
			break
		}
		suggestions = append(suggestions, topic.phrase)
	}
	return suggestions
}

// TopicsByCategory returns a copy of the lexicon terms for category, or for
// every category when category is not one of the scored ones.
func (c *Classifier) TopicsByCategory(category Category) map[Category][]string {
	if category.Known() {
		return map[Category][]string{category: append([]string(nil), c.lexicon.Categories[category]...)}
	}
	return cloneCategoryTerms(c.lexicon.Categories)
}

// combineScores fuses the sub-scores and halves borderline results that
// mention off-topic terms. Scores at or above 0.6 are never dampened.
func combineScores(keyword, semantic float64, offTopic bool) float64 {
	combined := keywordWeight*keyword + semanticWeight*semantic
	if offTopic && combined < offTopicCeiling {
		combined *= offTopicDamping
	}
	return clamp01(combined)
}

// isRelevant keeps the explicit off-topic guard on top of the dampening in
// combineScores: a dampened score can still clear a low threshold.
func isRelevant(combined, threshold float64, offTopic bool) bool {
	return combined >= threshold && !(offTopic && combined < offTopicCeiling)
}

func reasonFor(relevant bool, combined, threshold float64) string {
	if relevant {
		return fmt.Sprintf("Query matches DSA topics with %.2f confidence", combined)
	}
	limit := strconv.FormatFloat(threshold, 'f', -1, 64)
	if combined >= threshold {
		return fmt.Sprintf("Query score %.2f suppressed by off-topic terms (threshold %s)", combined, limit)
	}
	return fmt.Sprintf("Query score %.2f below threshold %s", combined, limit)
}
