// Package gate decides how a chat front end should treat an incoming message:
// answer it, let it continue a DSA conversation, reply to small talk, or
// redirect the user back to DSA topics.
package gate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bgdnvk/topicguard/internal/conversation"
	"github.com/bgdnvk/topicguard/internal/relevance"
)

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionContinue  Action = "continue"
	ActionSmallTalk Action = "small_talk"
	ActionRedirect  Action = "redirect"
)

const DefaultLookback = 3

// Classifier is the part of relevance.Classifier the gate needs.
type Classifier interface {
	Classify(ctx context.Context, query string, threshold float64) relevance.Result
	SuggestRelatedTopics(ctx context.Context, query string, max int) []string
}

// Recorder receives every redirected query.
type Recorder interface {
	RecordRejected(ctx context.Context, query string, result relevance.Result) error
}

// Decision is the gate's verdict for one message.
type Decision struct {
	Action    Action           `json:"action"`
	Rule      string           `json:"rule"`
	Result    relevance.Result `json:"result"`
	Intents   []string         `json:"intents,omitempty"`
	FollowUp  bool             `json:"follow_up"`
	SmallTalk bool             `json:"small_talk"`
	Related   []string         `json:"related_topics,omitempty"`
	intents   conversation.Intents
}

// HasIntent reports whether intent was detected in the message.
func (d Decision) HasIntent(intent conversation.Intent) bool {
	return d.intents.Has(intent)
}

type Option func(*Gate)

func WithThreshold(threshold float64) Option {
	return func(g *Gate) { g.threshold = threshold }
}

func WithMaxRelated(n int) Option {
	return func(g *Gate) { g.maxRelated = n }
}

// WithLookback sets how many previous user turns may anchor a follow-up.
func WithLookback(n int) Option {
	return func(g *Gate) { g.lookback = n }
}

func WithRecorder(r Recorder) Option {
	return func(g *Gate) { g.recorder = r }
}

func WithDetector(d *conversation.Detector) Option {
	return func(g *Gate) { g.detector = d }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// Gate routes messages using a classifier and the recent conversation.
type Gate struct {
	classifier Classifier
	rules      []rule
	threshold  float64
	maxRelated int
	lookback   int
	recorder   Recorder
	detector   *conversation.Detector
	logger     zerolog.Logger
}

func New(clf Classifier, opts ...Option) *Gate {
	g := &Gate{
		classifier: clf,
		rules:      defaultRules(),
		threshold:  relevance.DefaultThreshold,
		maxRelated: relevance.DefaultMaxSuggestions,
		lookback:   DefaultLookback,
		detector:   conversation.NewDetector(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate classifies query and applies the first matching rule. history is
// the conversation before query, oldest first.
func (g *Gate) Evaluate(ctx context.Context, query string, history []conversation.Turn) Decision {
	in := input{
		query:     query,
		result:    g.classifier.Classify(ctx, query, g.threshold),
		intents:   g.detector.Detect(query),
		smallTalk: g.detector.IsSmallTalk(query),
		anchored:  conversation.RecentlyRelevant(history, g.lookback),
	}

	decision := Decision{
		Result:    in.result,
		Intents:   in.intents.Names(),
		SmallTalk: in.smallTalk,
		intents:   in.intents,
	}
	var matched rule
	for _, r := range g.rules {
		if r.match(in) {
			matched = r
			break
		}
	}
	decision.Action = matched.action
	decision.Rule = matched.id

	switch decision.Action {
	case ActionAnswer:
		decision.Related = g.classifier.SuggestRelatedTopics(ctx, query, g.maxRelated)
	case ActionContinue:
		decision.FollowUp = true
	case ActionRedirect:
		g.record(ctx, query, in.result)
	}

	g.logger.Debug().
		Str("action", string(decision.Action)).
		Str("rule", matched.name).
		Float64("confidence", in.result.Confidence).
		Strs("intents", decision.Intents).
		Msg("Gate decision")
	return decision
}

func (g *Gate) record(ctx context.Context, query string, result relevance.Result) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.RecordRejected(ctx, query, result); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to record rejected query")
	}
}
