package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/bgdnvk/topicguard/internal/embedding"
	"github.com/bgdnvk/topicguard/internal/gate"
	"github.com/bgdnvk/topicguard/internal/querylog"
	"github.com/bgdnvk/topicguard/internal/relevance"
)

// Settings is the resolved configuration for every command.
type Settings struct {
	Classifier ClassifierSettings `mapstructure:"classifier"`
	Embedding  EmbeddingSettings  `mapstructure:"embedding"`
	Gate       GateSettings       `mapstructure:"gate"`
	QueryLog   QueryLogSettings   `mapstructure:"querylog"`
	Log        LogSettings        `mapstructure:"log"`
}

type ClassifierSettings struct {
	Threshold      float64 `mapstructure:"threshold"`
	MaxSuggestions int     `mapstructure:"max_suggestions"`
	LexiconFile    string  `mapstructure:"lexicon_file"`
}

type EmbeddingSettings struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	Cache            CacheSettings `mapstructure:"cache"`
}

type CacheSettings struct {
	Driver    string        `mapstructure:"driver"`
	Path      string        `mapstructure:"path"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisTTL  time.Duration `mapstructure:"redis_ttl"`
}

type GateSettings struct {
	Lookback   int `mapstructure:"lookback"`
	MaxHistory int `mapstructure:"max_history"`
}

type QueryLogSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("classifier.threshold", relevance.DefaultThreshold)
	v.SetDefault("classifier.max_suggestions", relevance.DefaultMaxSuggestions)
	v.SetDefault("classifier.lexicon_file", "")

	v.SetDefault("embedding.provider", embedding.ProviderNone)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.batch_concurrency", 4)
	v.SetDefault("embedding.cache.driver", embedding.CacheMemory)
	v.SetDefault("embedding.cache.path", "~/.topicguard/embeddings.db")
	v.SetDefault("embedding.cache.redis_addr", "localhost:6379")
	v.SetDefault("embedding.cache.redis_ttl", "720h")

	v.SetDefault("gate.lookback", gate.DefaultLookback)
	v.SetDefault("gate.max_history", 20)

	v.SetDefault("querylog.enabled", false)
	v.SetDefault("querylog.path", "~/.topicguard/rejected.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadSettings decodes v into Settings and validates the result.
func LoadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	var errs []error
	if s.Classifier.Threshold < 0 || s.Classifier.Threshold > 1 {
		errs = append(errs, fmt.Errorf("classifier.threshold %v out of range [0, 1]", s.Classifier.Threshold))
	}
	if s.Classifier.MaxSuggestions < 0 {
		errs = append(errs, errors.New("classifier.max_suggestions must not be negative"))
	}
	switch strings.ToLower(s.Embedding.Provider) {
	case "", embedding.ProviderNone, embedding.ProviderGemini, embedding.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", embedding.ErrUnknownProvider, s.Embedding.Provider))
	}
	switch strings.ToLower(s.Embedding.Cache.Driver) {
	case "", embedding.CacheNone, embedding.CacheMemory, embedding.CacheSQLite, embedding.CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", embedding.ErrUnknownCache, s.Embedding.Cache.Driver))
	}
	if s.Gate.Lookback < 1 {
		errs = append(errs, errors.New("gate.lookback must be at least 1"))
	}
	if _, err := zerolog.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

func (s Settings) embeddingConfig() embedding.Config {
	return embedding.Config{
		Provider: s.Embedding.Provider,
		Model:    s.Embedding.Model,
		APIKey:   s.Embedding.APIKey,
		BaseURL:  s.Embedding.BaseURL,
		Cache: embedding.CacheConfig{
			Driver:    s.Embedding.Cache.Driver,
			Path:      s.Embedding.Cache.Path,
			RedisAddr: s.Embedding.Cache.RedisAddr,
			RedisTTL:  s.Embedding.Cache.RedisTTL,
		},
	}
}

// buildClassifier loads the lexicon, wires the configured encoder and returns
// the classifier with a close function for the encoder's cache.
func buildClassifier(ctx context.Context, s Settings, logger zerolog.Logger) (*relevance.Classifier, func() error, error) {
	lex := relevance.DefaultLexicon()
	if s.Classifier.LexiconFile != "" {
		loaded, err := relevance.LoadLexicon(s.Classifier.LexiconFile)
		if err != nil {
			return nil, nil, err
		}
		lex = loaded
	}

	enc, closeEnc, err := embedding.New(ctx, s.embeddingConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up embeddings: %w", err)
	}

	opts := []relevance.Option{relevance.WithLogger(logger)}
	if enc != nil {
		opts = append(opts, relevance.WithEncoder(enc))
		if s.Embedding.BatchConcurrency > 0 {
			opts = append(opts, relevance.WithEncodeConcurrency(s.Embedding.BatchConcurrency))
		}
	}

	clf, err := relevance.New(ctx, lex, opts...)
	if err != nil {
		_ = closeEnc()
		return nil, nil, err
	}
	logger.Debug().
		Str("provider", s.Embedding.Provider).
		Bool("semantic", clf.SemanticEnabled()).
		Msg("Classifier ready")
	return clf, closeEnc, nil
}

// openQueryLog returns nil when the log is disabled.
func openQueryLog(ctx context.Context, s Settings) (*querylog.Store, error) {
	if !s.QueryLog.Enabled {
		return nil, nil
	}
	return querylog.Open(ctx, s.QueryLog.Path)
}

// buildGate wires the classifier and the optional query log into a gate.
func buildGate(clf gate.Classifier, store *querylog.Store, s Settings, logger zerolog.Logger) *gate.Gate {
	opts := []gate.Option{
		gate.WithThreshold(s.Classifier.Threshold),
		gate.WithMaxRelated(s.Classifier.MaxSuggestions),
		gate.WithLookback(s.Gate.Lookback),
		gate.WithLogger(logger),
	}
	if store != nil {
		opts = append(opts, gate.WithRecorder(store))
	}
	return gate.New(clf, opts...)
}
