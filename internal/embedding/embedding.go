// Package embedding provides sentence encoders for the semantic stage of the
// relevance classifier, along with caches that keep repeated texts off the
// network.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bgdnvk/topicguard/internal/relevance"
)

const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	CacheNone   = "none"
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

var (
	ErrUnknownProvider = errors.New("unknown embedding provider")
	ErrMissingAPIKey   = errors.New("embedding provider requires an API key")
	ErrUnknownCache    = errors.New("unknown embedding cache driver")
)

// Config selects and configures an encoder.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Cache    CacheConfig
}

// CacheConfig selects the cache placed in front of the encoder.
type CacheConfig struct {
	Driver    string
	Path      string
	RedisAddr string
	RedisTTL  time.Duration
}

// New builds the configured encoder. Provider "none" (or empty) returns a nil
// encoder and no error: the classifier then runs keyword-only. The returned
// close function releases cache resources and is never nil.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (relevance.Encoder, func() error, error) {
	noop := func() error { return nil }

	var (
		enc ModelEncoder
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderNone:
		return nil, noop, nil
	case ProviderGemini:
		key := ResolveAPIKey(cfg.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		if key == "" {
			return nil, noop, fmt.Errorf("%w: %s", ErrMissingAPIKey, ProviderGemini)
		}
		enc, err = NewGeminiEncoder(ctx, key, cfg.Model)
	case ProviderOpenAI:
		key := ResolveAPIKey(cfg.APIKey, "OPENAI_API_KEY")
		if key == "" && cfg.BaseURL == "" {
			return nil, noop, fmt.Errorf("%w: %s", ErrMissingAPIKey, ProviderOpenAI)
		}
		enc = NewOpenAIEncoder(key, cfg.BaseURL, cfg.Model)
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, noop, err
	}

	store, err := openStore(ctx, cfg.Cache)
	if err != nil {
		return nil, noop, err
	}
	logger.Debug().
		Str("provider", cfg.Provider).
		Str("model", enc.Model()).
		Str("cache", cfg.Cache.Driver).
		Msg("Embedding encoder ready")
	if store == nil {
		return enc, noop, nil
	}
	return NewCachedEncoder(enc, store, logger), store.Close, nil
}

func openStore(ctx context.Context, cfg CacheConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", CacheNone:
		return nil, nil
	case CacheMemory:
		return NewMemoryStore(), nil
	case CacheSQLite:
		return OpenSQLiteStore(ctx, cfg.Path)
	case CacheRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisTTL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCache, cfg.Driver)
	}
}

// ModelEncoder is an encoder that knows the model it embeds with.
type ModelEncoder interface {
	relevance.Encoder
	relevance.BatchEncoder
	Model() string
}

// ResolveAPIKey accepts either a literal key or the name of an environment
// variable holding one. When key is empty the fallback variables are tried in
// order.
func ResolveAPIKey(key string, fallbackEnv ...string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		for _, name := range fallbackEnv {
			if v := strings.TrimSpace(os.Getenv(name)); v != "" {
				return v
			}
		}
		return ""
	}
	if !LooksLikeEnvVarName(key) {
		return key
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return key
}

// LooksLikeEnvVarName reports whether s reads as the name of an environment
// variable rather than a literal key: at least eight characters of upper-case
// letters, digits and underscores, starting with a letter.
func LooksLikeEnvVarName(s string) bool {
	if len(s) < 8 {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if r < 'A' || r > 'Z' {
				return false
			}
			continue
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return false
	}
	return true
}
