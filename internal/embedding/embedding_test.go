package embedding

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("TOPICGUARD_TEST_KEY", "from-env")
	t.Setenv("TOPICGUARD_FALLBACK_KEY", "from-fallback")
	t.Setenv("TOPICGUARD_EMPTY_KEY", "")

	tests := []struct {
		name     string
		key      string
		fallback []string
		want     string
	}{
		{name: "literal", key: "sk-literal-value", want: "sk-literal-value"},
		{name: "env pointer", key: "TOPICGUARD_TEST_KEY", want: "from-env"},
		{name: "unset pointer kept", key: "TOPICGUARD_UNSET_KEY", want: "TOPICGUARD_UNSET_KEY"},
		{name: "short upper literal", key: "ABC", want: "ABC"},
		{name: "fallback", fallback: []string{"TOPICGUARD_EMPTY_KEY", "TOPICGUARD_FALLBACK_KEY"}, want: "from-fallback"},
		{name: "nothing", fallback: []string{"TOPICGUARD_EMPTY_KEY"}, want: ""},
		{name: "trimmed", key: "  sk-space  ", want: "sk-space"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAPIKey(tt.key, tt.fallback...))
		})
	}
}

func TestLooksLikeEnvVarName(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "OPENAI_API_KEY", want: true},
		{in: "GEMINI_KEY2", want: true},
		{in: "", want: false},
		{in: "ABC123", want: false},
		{in: "1234567890AB", want: false},
		{in: "_PRIVATE_KEY", want: false},
		{in: "sk-live-secret", want: false},
		{in: "OPENAI-API-KEY", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeEnvVarName(tt.in))
		})
	}
}

func TestNew_ProviderSelection(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	ctx := context.Background()

	enc, closeFn, err := New(ctx, Config{Provider: ProviderNone}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, enc)
	assert.NoError(t, closeFn())

	_, _, err = New(ctx, Config{Provider: "bert"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, _, err = New(ctx, Config{Provider: ProviderGemini}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, _, err = New(ctx, Config{Provider: ProviderOpenAI}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, _, err = New(ctx, Config{Provider: ProviderOpenAI, APIKey: "sk-test", Cache: CacheConfig{Driver: "etcd"}}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownCache)
}

func TestNew_OpenAIWithMemoryCache(t *testing.T) {
	enc, closeFn, err := New(context.Background(), Config{
		Provider: ProviderOpenAI,
		BaseURL:  "http://127.0.0.1:1/v1",
		Cache:    CacheConfig{Driver: CacheMemory},
	}, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	cached, ok := enc.(*CachedEncoder)
	require.True(t, ok)
	assert.Equal(t, DefaultOpenAIModel, cached.Model())
}

func TestNewGeminiEncoder_DefaultModel(t *testing.T) {
	enc, err := NewGeminiEncoder(context.Background(), "test-key", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultGeminiModel, enc.Model())
}
