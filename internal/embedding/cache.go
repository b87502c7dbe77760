package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
)

var errCorruptVector = errors.New("corrupt cached vector")

// Store persists embeddings by cache key.
type Store interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Put(ctx context.Context, key string, vec []float32) error
	Close() error
}

// CachedEncoder consults a Store before calling the wrapped encoder. Store
// failures are logged and bypassed; they never fail an Encode call.
type CachedEncoder struct {
	inner  ModelEncoder
	store  Store
	logger zerolog.Logger
}

func NewCachedEncoder(inner ModelEncoder, store Store, logger zerolog.Logger) *CachedEncoder {
	return &CachedEncoder{inner: inner, store: store, logger: logger}
}

func (c *CachedEncoder) Model() string {
	return c.inner.Model()
}

func (c *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.inner.Model(), text)
	if vec, ok := c.lookup(ctx, key); ok {
		return vec, nil
	}
	vec, err := c.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, vec)
	return vec, nil
}

// EncodeBatch only sends the texts that miss the cache to the wrapped encoder.
func (c *CachedEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []int
	for i, text := range texts {
		keys[i] = CacheKey(c.inner.Model(), text)
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	vectors, err := c.inner.EncodeBatch(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(pending) {
		return nil, fmt.Errorf("encode batch: got %d vectors for %d texts", len(vectors), len(pending))
	}
	for j, i := range missing {
		out[i] = vectors[j]
		c.save(ctx, keys[i], vectors[j])
	}
	return out, nil
}

func (c *CachedEncoder) lookup(ctx context.Context, key string) ([]float32, bool) {
	vec, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("Embedding cache read failed")
		return nil, false
	}
	return vec, ok
}

func (c *CachedEncoder) save(ctx context.Context, key string, vec []float32) {
	if err := c.store.Put(ctx, key, vec); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("Embedding cache write failed")
	}
}

// CacheKey identifies a text embedded by a given model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vectors: make(map[string][]float32)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vectors[key]
	if !ok {
		return nil, false, nil
	}
	return append([]float32(nil), vec...), true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[key] = append([]float32(nil), vec...)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func (s *MemoryStore) Close() error { return nil }

// encodeVector packs vec as little-endian float32 values.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", errCorruptVector, len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
