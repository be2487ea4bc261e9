package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// embeddingCacheTTL bounds how long a cached embedding is trusted before a
// re-embed is forced, guarding against silent drift if the configured
// embedding model changes without a cache flush.
const embeddingCacheTTL = 7 * 24 * time.Hour

// EmbeddingCache fronts an Embedder with a hash(text) → vector cache,
// avoiding a repeat embedding call for identical query text (spec §3 domain
// stack: go-redis as the execution loop's and retrieval's shared cache).
type EmbeddingCache struct {
	rdb   *redis.Client
	inner interface {
		Embed(ctx context.Context, text string) ([]float32, error)
	}
}

// NewEmbeddingCache wraps inner with a Redis-backed cache.
func NewEmbeddingCache(rdb *redis.Client, inner interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}) *EmbeddingCache {
	return &EmbeddingCache{rdb: rdb, inner: inner}
}

// Embed returns a cached vector for text if present, otherwise embeds it
// via inner and caches the result.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		return decodeVector(raw), nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.rdb.Set(ctx, key, encodeVector(vec), embeddingCacheTTL)
	return vec, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "semquery:embedding:" + hex.EncodeToString(sum[:])
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
