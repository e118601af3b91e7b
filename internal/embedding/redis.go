package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"subalign/internal/logging"
)

// RedisOptions configures the shared embedding cache.
type RedisOptions struct {
	Addr   string
	Prefix string
	TTL    time.Duration
	// Provider, Model and Dimensions identify the vector space. All three
	// are folded into every key, so changing any of them never serves
	// vectors from another space.
	Provider   string
	Model      string
	Dimensions int
}

// space identifies the vector space of the cached entries.
func (o RedisOptions) space() string {
	return fmt.Sprintf("%s\x00%s\x00%d", o.Provider, o.Model, o.Dimensions)
}

// RedisCache serves previously computed vectors from Redis and forwards
// misses to the wrapped provider. Redis errors are logged and the request
// falls through to the provider, so the cache never decides correctness.
type RedisCache struct {
	inner  Provider
	client *redis.Client
	prefix string
	ttl    time.Duration
	space  string
	logger *slog.Logger
}

// NewRedisCache connects to Redis and verifies it with PING.
func NewRedisCache(ctx context.Context, inner Provider, opts RedisOptions, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return newRedisCache(inner, client, opts, logger), nil
}

func newRedisCache(inner Provider, client *redis.Client, opts RedisOptions, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisCache{
		inner:  inner,
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		space:  opts.space(),
		logger: logger,
	}
}

func (r *RedisCache) Name() string { return r.inner.Name() }

func (r *RedisCache) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = r.key(text)
	}

	out := make([]Vector, len(texts))
	cached, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		r.warn(ctx, "redis lookup failed", err)
		cached = nil
	}
	var missing []int
	for i := range texts {
		if i < len(cached) {
			if raw, ok := cached[i].(string); ok {
				if vec, err := decodeVector([]byte(raw)); err == nil {
					out[i] = vec
					continue
				}
			}
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missing))
	for j, idx := range missing {
		missTexts[j] = texts[idx]
	}
	fresh, err := r.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("provider %s returned %d vectors for %d texts", r.inner.Name(), len(fresh), len(missTexts))
	}

	pipe := r.client.Pipeline()
	for j, idx := range missing {
		out[idx] = fresh[j]
		pipe.Set(ctx, keys[idx], encodeVector(fresh[j]), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.warn(ctx, "redis store failed", err)
	}
	return out, nil
}

// Close closes the Redis client and any resources held by the wrapped provider.
func (r *RedisCache) Close() error {
	return errors.Join(r.client.Close(), Close(r.inner))
}

func (r *RedisCache) key(text string) string {
	sum := sha256.Sum256([]byte(r.space + "\x00" + text))
	return r.prefix + hex.EncodeToString(sum[:])
}

func (r *RedisCache) warn(ctx context.Context, msg string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), msg, "embedding_cache_error",
		logging.Error(err),
		logging.String(logging.FieldImpact, "vectors computed by the provider instead"),
	)
}

func encodeVector(vec Vector) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) (Vector, error) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("cached vector has invalid length %d", len(raw))
	}
	vec := make(Vector, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}
