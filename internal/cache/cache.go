// Package cache keeps embedding vectors in Redis so repeated feature texts
// and pagination snippets are not re-embedded.
package cache

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

	"github.com/IshaanNene/scrapegoat-configgen/internal/ai"
)

// Config holds Redis connection configuration.
type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

const (
	connectionTimeout = 5 * time.Second
	keyPrefix         = "configgen:emb:"
)

// Cache stores embedding vectors keyed by model and text digest.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Cache, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// Key returns the cache key for text embedded by model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector, or ok=false on a miss.
func (c *Cache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, Key(model, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set stores vec. A zero TTL keeps the entry until evicted.
func (c *Cache) Set(ctx context.Context, model, text string, vec []float32) error {
	return c.client.Set(ctx, Key(model, text), encodeVector(vec), c.ttl).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector of %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}

// CachedEmbedder wraps an embedder with the cache. Cache failures are
// logged and never fail an embedding.
type CachedEmbedder struct {
	next   ai.Embedder
	cache  *Cache
	logger *slog.Logger
}

// NewCachedEmbedder wraps next with cache.
func NewCachedEmbedder(next ai.Embedder, cache *Cache, logger *slog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		cache:  cache,
		logger: logger.With("component", "embedding_cache"),
	}
}

// Model implements ai.Embedder.
func (e *CachedEmbedder) Model() string { return e.next.Model() }

// Embed implements ai.Embedder.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.next.Model()
	vec, ok, err := e.cache.Get(ctx, model, text)
	if err != nil {
		e.logger.Warn("cache read failed", "error", err)
	}
	if ok {
		return vec, nil
	}

	vec, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, model, text, vec); err != nil {
		e.logger.Warn("cache write failed", "error", err)
	}
	return vec, nil
}
