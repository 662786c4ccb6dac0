package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gmarches/s3catalog/internal/config"
	"github.com/gmarches/s3catalog/internal/domain"
)

const (
	queryKeyPrefix  = "catalog:query:"
	scanBatchSize   = 100
	defaultQueryTTL = time.Minute
)

// QueryCache holds recently served directory listings. The catalog is
// only as fresh as the last scan anyway, so serving a listing that is a
// few seconds old does not change the freshness contract. The scanner
// invalidates everything after a completed run.
type QueryCache interface {
	GetListing(ctx context.Context, key string) (*domain.FileListing, bool, error)
	SetListing(ctx context.Context, key string, listing *domain.FileListing) error
	InvalidateAll(ctx context.Context) error
}

type redisQueryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopQueryCache struct{}

func NewQueryCache(cfg config.CacheConfig) (QueryCache, error) {
	if !cfg.Enabled {
		return &noopQueryCache{}, nil
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.QueryTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultQueryTTL
	}

	return &redisQueryCache{client: client, ttl: ttl}, nil
}

func NewNoopQueryCache() QueryCache {
	return &noopQueryCache{}
}

// ListingKey derives a cache key from the operation and its parameters.
func ListingKey(operation string, parts ...any) string {
	h := sha1.New()
	fmt.Fprint(h, operation)
	for _, p := range parts {
		fmt.Fprintf(h, "|%v", p)
	}
	return queryKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *redisQueryCache) GetListing(ctx context.Context, key string) (*domain.FileListing, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var listing domain.FileListing
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, false, fmt.Errorf("decode listing cache: %w", err)
	}
	return &listing, true, nil
}

func (c *redisQueryCache) SetListing(ctx context.Context, key string, listing *domain.FileListing) error {
	payload, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("encode listing cache: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisQueryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, queryKeyPrefix, scanBatchSize)
}

func (n *noopQueryCache) GetListing(context.Context, string) (*domain.FileListing, bool, error) {
	return nil, false, nil
}

func (n *noopQueryCache) SetListing(context.Context, string, *domain.FileListing) error {
	return nil
}

func (n *noopQueryCache) InvalidateAll(context.Context) error { return nil }
