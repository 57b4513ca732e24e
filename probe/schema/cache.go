package schema

import (
	"context"
	"time"

	"github.com/Laisky/zap"
	gocache "github.com/patrickmn/go-cache"

	"github.com/songquanpeng/contract-tester/common"
	"github.com/songquanpeng/contract-tester/common/logger"
)

// DocumentCache stores raw schema documents by URL.
type DocumentCache interface {
	Get(ctx context.Context, url string) ([]byte, bool)
	Set(ctx context.Context, url string, doc []byte)
	Delete(ctx context.Context, url string)
}

// MemoryCache keeps documents in process.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache returns a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, url string) ([]byte, bool) {
	v, ok := c.store.Get(url)
	if !ok {
		return nil, false
	}
	doc, ok := v.([]byte)
	return doc, ok
}

func (c *MemoryCache) Set(_ context.Context, url string, doc []byte) {
	c.store.Set(url, doc, gocache.DefaultExpiration)
}

func (c *MemoryCache) Delete(_ context.Context, url string) {
	c.store.Delete(url)
}

const redisKeyPrefix = "contract-tester:schema:"

// RedisCache shares documents between processes through common.RDB.
type RedisCache struct {
	ttl time.Duration
}

func NewRedisCache(ttl time.Duration) *RedisCache {
	return &RedisCache{ttl: ttl}
}

func (c *RedisCache) Get(_ context.Context, url string) ([]byte, bool) {
	v, err := common.RedisGet(redisKeyPrefix + url)
	if err != nil {
		return nil, false
	}
	return []byte(v), true
}

func (c *RedisCache) Set(_ context.Context, url string, doc []byte) {
	if err := common.RedisSet(redisKeyPrefix+url, string(doc), c.ttl); err != nil {
		logger.Logger.Warn("failed to cache schema document in redis", zap.String("url", url), zap.Error(err))
	}
}

func (c *RedisCache) Delete(_ context.Context, url string) {
	if err := common.RedisDel(redisKeyPrefix + url); err != nil {
		logger.Logger.Warn("failed to evict schema document from redis", zap.String("url", url), zap.Error(err))
	}
}

// NewDocumentCache picks redis when it is enabled, the in-process cache otherwise,
// and nil (no caching) when ttl is not positive.
func NewDocumentCache(ttl time.Duration) DocumentCache {
	if ttl <= 0 {
		return nil
	}
	if common.IsRedisEnabled() {
		return NewRedisCache(ttl)
	}
	return NewMemoryCache(ttl)
}
