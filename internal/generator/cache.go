package generator

import (
	"sort"
	"strings"
	"time"

	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultCacheTTL             = 6 * time.Hour
	DefaultCacheCleanupInterval = 30 * time.Minute
)

// PhraseCache 全局短语缓存，所有会话共享，键为 mode:lower(trim(selection))
type PhraseCache struct {
	cache *gocache.Cache
}

func NewPhraseCache(ttl, cleanupInterval time.Duration) *PhraseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCacheCleanupInterval
	}
	return &PhraseCache{cache: gocache.New(ttl, cleanupInterval)}
}

func CacheKey(mode model.ContentMode, selection string) string {
	return string(mode) + ":" + strings.ToLower(strings.TrimSpace(selection))
}

func (c *PhraseCache) Get(mode model.ContentMode, selection string) (model.PhraseSet, bool) {
	key := CacheKey(mode, selection)
	value, found := c.cache.Get(key)
	if !found {
		return model.PhraseSet{}, false
	}

	phrases, ok := value.(model.PhraseSet)
	if !ok {
		logger.Errorf("wrong type in phrase cache for key %s", key)
		return model.PhraseSet{}, false
	}
	logger.Debugf("phrase cache hit: %s", key)
	return phrases, true
}

func (c *PhraseCache) Set(mode model.ContentMode, selection string, phrases model.PhraseSet) {
	c.cache.Set(CacheKey(mode, selection), phrases, gocache.DefaultExpiration)
}

func (c *PhraseCache) Delete(mode model.ContentMode, selection string) {
	c.cache.Delete(CacheKey(mode, selection))
}

// CacheStats 缓存统计，用于健康检查
type CacheStats struct {
	Entries int      `json:"entries"`
	Keys    []string `json:"keys"`
}

func (c *PhraseCache) Stats() CacheStats {
	items := c.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return CacheStats{Entries: len(keys), Keys: keys}
}

func (c *PhraseCache) Flush() {
	c.cache.Flush()
}
