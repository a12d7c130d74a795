package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ResponseCache memoizes estimator responses for identical inputs within
// the process lifetime. Keys are content fingerprints, so a hit produced
// by one user serves every user sending the same content. Bounded LRU;
// nothing survives a restart. The cache carries its own lock, independent
// of the storage layer's.
type ResponseCache struct {
	entries *lru.Cache[string, string]
	logger  *zap.Logger
}

// New constructs a cache holding at most capacity entries.
func New(capacity int, logger *zap.Logger) (*ResponseCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	return &ResponseCache{
		entries: entries,
		logger:  logger,
	}, nil
}

// Get returns the cached response for key and refreshes the entry's
// recency.
func (c *ResponseCache) Get(key string) (string, bool) {
	value, ok := c.entries.Get(key)
	if ok {
		c.logger.Debug("cache_hit", zap.String("fingerprint", shortKey(key)))
	} else {
		c.logger.Debug("cache_miss", zap.String("fingerprint", shortKey(key)))
	}
	return value, ok
}

// Put stores a response under key, evicting the least recently used entry
// when at capacity.
func (c *ResponseCache) Put(key, value string) {
	if evicted := c.entries.Add(key, value); evicted {
		c.logger.Debug("cache_evicted", zap.String("fingerprint", shortKey(key)))
	}
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *ResponseCache) Purge() {
	c.entries.Purge()
}

// ImageFingerprint derives the cache key for a photo request from the raw
// uploaded bytes. MD5 here deduplicates content; it carries no security
// weight.
func ImageFingerprint(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// TextFingerprint derives the cache key for a text or transcribed-voice
// request. Text is case-normalized first, so "Pizza" and "pizza" share an
// entry.
func TextFingerprint(text string) string {
	sum := md5.Sum([]byte(strings.ToLower(text)))
	return hex.EncodeToString(sum[:])
}

// shortKey truncates a fingerprint for logging.
func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
