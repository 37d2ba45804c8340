package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"docchat-be/internal/pkg/logger"
)

// Store is the backing key-value layer. Keys arrive already namespaced.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CachedAnswer is the value stored per (namespace, key). It is written
// wholesale and never mutated in place.
type CachedAnswer struct {
	Answer    string      `json:"answer"`
	Sources   interface{} `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Cache memoizes answers by exact key within a namespace. Reads are
// side-effect free: a Get never extends TTL. Namespaces allow clearing all
// entries for one conversation without touching others.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger logger.ILogger
}

func NewCache(store Store, ttl time.Duration, log logger.ILogger) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: log,
	}
}

// Key derives a stable cache key from the question and the asking user.
// Exact match only: two different spellings are two entries.
func Key(userID, question string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + question))
	return hex.EncodeToString(sum[:])
}

func qualify(namespace, key string) string {
	return namespace + ":" + key
}

// Get returns the cached answer, or ok=false on miss. Store errors are
// logged and reported as a miss so callers never block on cache trouble.
func (c *Cache) Get(ctx context.Context, namespace, key string) (*CachedAnswer, bool) {
	raw, found, err := c.store.Get(ctx, qualify(namespace, key))
	if err != nil {
		c.logger.Warn("Cache", "Read failed, treating as miss", map[string]interface{}{
			"namespace": namespace,
			"error":     err.Error(),
		})
		return nil, false
	}
	if !found {
		return nil, false
	}

	var answer CachedAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		c.logger.Warn("Cache", "Corrupt entry, dropping", map[string]interface{}{
			"namespace": namespace,
			"error":     err.Error(),
		})
		_ = c.store.Delete(ctx, qualify(namespace, key))
		return nil, false
	}
	return &answer, true
}

func (c *Cache) Set(ctx context.Context, namespace, key string, answer *CachedAnswer) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return c.store.Set(ctx, qualify(namespace, key), raw, c.ttl)
}

func (c *Cache) Delete(ctx context.Context, namespace, key string) error {
	return c.store.Delete(ctx, qualify(namespace, key))
}

// InvalidateNamespace removes every entry under the namespace
func (c *Cache) InvalidateNamespace(ctx context.Context, namespace string) error {
	return c.store.DeletePrefix(ctx, namespace+":")
}
