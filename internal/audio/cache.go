package audio

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Key identifies a clip by the exact text and language spoken
type Key struct {
	Text     string
	Language string
}

// Digest returns a fixed-length hex id for the key, used as a storage key
func (k Key) Digest() string {
	sum := blake2b.Sum256([]byte(k.Language + "\x00" + k.Text))
	return hex.EncodeToString(sum[:])
}

// Cache returns a stored clip or computes and remembers it. Failures are never cached.
type Cache interface {
	GetOrCompute(ctx context.Context, key Key, compute func(context.Context) ([]byte, error)) ([]byte, error)
}

// MemoryCache keeps clips for the life of the process
type MemoryCache struct {
	mu    sync.RWMutex
	clips map[Key][]byte
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{clips: make(map[Key][]byte)}
}

func (c *MemoryCache) GetOrCompute(ctx context.Context, key Key, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	c.mu.RLock()
	audio, ok := c.clips[key]
	c.mu.RUnlock()
	if ok {
		return audio, nil
	}

	audio, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.clips[key] = audio
	c.mu.Unlock()
	return audio, nil
}

// Len returns the number of cached clips
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clips)
}

// Store persists clips outside the process
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Put(ctx context.Context, key Key, audio []byte) error
}

// StoreCache is a Cache backed by a Store. Store errors are logged and the
// clip is computed anyway; the cache never makes speech fail.
type StoreCache struct {
	store  Store
	logger *slog.Logger
}

// NewStoreCache creates a cache over store
func NewStoreCache(store Store, logger *slog.Logger) *StoreCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreCache{store: store, logger: logger}
}

func (c *StoreCache) GetOrCompute(ctx context.Context, key Key, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	audio, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("audio cache read failed", "key", key.Digest(), "error", err)
	} else if ok {
		return audio, nil
	}

	audio, err = compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(ctx, key, audio); err != nil {
		c.logger.Warn("audio cache write failed", "key", key.Digest(), "error", err)
	}
	return audio, nil
}

// CachingSynthesizer answers repeated requests for the same text from a cache
type CachingSynthesizer struct {
	next  Synthesizer
	cache Cache
}

// NewCachingSynthesizer wraps next with cache
func NewCachingSynthesizer(next Synthesizer, cache Cache) *CachingSynthesizer {
	return &CachingSynthesizer{next: next, cache: cache}
}

func (s *CachingSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	key := Key{Text: text, Language: language}
	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		return s.next.Synthesize(ctx, text, language)
	})
}
