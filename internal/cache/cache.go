package cache

import (
	"context"
	"fmt"
	"sync"

	"pencil-translator/internal/textutil"

	"github.com/rs/zerolog/log"
)

// Store persists cached translations beyond one process.
type Store interface {
	Get(ctx context.Context, hash string) (string, bool, error)
	Set(ctx context.Context, hash, source, translated string) error
	All(ctx context.Context) (map[string]string, error)
}

// TranslationCache is an in-memory translation cache with an optional backing Store.
// Entries are keyed by target language and source text.
type TranslationCache struct {
	store  Store
	mu     sync.RWMutex
	memory map[string]string // hash → translated text
}

// NewTranslationCache creates a cache. A nil store keeps entries in memory only.
func NewTranslationCache(store Store) *TranslationCache {
	return &TranslationCache{
		store:  store,
		memory: make(map[string]string),
	}
}

// Key returns the cache key of sourceText translated into targetLang.
func Key(targetLang, sourceText string) string {
	return textutil.Hash(targetLang + "\x00" + sourceText)
}

// Get retrieves a cached translation.
func (c *TranslationCache) Get(ctx context.Context, targetLang, sourceText string) (string, bool) {
	hash := Key(targetLang, sourceText)

	c.mu.RLock()
	v, ok := c.memory[hash]
	c.mu.RUnlock()
	if ok {
		return v, true
	}

	if c.store == nil {
		return "", false
	}

	translated, found, err := c.store.Get(ctx, hash)
	if err != nil {
		log.Warn().Err(err).Str("text", textutil.Truncate(sourceText, 30)).Msg("Cache lookup failed")
		return "", false
	}
	if !found {
		return "", false
	}

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	return translated, true
}

// Set stores a translation in memory and in the backing store.
func (c *TranslationCache) Set(ctx context.Context, targetLang, sourceText, translated string) error {
	hash := Key(targetLang, sourceText)

	c.mu.Lock()
	c.memory[hash] = translated
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.Set(ctx, hash, sourceText, translated); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Len returns the number of entries held in memory.
func (c *TranslationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}

// Preload loads all persisted translations into memory.
func (c *TranslationCache) Preload(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	all, err := c.store.All(ctx)
	if err != nil {
		return fmt.Errorf("preload cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for hash, translated := range all {
		c.memory[hash] = translated
	}

	log.Info().Int("count", len(all)).Msg("Preloaded translation cache")
	return nil
}
