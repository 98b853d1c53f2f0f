package engine

import (
	"context"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mg52/autocomplete/internal/pkg/normalize"
	"github.com/mg52/autocomplete/internal/pkg/trie"
)

// CategoryOptions configures a single category.
type CategoryOptions struct {
	CacheSize     int // search results kept per category, 0 disables the cache
	MaxWordLength int // normalized words longer than this are skipped, 0 = unlimited
}

type cacheKey struct {
	prefix string
	limit  int
}

// Category is one independently locked trie. Searches share the read lock,
// every mutation (including the rebuild swap) takes the write lock.
type Category struct {
	name          string
	maxWordLength int

	mu    sync.RWMutex
	trie  *trie.Trie
	cache *lru.Cache[cacheKey, []string] // purged by every writer
}

func NewCategory(name string, opts CategoryOptions) *Category {
	c := &Category{
		name:          name,
		maxWordLength: opts.MaxWordLength,
		trie:          trie.NewTrie(),
	}
	if opts.CacheSize > 0 {
		// lru.New only fails for non-positive sizes
		c.cache, _ = lru.New[cacheKey, []string](opts.CacheSize)
	}
	return c
}

func (c *Category) Name() string {
	return c.name
}

// Search returns up to limit indexed words starting with the normalized
// prefix. Callers own the returned slice.
func (c *Category) Search(prefix string, limit int) []string {
	key := cacheKey{prefix: normalize.String(prefix), limit: limit}
	cacheable := c.cache != nil && limit >= 0

	c.mu.RLock()
	defer c.mu.RUnlock()

	if cacheable {
		if res, ok := c.cache.Get(key); ok {
			CacheHits.WithLabelValues(c.name).Inc()
			return slices.Clone(res)
		}
	}
	res := c.trie.SearchPrefix(key.prefix, limit)
	if cacheable {
		// filled under the read lock so a concurrent writer purges after us
		c.cache.Add(key, res)
		return slices.Clone(res)
	}
	return res
}

// Contains reports whether the normalized word is indexed.
func (c *Category) Contains(word string) bool {
	key := normalize.String(word)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trie.Contains(key)
}

// AddBatch indexes every word and returns how many were new.
func (c *Category) AddBatch(words []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, w := range words {
		if c.insertInto(c.trie, w) {
			added++
		}
	}
	c.changedLocked()
	return added
}

func (c *Category) Add(word string) bool {
	return c.AddBatch([]string{word}) == 1
}

// Remove drops the normalized word and reports whether it was indexed.
func (c *Category) Remove(word string) bool {
	key := normalize.String(word)
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.trie.Remove(key)
	if removed {
		c.changedLocked()
	}
	return removed
}

// SwapWith installs t as the live trie and returns the previous one. The
// write lock is held only for the pointer exchange.
func (c *Category) SwapWith(t *trie.Trie) *trie.Trie {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.trie
	c.trie = t
	c.changedLocked()
	return old
}

// Words returns every indexed word.
func (c *Category) Words() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trie.Words()
}

func (c *Category) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trie.Len()
}

func (c *Category) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trie.Clear()
	c.changedLocked()
}

// build constructs a private trie from raw words with the same rules as
// AddBatch. It takes no lock: the result is not visible to readers until it
// is passed to SwapWith.
func (c *Category) build(ctx context.Context, words []string) (*trie.Trie, error) {
	keys := normalize.Strings(words)
	if c.maxWordLength > 0 {
		keys = slices.DeleteFunc(keys, func(k string) bool {
			return len(k) > c.maxWordLength
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return trie.FromWords(keys), nil
}

func (c *Category) insertInto(t *trie.Trie, word string) bool {
	key := normalize.String(word)
	if c.maxWordLength > 0 && len(key) > c.maxWordLength {
		return false
	}
	return t.Insert(key)
}

func (c *Category) changedLocked() {
	if c.cache != nil {
		c.cache.Purge()
	}
	WordCount.WithLabelValues(c.name).Set(float64(c.trie.Len()))
}
