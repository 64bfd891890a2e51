package client

import (
	"net/http"
	"sync"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/peterbourgon/diskv"
)

// PurgeableCache is an HTTP cache that can be emptied when the credential
// its responses were fetched with goes away.
type PurgeableCache interface {
	httpcache.Cache
	Purge() error
}

// NewCachingTransport wraps next with an HTTP cache honoring Cache-Control,
// ETag and Vary from the API. With an empty cacheDir the cache lives in
// memory for the life of the process; otherwise it persists on disk across
// invocations of the CLI.
func NewCachingTransport(cacheDir string, next http.RoundTripper) (*httpcache.Transport, PurgeableCache) {
	var cache PurgeableCache
	if cacheDir == "" {
		cache = newMemoryCache()
	} else {
		cache = newDiskCache(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = next
	transport.MarkCachedResponses = true

	return transport, cache
}

type diskCache struct {
	*diskcache.Cache
	store *diskv.Diskv
}

func newDiskCache(dir string) *diskCache {
	store := diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 100 * 1024 * 1024,
	})
	return &diskCache{Cache: diskcache.NewWithDiskv(store), store: store}
}

// Purge removes the cache directory, including entries written by earlier
// runs.
func (c *diskCache) Purge() error {
	return c.store.EraseAll()
}

// memoryCache tracks the keys it holds so they can all be deleted.
type memoryCache struct {
	*httpcache.MemoryCache

	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemoryCache() *memoryCache {
	return &memoryCache{MemoryCache: httpcache.NewMemoryCache(), keys: map[string]struct{}{}}
}

func (c *memoryCache) Set(key string, resp []byte) {
	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
	c.MemoryCache.Set(key, resp)
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
	c.MemoryCache.Delete(key)
}

func (c *memoryCache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.keys {
		c.MemoryCache.Delete(key)
	}
	clear(c.keys)
	return nil
}
