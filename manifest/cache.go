/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package manifest

import "sync"

// Cache provides a caching interface for parsed manifests. Resolution
// consults the same manifests repeatedly (entry-point lookup happens once
// per bare specifier per file), so callers share one cache per run.
type Cache interface {
	// Get retrieves a cached manifest by its file path.
	Get(path string) (*Manifest, bool)

	// Set stores a parsed manifest in the cache, keyed by file path.
	Set(path string, m *Manifest)

	// Invalidate removes a cached entry, typically after rewriting the file.
	Invalidate(path string)

	// GetOrLoad atomically retrieves from cache or loads using the provided
	// function. Only one goroutine executes the loader for a given path.
	GetOrLoad(path string, loader func() (*Manifest, error)) (*Manifest, error)
}

// cacheEntry holds a cached value and coordinates concurrent loading.
type cacheEntry struct {
	m    *Manifest
	err  error
	once sync.Once
}

// MemoryCache is a thread-safe in-memory implementation of Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	cache   map[string]*Manifest
	loading sync.Map // map[string]*cacheEntry for in-flight loads
}

// NewMemoryCache creates a new in-memory manifest cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string]*Manifest),
	}
}

// Get retrieves a cached manifest by its file path.
func (c *MemoryCache) Get(path string) (*Manifest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.cache[path]
	return m, ok
}

// Set stores a parsed manifest in the cache.
func (c *MemoryCache) Set(path string, m *Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[path] = m
}

// Invalidate removes a cached entry and any in-flight loading state.
func (c *MemoryCache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.cache, path)
	c.mu.Unlock()
	c.loading.Delete(path)
}

// GetOrLoad atomically retrieves from cache or loads using the provided
// function. Only one goroutine will execute the loader for a given path;
// others wait for the result.
func (c *MemoryCache) GetOrLoad(path string, loader func() (*Manifest, error)) (*Manifest, error) {
	c.mu.RLock()
	if m, ok := c.cache[path]; ok {
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	actual, _ := c.loading.LoadOrStore(path, &cacheEntry{})
	entry := actual.(*cacheEntry)

	entry.once.Do(func() {
		entry.m, entry.err = loader()
		if entry.err == nil {
			c.mu.Lock()
			c.cache[path] = entry.m
			c.mu.Unlock()
		}
	})

	// Entries stay in c.loading until Invalidate: deleting here would race
	// with concurrent LoadOrStore calls, and entries are small.
	return entry.m, entry.err
}
