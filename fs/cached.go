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
package fs

import (
	"io/fs"
	"sync"
)

// CachingFileSystem wraps a FileSystem and memoizes ReadFile results so
// that each distributed file is read from disk at most once per run.
// Writes pass through and update the cache; the cache is never
// invalidated otherwise - a compilation pass treats its inputs as frozen.
type CachingFileSystem struct {
	FileSystem

	mu    sync.RWMutex
	reads map[string][]byte
}

// NewCachingFileSystem wraps delegate with a read cache.
func NewCachingFileSystem(delegate FileSystem) *CachingFileSystem {
	return &CachingFileSystem{
		FileSystem: delegate,
		reads:      make(map[string][]byte),
	}
}

// ReadFile returns the cached content for name, reading through the
// delegate on first access. Failed reads are not cached.
func (c *CachingFileSystem) ReadFile(name string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.reads[name]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := c.FileSystem.ReadFile(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.reads[name] = data
	c.mu.Unlock()
	return data, nil
}

// WriteFile writes through to the delegate and refreshes the cache entry,
// so a rewritten file read back within the same run reflects the rewrite.
func (c *CachingFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := c.FileSystem.WriteFile(name, data, perm); err != nil {
		return err
	}
	c.mu.Lock()
	c.reads[name] = data
	c.mu.Unlock()
	return nil
}

// Remove drops the cache entry along with the underlying file.
func (c *CachingFileSystem) Remove(name string) error {
	if err := c.FileSystem.Remove(name); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.reads, name)
	c.mu.Unlock()
	return nil
}
