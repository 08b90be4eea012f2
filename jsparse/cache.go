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
package jsparse

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/retrofit/fs"
)

// DefaultCacheSize bounds the number of parsed trees held at once.
// Large distributions can hold thousands of files; trees dominate the
// process footprint, so the cache evicts least-recently-used ones.
const DefaultCacheSize = 2048

// SourceFile is an immutable parsed view of one on-disk file.
// Identity is the absolute path; the tree is never mutated - rewriting
// produces new output text elsewhere.
type SourceFile struct {
	Path    string
	Content []byte
	Tree    *ts.Tree
}

// Root returns the root syntax node.
func (sf *SourceFile) Root() *ts.Node {
	return sf.Tree.RootNode()
}

// Text returns the source text of a node within this file.
func (sf *SourceFile) Text(n *ts.Node) string {
	return n.Utf8Text(sf.Content)
}

// IsDeclaration reports whether this is a typings-only declaration file.
func (sf *SourceFile) IsDeclaration() bool {
	return IsDeclarationPath(sf.Path)
}

// IsDeclarationPath reports whether a path names a declaration file.
func IsDeclarationPath(path string) bool {
	return strings.HasSuffix(path, ".d.ts")
}

// Cache loads and parses source files at most once per pass, keyed by
// absolute path. Entries stay valid for a whole pass; only rewriting a
// file in place invalidates its entry, so a later pass reparses it.
type Cache struct {
	mu  sync.Mutex
	fs  fs.FileSystem
	lru *lru.Cache[string, *SourceFile]
}

// NewCache creates a source-file cache over the given filesystem.
func NewCache(fsys fs.FileSystem, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	evicting, err := lru.NewWithEvict(size, func(_ string, sf *SourceFile) {
		sf.Tree.Close()
	})
	if err != nil {
		return nil, err
	}
	return &Cache{fs: fsys, lru: evicting}, nil
}

// Load returns the parsed source file for path, reading and parsing it on
// first access.
func (c *Cache) Load(path string) (*SourceFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sf, ok := c.lru.Get(path); ok {
		return sf, nil
	}

	content, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := Parse(content)
	if err != nil {
		return nil, err
	}

	sf := &SourceFile{Path: path, Content: content, Tree: tree}
	c.lru.Add(path, sf)
	return sf, nil
}

// Invalidate drops a cached entry, typically after the file was rewritten
// between passes. The evicted tree is closed.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(path)
}

// Len reports the number of cached files, for diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
