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
// Package entrypoint discovers the compilable entry points of a package
// directory: the package root plus any nested directory carrying its own
// manifest (a secondary entry point), each declaring one or more format
// entry-point files.
package entrypoint

import (
	"fmt"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/retrofit/fs"
	"bennypowers.dev/retrofit/manifest"
	"bennypowers.dev/retrofit/resolve"
)

// defaultIgnorePatterns excludes installed dependencies and dotted
// directories from discovery.
var defaultIgnorePatterns = []string{
	"node_modules",
	"node_modules/**",
	".*",
	".*/**",
}

// EntryPoint is one compilable entry point of a package.
type EntryPoint struct {
	// Path is the entry point's directory.
	Path string

	// PackageRoot is the top-level package directory; equal to Path for
	// the primary entry point.
	PackageRoot string

	// ManifestPath is the entry point's own package.json.
	ManifestPath string

	Manifest *manifest.Manifest
}

// FileFor returns the absolute entry-point file for a format, or empty
// when the manifest declares none.
func (e *EntryPoint) FileFor(format manifest.Format) string {
	file := e.Manifest.EntryPointFile(format)
	if file == "" {
		return ""
	}
	return path.Join(e.Path, file)
}

// TypingsFile returns the absolute declared typings file, or empty.
func (e *EntryPoint) TypingsFile() string {
	file := e.Manifest.TypingsFile()
	if file == "" {
		return ""
	}
	return path.Join(e.Path, file)
}

// Formats returns the formats this entry point declares files for.
func (e *EntryPoint) Formats() []manifest.Format {
	return e.Manifest.Formats()
}

// Finder discovers entry points under a package directory.
type Finder struct {
	fs        fs.FileSystem
	manifests manifest.Cache
	ignore    []string
	logger    resolve.Logger
}

// NewFinder creates a Finder with the default ignore patterns.
func NewFinder(fsys fs.FileSystem) *Finder {
	return &Finder{
		fs:        fsys,
		manifests: manifest.NewMemoryCache(),
		ignore:    defaultIgnorePatterns,
	}
}

// WithManifestCache returns a new Finder sharing the given manifest
// cache.
func (f *Finder) WithManifestCache(cache manifest.Cache) *Finder {
	return &Finder{fs: f.fs, manifests: cache, ignore: f.ignore, logger: f.logger}
}

// WithIgnorePatterns returns a new Finder that additionally skips
// directories whose package-relative path matches any pattern.
func (f *Finder) WithIgnorePatterns(patterns []string) (*Finder, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	merged := make([]string, 0, len(f.ignore)+len(patterns))
	merged = append(merged, f.ignore...)
	merged = append(merged, patterns...)
	return &Finder{fs: f.fs, manifests: f.manifests, ignore: merged, logger: f.logger}, nil
}

// WithLogger returns a new Finder that logs through logger.
func (f *Finder) WithLogger(logger resolve.Logger) *Finder {
	return &Finder{fs: f.fs, manifests: f.manifests, ignore: f.ignore, logger: logger}
}

// FindEntryPoints walks packageDir and returns every directory carrying
// a manifest that declares at least one format entry point, sorted by
// path. A directory with a manifest but no recognizable format fields is
// skipped, not an error.
func (f *Finder) FindEntryPoints(packageDir string) ([]*EntryPoint, error) {
	if !f.fs.Exists(path.Join(packageDir, "package.json")) {
		return nil, fmt.Errorf("%s is not a package: no package.json", packageDir)
	}

	var found []*EntryPoint
	var walk func(dir string) error
	walk = func(dir string) error {
		if ep := f.entryPointAt(dir, packageDir); ep != nil {
			found = append(found, ep)
		}
		entries, err := f.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			child := path.Join(dir, entry.Name())
			rel, err := relPath(packageDir, child)
			if err != nil {
				continue
			}
			if f.ignored(rel) {
				continue
			}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(packageDir); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

func (f *Finder) entryPointAt(dir, packageRoot string) *EntryPoint {
	manifestPath := path.Join(dir, "package.json")
	if !f.fs.Exists(manifestPath) {
		return nil
	}
	m, err := f.manifests.GetOrLoad(manifestPath, func() (*manifest.Manifest, error) {
		return manifest.ParseFile(f.fs, manifestPath)
	})
	if err != nil {
		if f.logger != nil {
			f.logger.Warning("unreadable manifest at %s: %v", manifestPath, err)
		}
		return nil
	}
	if len(m.Formats()) == 0 {
		if f.logger != nil {
			f.logger.Debug("no format entry points declared in %s", manifestPath)
		}
		return nil
	}
	return &EntryPoint{
		Path:         dir,
		PackageRoot:  packageRoot,
		ManifestPath: manifestPath,
		Manifest:     m,
	}
}

func (f *Finder) ignored(rel string) bool {
	for _, pattern := range f.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// relPath computes child's path relative to root using slash paths.
func relPath(root, child string) (string, error) {
	if child == root {
		return ".", nil
	}
	prefix := root
	if prefix != "/" {
		prefix += "/"
	}
	if len(child) <= len(prefix) || child[:len(prefix)] != prefix {
		return "", fmt.Errorf("%s is outside %s", child, root)
	}
	return child[len(prefix):], nil
}
