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
// Package resolve maps import specifiers to files on disk.
//
// Resolution never reads file contents beyond package manifests and never
// fails: an unresolvable specifier is a first-class outcome that callers
// classify, not an error.
package resolve

import (
	"path"
	"strings"

	"bennypowers.dev/retrofit/fs"
	"bennypowers.dev/retrofit/manifest"
)

// Logger is an interface for logging messages during resolution.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// extensions are tried, in order, after the literal path fails.
var extensions = []string{".js", ".mjs", ".cjs"}

// Resolution is the outcome of resolving one specifier.
// A zero Resolution means the specifier did not resolve.
type Resolution struct {
	// Path is the absolute path of the resolved file.
	Path string

	// PackageRoot is the root directory of the installed package or
	// path-mapped entry point the file belongs to. Empty for relative
	// resolutions inside the importing package.
	PackageRoot string

	// EntryPoint is that package's declared entry-point file for the
	// resolver's format. Empty when PackageRoot is empty.
	EntryPoint string
}

// Resolved reports whether the specifier resolved to a file.
func (r Resolution) Resolved() bool { return r.Path != "" }

// IsEntryPoint reports whether the resolved file is the owning package's
// declared entry point (as opposed to a deep import into its internals).
func (r Resolution) IsEntryPoint() bool {
	return r.PackageRoot != "" && r.Path == r.EntryPoint
}

// Resolver maps bare, relative and path-aliased specifiers to files.
type Resolver struct {
	fs        fs.FileSystem
	manifests manifest.Cache
	format    manifest.Format
	aliases   *Aliases
	logger    Logger
}

// New creates a Resolver for the given output format.
func New(fsys fs.FileSystem, format manifest.Format) *Resolver {
	return &Resolver{
		fs:        fsys,
		manifests: manifest.NewMemoryCache(),
		format:    format,
	}
}

// WithAliases returns a new Resolver that consults the given path-alias
// configuration before default resolution.
func (r *Resolver) WithAliases(aliases *Aliases) *Resolver {
	return &Resolver{
		fs:        r.fs,
		manifests: r.manifests,
		format:    r.format,
		aliases:   aliases,
		logger:    r.logger,
	}
}

// WithManifestCache returns a new Resolver sharing the given manifest cache.
func (r *Resolver) WithManifestCache(cache manifest.Cache) *Resolver {
	return &Resolver{
		fs:        r.fs,
		manifests: cache,
		format:    r.format,
		aliases:   r.aliases,
		logger:    r.logger,
	}
}

// WithLogger returns a new Resolver that logs through logger.
func (r *Resolver) WithLogger(logger Logger) *Resolver {
	return &Resolver{
		fs:        r.fs,
		manifests: r.manifests,
		format:    r.format,
		aliases:   r.aliases,
		logger:    logger,
	}
}

// Resolve maps specifier, imported from fromFile, to a file on disk.
// Aliases are consulted first; a matching alias whose candidates all fail
// falls through to the default algorithm.
func (r *Resolver) Resolve(specifier, fromFile string) Resolution {
	if r.aliases != nil {
		for _, candidate := range r.aliases.Candidates(specifier) {
			if res := r.resolveAsFileOrDirectory(candidate); res.Resolved() {
				return res
			}
		}
	}

	if strings.HasPrefix(specifier, ".") {
		return r.resolveAsFileOrDirectory(path.Join(path.Dir(fromFile), specifier))
	}
	if strings.HasPrefix(specifier, "/") {
		return r.resolveAsFileOrDirectory(specifier)
	}
	return r.resolveBare(specifier, fromFile)
}

// resolveBare walks parent directories looking for an installed package
// matching the specifier's package-name prefix.
func (r *Resolver) resolveBare(specifier, fromFile string) Resolution {
	pkgName, subpath := splitPackageSpecifier(specifier)

	for dir := path.Dir(fromFile); ; dir = path.Dir(dir) {
		pkgDir := path.Join(dir, "node_modules", pkgName)
		if r.fs.Exists(pkgDir) {
			if res := r.resolveInPackage(pkgDir, subpath); res.Resolved() {
				return res
			}
		}
		if dir == path.Dir(dir) {
			break
		}
	}

	if r.logger != nil {
		r.logger.Debug("no installed package for %q", specifier)
	}
	return Resolution{}
}

// resolveInPackage resolves a subpath within an installed package directory.
func (r *Resolver) resolveInPackage(pkgDir, subpath string) Resolution {
	entry := r.entryPointFile(pkgDir)

	if subpath == "" {
		if entry == "" {
			// No usable manifest entry; fall back to an index file.
			if res := r.resolveIndex(pkgDir); res.Resolved() {
				res.PackageRoot = pkgDir
				res.EntryPoint = res.Path
				return res
			}
			return Resolution{}
		}
		return Resolution{Path: entry, PackageRoot: pkgDir, EntryPoint: entry}
	}

	// Sub-path specifiers resolve relative to the package root. A sub-path
	// directory carrying its own manifest is a secondary entry point with
	// its own root.
	target := path.Join(pkgDir, subpath)
	if r.fs.Exists(path.Join(target, "package.json")) {
		return r.resolveInPackage(target, "")
	}

	res := r.resolveAsFileOrDirectory(target)
	if res.Resolved() && res.PackageRoot == "" {
		res.PackageRoot = pkgDir
		res.EntryPoint = entry
	}
	return res
}

// entryPointFile returns the absolute declared entry point of the package
// at pkgDir for the resolver's format, falling back through the other
// formats when the preferred one is absent.
func (r *Resolver) entryPointFile(pkgDir string) string {
	m, err := r.manifests.GetOrLoad(path.Join(pkgDir, "package.json"), func() (*manifest.Manifest, error) {
		return manifest.ParseFile(r.fs, path.Join(pkgDir, "package.json"))
	})
	if err != nil {
		return ""
	}

	order := []manifest.Format{r.format, manifest.FormatESM2015, manifest.FormatESM5, manifest.FormatCommonJS, manifest.FormatUMD}
	for _, f := range order {
		if file := m.EntryPointFile(f); file != "" {
			return path.Join(pkgDir, file)
		}
	}
	return ""
}

// resolveAsFileOrDirectory tries the literal path, standard extensions,
// then treats the path as a directory.
func (r *Resolver) resolveAsFileOrDirectory(p string) Resolution {
	if r.isFile(p) {
		return Resolution{Path: p}
	}
	for _, ext := range extensions {
		if r.isFile(p + ext) {
			return Resolution{Path: p + ext}
		}
	}
	if r.fs.Exists(path.Join(p, "package.json")) {
		return r.resolveInPackage(p, "")
	}
	return r.resolveIndex(p)
}

// resolveIndex resolves a directory to its index file.
func (r *Resolver) resolveIndex(dir string) Resolution {
	for _, ext := range extensions {
		index := path.Join(dir, "index"+ext)
		if r.isFile(index) {
			return Resolution{Path: index}
		}
	}
	return Resolution{}
}

func (r *Resolver) isFile(p string) bool {
	info, err := r.fs.Stat(p)
	return err == nil && !info.IsDir()
}

// splitPackageSpecifier splits a bare specifier into its package name and
// remaining sub-path. Handles scoped packages (@scope/name/subpath).
func splitPackageSpecifier(specifier string) (pkgName, subpath string) {
	parts := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 {
			return specifier, ""
		}
		pkgName = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return pkgName, subpath
	}
	if len(parts) == 1 {
		return specifier, ""
	}
	return parts[0], strings.Join(parts[1:], "/")
}
