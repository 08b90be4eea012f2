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
// Package deps discovers which packages an entry point depends on, and
// orders entry points so dependencies compile before dependents.
package deps

import (
	"path"
	"regexp"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/retrofit/fs"
	"bennypowers.dev/retrofit/jsparse"
	"bennypowers.dev/retrofit/resolve"
)

// importShaped is a cheap textual pre-filter: files whose raw text cannot
// contain an import or re-export statement are never parsed at all.
var importShaped = regexp.MustCompile(`(?:import|export)[\s\S]+?['"]`)

// Host finds the dependencies of entry-point files by scanning their
// top-level import and re-export statements.
type Host struct {
	fs       fs.FileSystem
	sources  *jsparse.Cache
	resolver *resolve.Resolver
	logger   resolve.Logger

	// onFileDependency, when set, observes every internal file visited
	// under an entry point, so incremental state can track file-level
	// dependencies.
	onFileDependency func(dependency, dependent string)
}

// NewHost creates a dependency host.
func NewHost(fsys fs.FileSystem, sources *jsparse.Cache, resolver *resolve.Resolver) *Host {
	return &Host{fs: fsys, sources: sources, resolver: resolver}
}

// WithLogger returns a new Host that logs through logger.
func (h *Host) WithLogger(logger resolve.Logger) *Host {
	return &Host{fs: h.fs, sources: h.sources, resolver: h.resolver, logger: logger, onFileDependency: h.onFileDependency}
}

// WithFileDependencyObserver returns a new Host that reports each visited
// internal file to fn as a dependency of the entry file.
func (h *Host) WithFileDependencyObserver(fn func(dependency, dependent string)) *Host {
	return &Host{fs: h.fs, sources: h.sources, resolver: h.resolver, logger: h.logger, onFileDependency: fn}
}

// FindDependencies scans entryFile and every internal file reachable from
// it, returning the external dependency partitions. Internal import
// cycles are tolerated via a visited set.
func (h *Host) FindDependencies(entryFile string) (*DependencySet, error) {
	set := NewDependencySet()
	pkgRoot := h.packageRoot(entryFile)
	visited := make(map[string]bool)
	if err := h.scan(entryFile, entryFile, pkgRoot, set, visited); err != nil {
		return nil, err
	}
	return set, nil
}

// scan processes one internal file, recursing into internal targets.
func (h *Host) scan(file, entryFile, pkgRoot string, set *DependencySet, visited map[string]bool) error {
	if visited[file] {
		return nil
	}
	visited[file] = true

	if file != entryFile && h.onFileDependency != nil {
		h.onFileDependency(file, entryFile)
	}

	records, err := h.scanFile(file)
	if err != nil {
		return err
	}

	for _, record := range records {
		res := h.resolver.Resolve(record.Specifier, file)
		switch {
		case !res.Resolved():
			set.AddMissing(record.Specifier)
		case h.isInternal(res, pkgRoot):
			if err := h.scan(res.Path, entryFile, pkgRoot, set, visited); err != nil {
				return err
			}
		case res.IsEntryPoint():
			set.AddDependency(res.PackageRoot)
		default:
			set.AddDeepImport(res.Path)
		}
	}
	return nil
}

// scanFile returns the import records of one file's top-level statements.
// Files failing the textual pre-filter return nil without a tree ever
// being constructed.
func (h *Host) scanFile(file string) ([]ImportRecord, error) {
	content, err := h.fs.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if !importShaped.Match(content) {
		return nil, nil
	}

	sf, err := h.sources.Load(file)
	if err != nil {
		return nil, err
	}
	return TopLevelImports(sf), nil
}

// TopLevelImports walks only the top-level statements of a parsed file
// (never nested scopes) and returns static imports and re-exports that
// carry a string module specifier.
func TopLevelImports(sf *jsparse.SourceFile) []ImportRecord {
	var records []ImportRecord
	root := sf.Root()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Kind() {
		case "import_statement", "export_statement":
			source := stmt.ChildByFieldName("source")
			if source == nil {
				continue
			}
			records = append(records, ImportRecord{
				Specifier:  unquote(sf.Text(source)),
				IsTypeOnly: isTypeOnly(stmt, sf),
			})
		}
	}
	return records
}

// isTypeOnly reports whether an import/export statement carries the
// `type` keyword.
func isTypeOnly(stmt *ts.Node, sf *jsparse.SourceFile) bool {
	for i := uint(0); i < stmt.ChildCount(); i++ {
		child := stmt.Child(i)
		if child.Kind() == "type" && sf.Text(child) == "type" {
			return true
		}
	}
	return false
}

// isInternal reports whether a resolution stays inside the entry point's
// own package.
func (h *Host) isInternal(res resolve.Resolution, pkgRoot string) bool {
	if res.PackageRoot != "" && res.PackageRoot != pkgRoot {
		return false
	}
	return res.Path == pkgRoot || strings.HasPrefix(res.Path, pkgRoot+"/")
}

// packageRoot walks up from file to the nearest directory with a
// package.json, defaulting to the file's own directory.
func (h *Host) packageRoot(file string) string {
	for dir := path.Dir(file); ; dir = path.Dir(dir) {
		if h.fs.Exists(path.Join(dir, "package.json")) {
			return dir
		}
		if dir == path.Dir(dir) {
			return path.Dir(file)
		}
	}
}

// unquote strips the string delimiters from a specifier literal.
func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
