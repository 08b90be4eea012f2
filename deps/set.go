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
package deps

// ImportRecord is one top-level import or re-export statement scanned
// from a file.
type ImportRecord struct {
	// Specifier is the module specifier string as written.
	Specifier string

	// IsTypeOnly marks `import type` / `export type` statements.
	IsTypeOnly bool
}

// DependencySet partitions everything one entry point imports.
// The three partitions are disjoint: every scanned specifier lands in
// exactly one, or in none when it resolves to an internal file covered
// by recursion.
type DependencySet struct {
	// Dependencies holds resolved roots of external packages or
	// secondary entry points, in first-discovery order, deduplicated.
	Dependencies []string

	// Missing holds specifiers that failed to resolve.
	Missing []string

	// DeepImports holds resolved paths inside an external package that
	// are not that package's declared entry point. Reported for
	// diagnostics; not treated as package dependencies.
	DeepImports []string

	depSeen     map[string]bool
	missingSeen map[string]bool
	deepSeen    map[string]bool
}

// NewDependencySet creates an empty set.
func NewDependencySet() *DependencySet {
	return &DependencySet{
		depSeen:     make(map[string]bool),
		missingSeen: make(map[string]bool),
		deepSeen:    make(map[string]bool),
	}
}

// AddDependency records an external package/entry-point root.
func (s *DependencySet) AddDependency(root string) {
	if s.depSeen[root] {
		return
	}
	s.depSeen[root] = true
	s.Dependencies = append(s.Dependencies, root)
}

// AddMissing records a specifier that failed to resolve.
func (s *DependencySet) AddMissing(specifier string) {
	if s.missingSeen[specifier] {
		return
	}
	s.missingSeen[specifier] = true
	s.Missing = append(s.Missing, specifier)
}

// AddDeepImport records a resolved path inside an external package.
func (s *DependencySet) AddDeepImport(path string) {
	if s.deepSeen[path] {
		return
	}
	s.deepSeen[path] = true
	s.DeepImports = append(s.DeepImports, path)
}

// Merge folds other's partitions into this set, preserving this set's
// discovery order first.
func (s *DependencySet) Merge(other *DependencySet) {
	for _, d := range other.Dependencies {
		s.AddDependency(d)
	}
	for _, m := range other.Missing {
		s.AddMissing(m)
	}
	for _, d := range other.DeepImports {
		s.AddDeepImport(d)
	}
}
