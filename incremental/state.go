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
// Package incremental tracks which files are provably unaffected between
// two compilation passes, so their analysis metadata can be reused.
package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"sort"
	"sync"

	"bennypowers.dev/retrofit/fs"
	"bennypowers.dev/retrofit/jsparse"
)

// Snapshot maps each file path in a compiler pass to a digest of its
// content. Two snapshots agree on a file when the digests are equal.
type Snapshot map[string]string

// Digest computes the content digest used in snapshots.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// SnapshotFiles builds a Snapshot for the given paths.
func SnapshotFiles(fsys fs.FileSystem, paths []string) (Snapshot, error) {
	snap := make(Snapshot, len(paths))
	for _, p := range paths {
		content, err := fsys.ReadFile(p)
		if err != nil {
			return nil, err
		}
		snap[p] = Digest(content)
	}
	return snap, nil
}

// MetadataKind selects one of the per-class analysis registries.
type MetadataKind int

const (
	DirectiveMetadata MetadataKind = iota
	ModuleMetadata
	PipeMetadata
	metadataKinds
)

// fileMetadata accumulates what one pass learned about one file.
type fileMetadata struct {
	// fileDeps is the set of files this file's analysis depends on.
	fileDeps map[string]bool

	// classes holds per-class analysis results for each metadata kind,
	// keyed by the class declaration node's start byte within the file.
	classes [metadataKinds]map[uint]any
}

func newFileMetadata() *fileMetadata {
	return &fileMetadata{fileDeps: make(map[string]bool)}
}

func (fm *fileMetadata) clone() *fileMetadata {
	c := newFileMetadata()
	maps.Copy(c.fileDeps, fm.fileDeps)
	for kind, m := range fm.classes {
		if m == nil {
			continue
		}
		c.classes[kind] = make(map[uint]any, len(m))
		maps.Copy(c.classes[kind], m)
	}
	return c
}

// State is the incremental compilation state for one pass. Reconciliation
// produces a new State from the previous one; registration methods mutate
// metadata during the pass, but reconciliation itself never touches its
// inputs.
type State struct {
	mu        sync.RWMutex
	unchanged map[string]bool
	metadata  map[string]*fileMetadata
}

// NewState creates a fresh, empty state: nothing unchanged, no metadata.
func NewState() *State {
	return &State{
		unchanged: make(map[string]bool),
		metadata:  make(map[string]*fileMetadata),
	}
}

// Reconcile derives the state for a new pass from the previous state and
// two snapshots. A file is unchanged when its digest agrees between the
// snapshots and every file dependency recorded for it last pass is still
// present in newFiles (dependency lists are already transitive closures,
// so one level suffices). A declaration file appearing in newFiles with
// no old counterpart invalidates everything: declaration files are not
// individually tracked, so reuse would be unsound.
//
// previous is never mutated; carried-forward metadata is deep-copied.
func Reconcile(previous *State, oldFiles, newFiles Snapshot) *State {
	next := NewState()
	if previous == nil {
		return next
	}

	for path := range newFiles {
		if jsparse.IsDeclarationPath(path) {
			if _, existed := oldFiles[path]; !existed {
				return NewState()
			}
		}
	}

	previous.mu.RLock()
	defer previous.mu.RUnlock()

	for path, digest := range newFiles {
		oldDigest, existed := oldFiles[path]
		if !existed || oldDigest != digest {
			continue
		}
		if fm := previous.metadata[path]; fm != nil {
			stale := false
			for dep := range fm.fileDeps {
				if _, present := newFiles[dep]; !present {
					stale = true
					break
				}
			}
			if stale {
				continue
			}
			next.metadata[path] = fm.clone()
		}
		next.unchanged[path] = true
	}

	return next
}

// SafeToSkip reports whether a file was marked unchanged by
// reconciliation, meaning its prior analysis may be reused wholesale.
func (s *State) SafeToSkip(file string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unchanged[file]
}

// UnchangedFiles returns the unchanged set, sorted for determinism.
func (s *State) UnchangedFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make([]string, 0, len(s.unchanged))
	for f := range s.unchanged {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// TrackFileDependency records that dependent's analysis observed a
// structural dependency on dependency. Idempotent: repeated calls add to
// a set.
func (s *State) TrackFileDependency(dependency, dependent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileMetadataLocked(dependent).fileDeps[dependency] = true
}

// FileDependencies returns the recorded dependency set of a file as a
// sorted sequence (order carries no meaning; sorting keeps it stable).
func (s *State) FileDependencies(file string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fm := s.metadata[file]
	if fm == nil {
		return nil
	}
	deps := make([]string, 0, len(fm.fileDeps))
	for d := range fm.fileDeps {
		deps = append(deps, d)
	}
	sort.Strings(deps)
	return deps
}

// RegisterMetadata stores a per-class analysis result, keyed by the class
// declaration node's start byte within file.
func (s *State) RegisterMetadata(kind MetadataKind, file string, node uint, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fm := s.fileMetadataLocked(file)
	if fm.classes[kind] == nil {
		fm.classes[kind] = make(map[uint]any)
	}
	fm.classes[kind][node] = value
}

// Metadata retrieves a previously registered per-class analysis result.
func (s *State) Metadata(kind MetadataKind, file string, node uint) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fm := s.metadata[file]
	if fm == nil || fm.classes[kind] == nil {
		return nil, false
	}
	v, ok := fm.classes[kind][node]
	return v, ok
}

// RegisterDirectiveMetadata stores a directive analysis result.
func (s *State) RegisterDirectiveMetadata(file string, node uint, value any) {
	s.RegisterMetadata(DirectiveMetadata, file, node, value)
}

// DirectiveMetadataFor retrieves a directive analysis result.
func (s *State) DirectiveMetadataFor(file string, node uint) (any, bool) {
	return s.Metadata(DirectiveMetadata, file, node)
}

// RegisterModuleMetadata stores a module analysis result.
func (s *State) RegisterModuleMetadata(file string, node uint, value any) {
	s.RegisterMetadata(ModuleMetadata, file, node, value)
}

// ModuleMetadataFor retrieves a module analysis result.
func (s *State) ModuleMetadataFor(file string, node uint) (any, bool) {
	return s.Metadata(ModuleMetadata, file, node)
}

// RegisterPipeMetadata stores a pipe analysis result.
func (s *State) RegisterPipeMetadata(file string, node uint, value any) {
	s.RegisterMetadata(PipeMetadata, file, node, value)
}

// PipeMetadataFor retrieves a pipe analysis result.
func (s *State) PipeMetadataFor(file string, node uint) (any, bool) {
	return s.Metadata(PipeMetadata, file, node)
}

func (s *State) fileMetadataLocked(file string) *fileMetadata {
	fm := s.metadata[file]
	if fm == nil {
		fm = newFileMetadata()
		s.metadata[file] = fm
	}
	return fm
}
