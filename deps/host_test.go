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
package deps_test

import (
	"reflect"
	"testing"

	"bennypowers.dev/retrofit/deps"
	"bennypowers.dev/retrofit/internal/mapfs"
	"bennypowers.dev/retrofit/jsparse"
	"bennypowers.dev/retrofit/manifest"
	"bennypowers.dev/retrofit/resolve"
)

func newHost(t *testing.T, mfs *mapfs.MapFileSystem) (*deps.Host, *jsparse.Cache) {
	t.Helper()
	cache, err := jsparse.NewCache(mfs, 0)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	resolver := resolve.New(mfs, manifest.FormatESM5)
	return deps.NewHost(mfs, cache, resolver), cache
}

func addPackage(mfs *mapfs.MapFileSystem, root, name string) {
	mfs.AddFile(root+"/package.json", `{"name":"`+name+`","module":"index.js"}`, 0644)
	mfs.AddFile(root+"/index.js", `export const marker = true;`, 0644)
}

func TestNoImportsBuildsNoTree(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/pkg/package.json", `{"name":"pkg","module":"index.js"}`, 0644)
	mfs.AddFile("/pkg/index.js", `var x = 1;\nconsole.log(x);`, 0644)

	host, cache := newHost(t, mfs)
	set, err := host.FindDependencies("/pkg/index.js")
	if err != nil {
		t.Fatalf("FindDependencies failed: %v", err)
	}

	if len(set.Dependencies)+len(set.Missing)+len(set.DeepImports) != 0 {
		t.Errorf("expected empty partitions, got %+v", set)
	}
	if cache.Len() != 0 {
		t.Errorf("no syntax tree should have been constructed, cache holds %d", cache.Len())
	}
}

func TestExternalDependencyClassification(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/pkg/package.json", `{"name":"pkg","module":"index.js"}`, 0644)
	mfs.AddFile("/pkg/index.js",
		`import { a } from 'lib-1';
import { b } from 'lib-1/sub';
import { c } from './internal.js';
import { d } from 'absent';
export * from 'lib-2';
`, 0644)
	mfs.AddFile("/pkg/internal.js", `import { e } from 'lib-2';`, 0644)
	mfs.AddFile("/pkg/node_modules/lib-1/package.json", `{"name":"lib-1","module":"index.js"}`, 0644)
	mfs.AddFile("/pkg/node_modules/lib-1/index.js", ``, 0644)
	mfs.AddFile("/pkg/node_modules/lib-1/sub.js", ``, 0644)
	addPackage(mfs, "/pkg/node_modules/lib-2", "lib-2")

	host, _ := newHost(t, mfs)
	set, err := host.FindDependencies("/pkg/index.js")
	if err != nil {
		t.Fatalf("FindDependencies failed: %v", err)
	}

	expectedDeps := []string{"/pkg/node_modules/lib-1", "/pkg/node_modules/lib-2"}
	if !reflect.DeepEqual(set.Dependencies, expectedDeps) {
		t.Errorf("Dependencies = %v, expected %v", set.Dependencies, expectedDeps)
	}
	if !reflect.DeepEqual(set.Missing, []string{"absent"}) {
		t.Errorf("Missing = %v, expected [absent]", set.Missing)
	}
	if !reflect.DeepEqual(set.DeepImports, []string{"/pkg/node_modules/lib-1/sub.js"}) {
		t.Errorf("DeepImports = %v", set.DeepImports)
	}
}

// Multiple sub-path imports of the same external package root count once.
func TestDependenciesDeduplicateByRoot(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/pkg/package.json", `{"name":"pkg","module":"index.js"}`, 0644)
	mfs.AddFile("/pkg/index.js",
		`import { a } from 'lib-1';
import { b } from './other.js';
`, 0644)
	mfs.AddFile("/pkg/other.js", `import { c } from 'lib-1';`, 0644)
	addPackage(mfs, "/pkg/node_modules/lib-1", "lib-1")

	host, _ := newHost(t, mfs)
	set, err := host.FindDependencies("/pkg/index.js")
	if err != nil {
		t.Fatalf("FindDependencies failed: %v", err)
	}
	if len(set.Dependencies) != 1 {
		t.Errorf("expected 1 dependency, got %v", set.Dependencies)
	}
}

func TestInternalCycleTerminates(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/pkg/package.json", `{"name":"pkg","module":"a.js"}`, 0644)
	mfs.AddFile("/pkg/a.js", `import './b.js'; import 'lib-1';`, 0644)
	mfs.AddFile("/pkg/b.js", `import './c.js';`, 0644)
	mfs.AddFile("/pkg/c.js", `import './a.js'; import 'lib-2';`, 0644)
	addPackage(mfs, "/pkg/node_modules/lib-1", "lib-1")
	addPackage(mfs, "/pkg/node_modules/lib-2", "lib-2")

	host, _ := newHost(t, mfs)
	set, err := host.FindDependencies("/pkg/a.js")
	if err != nil {
		t.Fatalf("FindDependencies failed: %v", err)
	}

	expected := []string{"/pkg/node_modules/lib-1", "/pkg/node_modules/lib-2"}
	if !reflect.DeepEqual(set.Dependencies, expected) {
		t.Errorf("Dependencies = %v, expected %v", set.Dependencies, expected)
	}
}

func TestTypeOnlyImportsAreScanned(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/pkg/index.ts", `import type { T } from './types';
import { x } from './impl';`, 0644)
	mfs.AddFile("/pkg/types.ts", ``, 0644)
	mfs.AddFile("/pkg/impl.ts", ``, 0644)

	cache, err := jsparse.NewCache(mfs, 0)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	sf, err := cache.Load("/pkg/index.ts")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	records := deps.TopLevelImports(sf)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[0].IsTypeOnly {
		t.Error("first import should be type-only")
	}
	if records[1].IsTypeOnly {
		t.Error("second import should not be type-only")
	}
}

// Nested imports (inside functions) must not be scanned.
func TestOnlyTopLevelStatementsScanned(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/pkg/package.json", `{"name":"pkg","module":"index.js"}`, 0644)
	mfs.AddFile("/pkg/index.js",
		`import 'lib-1';
function load() {
  return import('lib-2');
}
`, 0644)
	addPackage(mfs, "/pkg/node_modules/lib-1", "lib-1")
	addPackage(mfs, "/pkg/node_modules/lib-2", "lib-2")

	host, _ := newHost(t, mfs)
	set, err := host.FindDependencies("/pkg/index.js")
	if err != nil {
		t.Fatalf("FindDependencies failed: %v", err)
	}
	if !reflect.DeepEqual(set.Dependencies, []string{"/pkg/node_modules/lib-1"}) {
		t.Errorf("Dependencies = %v, expected only lib-1", set.Dependencies)
	}
}

func TestFileDependencyObserver(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/pkg/package.json", `{"name":"pkg","module":"index.js"}`, 0644)
	mfs.AddFile("/pkg/index.js", `import './a.js';`, 0644)
	mfs.AddFile("/pkg/a.js", `import './b.js';`, 0644)
	mfs.AddFile("/pkg/b.js", ``, 0644)

	observed := make(map[string]string)
	host, _ := newHost(t, mfs)
	host = host.WithFileDependencyObserver(func(dependency, dependent string) {
		observed[dependency] = dependent
	})

	if _, err := host.FindDependencies("/pkg/index.js"); err != nil {
		t.Fatalf("FindDependencies failed: %v", err)
	}

	for _, file := range []string{"/pkg/a.js", "/pkg/b.js"} {
		if observed[file] != "/pkg/index.js" {
			t.Errorf("expected %s observed as dependency of the entry file, got %q", file, observed[file])
		}
	}
}
