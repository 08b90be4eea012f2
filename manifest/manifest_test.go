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
package manifest_test

import (
	"testing"

	"bennypowers.dev/retrofit/internal/mapfs"
	"bennypowers.dev/retrofit/manifest"
)

func TestEntryPointFile(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		format   manifest.Format
		expected string
	}{
		{
			"fesm2015 wins over es2015",
			`{"name":"lib","es2015":"./es2015/index.js","fesm2015":"./fesm2015/lib.js"}`,
			manifest.FormatESM2015,
			"fesm2015/lib.js",
		},
		{
			"module field for esm5",
			`{"name":"lib","module":"./esm5/lib.js"}`,
			manifest.FormatESM5,
			"esm5/lib.js",
		},
		{
			"main field for commonjs",
			`{"name":"lib","main":"bundles/lib.js"}`,
			manifest.FormatCommonJS,
			"bundles/lib.js",
		},
		{
			"missing format is empty",
			`{"name":"lib","main":"index.js"}`,
			manifest.FormatESM2015,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := manifest.Parse([]byte(tt.json))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got := m.EntryPointFile(tt.format); got != tt.expected {
				t.Errorf("EntryPointFile(%s) = %q, expected %q", tt.format, got, tt.expected)
			}
		})
	}
}

func TestTypingsFile(t *testing.T) {
	m, err := manifest.Parse([]byte(`{"name":"lib","types":"./lib.d.ts"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := m.TypingsFile(); got != "lib.d.ts" {
		t.Errorf("TypingsFile() = %q, expected lib.d.ts", got)
	}

	m, err = manifest.Parse([]byte(`{"name":"lib","typings":"./index.d.ts","types":"./lib.d.ts"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := m.TypingsFile(); got != "index.d.ts" {
		t.Errorf("typings should win over types, got %q", got)
	}
}

func TestFormats(t *testing.T) {
	m, err := manifest.Parse([]byte(`{
		"name": "lib",
		"main": "bundles/lib.umd.js",
		"module": "esm5/lib.js",
		"es2015": "esm2015/lib.js"
	}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	formats := m.Formats()
	expected := []manifest.Format{
		manifest.FormatESM2015,
		manifest.FormatESM5,
		manifest.FormatCommonJS,
	}
	if len(formats) != len(expected) {
		t.Fatalf("Formats() = %v, expected %v", formats, expected)
	}
	for i := range expected {
		if formats[i] != expected[i] {
			t.Errorf("Formats()[%d] = %s, expected %s", i, formats[i], expected[i])
		}
	}
}

func TestMarkProcessed(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/pkg/package.json", `{
  "name": "lib",
  "version": "1.2.3",
  "main": "index.js"
}`, 0644)

	err := manifest.MarkProcessed(mfs, "/pkg/package.json", "0.1.0", []manifest.Format{
		manifest.FormatCommonJS,
	})
	if err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	m, err := manifest.ParseFile(mfs, "/pkg/package.json")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if !m.IsProcessed(manifest.FormatCommonJS) {
		t.Error("expected commonjs to be marked processed")
	}
	if m.IsProcessed(manifest.FormatESM5) {
		t.Error("esm5 should not be marked processed")
	}
	// Unmodelled fields survive the round trip
	if m.Name != "lib" || m.Version != "1.2.3" || m.Main != "index.js" {
		t.Errorf("manifest fields lost on rewrite: %+v", m)
	}
}

func TestCacheGetOrLoad(t *testing.T) {
	cache := manifest.NewMemoryCache()

	loads := 0
	loader := func() (*manifest.Manifest, error) {
		loads++
		return manifest.Parse([]byte(`{"name":"lib"}`))
	}

	for range 3 {
		m, err := cache.GetOrLoad("/pkg/package.json", loader)
		if err != nil {
			t.Fatalf("GetOrLoad failed: %v", err)
		}
		if m.Name != "lib" {
			t.Errorf("unexpected manifest: %+v", m)
		}
	}
	if loads != 1 {
		t.Errorf("loader ran %d times, expected 1", loads)
	}

	cache.Invalidate("/pkg/package.json")
	if _, ok := cache.Get("/pkg/package.json"); ok {
		t.Error("entry should be gone after Invalidate")
	}
}
