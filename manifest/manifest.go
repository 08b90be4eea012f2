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
// Package manifest provides parsing of package manifests (package.json) for
// pre-built library distributions, including the per-format entry-point
// fields that identify which files encode which module packaging convention.
package manifest

import (
	"encoding/json"
	"strings"

	"bennypowers.dev/retrofit/fs"
)

// ProcessedMarkerField is the manifest field recording which formats of a
// package have already been rewritten, so repeated runs skip them.
const ProcessedMarkerField = "__processed_by_retrofit__"

// Format identifies a module packaging convention of a distributed file.
type Format string

const (
	FormatESM2015  Format = "esm2015"
	FormatESM5     Format = "esm5"
	FormatCommonJS Format = "commonjs"
	FormatUMD      Format = "umd"
)

// formatProperties maps each format to its manifest fields, in precedence
// order. The "fesm" (flattened) fields win over their per-file twins.
var formatProperties = map[Format][]string{
	FormatESM2015:  {"fesm2015", "es2015"},
	FormatESM5:     {"fesm5", "module"},
	FormatCommonJS: {"main"},
	FormatUMD:      {"main", "browser"},
}

// PropertyFormat maps a manifest field name back to the format it declares.
// The main field may hold either commonjs or umd output; callers decide by
// detecting the file's wrapper shape, so it reports commonjs here.
func PropertyFormat(property string) (Format, bool) {
	switch property {
	case "fesm2015", "es2015":
		return FormatESM2015, true
	case "fesm5", "module":
		return FormatESM5, true
	case "main":
		return FormatCommonJS, true
	case "browser":
		return FormatUMD, true
	}
	return "", false
}

// Manifest represents the subset of package.json relevant to compilation.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Main         string            `json:"main,omitempty"`
	Module       string            `json:"module,omitempty"`
	ES2015       string            `json:"es2015,omitempty"`
	FESM2015     string            `json:"fesm2015,omitempty"`
	FESM5        string            `json:"fesm5,omitempty"`
	Browser      string            `json:"browser,omitempty"`
	Typings      string            `json:"typings,omitempty"`
	Types        string            `json:"types,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`

	// Processed records formats already rewritten by a previous run.
	Processed map[string]string `json:"__processed_by_retrofit__,omitempty"`
}

// Parse parses package.json data.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseFile parses a package.json file.
func ParseFile(fs fs.FileSystem, path string) (*Manifest, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// property returns the raw value of a manifest entry-point field.
func (m *Manifest) property(name string) string {
	switch name {
	case "main":
		return m.Main
	case "module":
		return m.Module
	case "es2015":
		return m.ES2015
	case "fesm2015":
		return m.FESM2015
	case "fesm5":
		return m.FESM5
	case "browser":
		return m.Browser
	}
	return ""
}

// EntryPointFile returns the declared entry-point file for a format,
// relative to the package root and without a leading "./". Empty when the
// manifest declares no output in that format.
func (m *Manifest) EntryPointFile(format Format) string {
	for _, prop := range formatProperties[format] {
		if v := m.property(prop); v != "" {
			return trimDotSlash(v)
		}
	}
	return ""
}

// TypingsFile returns the declared typings file ("typings" preferred over
// "types"), or empty when the package ships none.
func (m *Manifest) TypingsFile() string {
	if m.Typings != "" {
		return trimDotSlash(m.Typings)
	}
	return trimDotSlash(m.Types)
}

// Formats returns every format the manifest declares an entry point for,
// in a stable precedence order (newest scheme first).
func (m *Manifest) Formats() []Format {
	var formats []Format
	for _, f := range []Format{FormatESM2015, FormatESM5, FormatCommonJS, FormatUMD} {
		if m.EntryPointFile(f) == "" {
			continue
		}
		// main serves both commonjs and umd; report it once, as commonjs.
		if f == FormatUMD && m.Browser == "" && m.EntryPointFile(FormatCommonJS) == m.EntryPointFile(FormatUMD) {
			continue
		}
		formats = append(formats, f)
	}
	return formats
}

// IsProcessed reports whether a previous run already rewrote this format.
func (m *Manifest) IsProcessed(format Format) bool {
	_, ok := m.Processed[string(format)]
	return ok
}

// MarkProcessed records version under the processed marker for each format
// and writes the manifest back, preserving fields this package does not
// model by rewriting only the marker within the raw document.
func MarkProcessed(fsys fs.FileSystem, path, version string, formats []Format) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	marker, _ := raw[ProcessedMarkerField].(map[string]any)
	if marker == nil {
		marker = make(map[string]any)
	}
	for _, f := range formats {
		marker[string(f)] = version
	}
	raw[ProcessedMarkerField] = marker

	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return fsys.WriteFile(path, append(out, '\n'), 0644)
}

// trimDotSlash removes a leading "./" from a path.
func trimDotSlash(path string) string {
	return strings.TrimPrefix(path, "./")
}
