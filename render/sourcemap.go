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
package render

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-sourcemap/sourcemap"

	"bennypowers.dev/retrofit/fs"
	"bennypowers.dev/retrofit/jsparse"
)

// SourceMap is the v3 source-map JSON model. Only line-level mappings
// are generated; column information within a line is not preserved.
type SourceMap struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

var mapCommentPattern = regexp.MustCompile(`(?m)^//# sourceMappingURL=(\S+)[ \t]*\r?\n?`)

const inlineMapPrefix = "data:application/json"

// FileMap is the source map accompanying one input file, when present.
// Inline maps travel in a trailing data-URI comment; external maps in a
// sibling .map file. The output flavor always matches the input flavor.
type FileMap struct {
	Present bool
	Inline  bool

	// MapPath is the sibling .map file path for external maps.
	MapPath string

	// Comment spans the sourceMappingURL comment in the original text.
	// Rendering removes it and appends a fresh one.
	Comment jsparse.Span

	Parsed   SourceMap
	consumer *sourcemap.Consumer
}

// LoadFileMap discovers and parses the source map for path, whose
// original content is given. A file with no map comment yields a
// FileMap with Present false; a comment pointing at an unreadable or
// invalid map is an error.
func LoadFileMap(fsys fs.FileSystem, path string, content []byte) (*FileMap, error) {
	loc := mapCommentPattern.FindSubmatchIndex(content)
	if loc == nil {
		return &FileMap{}, nil
	}
	url := string(content[loc[2]:loc[3]])
	fm := &FileMap{
		Present: true,
		Comment: jsparse.Span{Start: uint(loc[0]), End: uint(loc[1])},
	}

	var raw []byte
	if strings.HasPrefix(url, inlineMapPrefix) {
		fm.Inline = true
		comma := strings.IndexByte(url, ',')
		if comma < 0 || !strings.HasSuffix(url[:comma], ";base64") {
			return nil, fmt.Errorf("unsupported inline source map encoding in %s", path)
		}
		decoded, err := base64.StdEncoding.DecodeString(url[comma+1:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline source map in %s: %w", path, err)
		}
		raw = decoded
	} else {
		fm.MapPath = filepath.Join(filepath.Dir(path), url)
		data, err := fsys.ReadFile(fm.MapPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read source map for %s: %w", path, err)
		}
		raw = data
	}

	if err := json.Unmarshal(raw, &fm.Parsed); err != nil {
		return nil, fmt.Errorf("invalid source map for %s: %w", path, err)
	}
	consumer, err := sourcemap.Parse("", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid source map for %s: %w", path, err)
	}
	fm.consumer = consumer
	return fm, nil
}

// GenerateMap builds the output source map for a materialized result.
// With an input map, each generated line is traced through it so the
// output maps straight to the library's original sources, and their
// sourcesContent entries are preserved. Without one, the map is a fresh
// line-identity map against the input file itself.
func GenerateMap(result Result, path string, original []byte, input *FileMap) SourceMap {
	out := SourceMap{
		Version: 3,
		File:    filepath.Base(path),
		Names:   []string{},
	}

	if input != nil && input.Present {
		out.Sources = append(out.Sources, input.Parsed.Sources...)
		out.SourcesContent = append(out.SourcesContent, input.Parsed.SourcesContent...)
	} else {
		content := string(original)
		out.Sources = []string{filepath.Base(path)}
		out.SourcesContent = []*string{&content}
	}

	index := make(map[string]int, len(out.Sources))
	for i, s := range out.Sources {
		index[s] = i
	}

	type segment struct {
		source int
		line   int
		column int
	}
	segments := make([]*segment, len(result.OriginalLines))
	for gen, orig := range result.OriginalLines {
		if orig < 0 {
			continue
		}
		if input != nil && input.Present {
			source, _, line, col, ok := input.consumer.Source(orig+1, 1)
			if !ok {
				continue
			}
			idx, known := index[source]
			if !known {
				idx = len(out.Sources)
				index[source] = idx
				out.Sources = append(out.Sources, source)
				if out.SourcesContent != nil {
					content := input.consumer.SourceContent(source)
					if content == "" {
						out.SourcesContent = append(out.SourcesContent, nil)
					} else {
						out.SourcesContent = append(out.SourcesContent, &content)
					}
				}
			}
			if line < 1 {
				line = 1
			}
			if col < 1 {
				col = 1
			}
			segments[gen] = &segment{source: idx, line: line - 1, column: col - 1}
		} else {
			segments[gen] = &segment{source: 0, line: orig, column: 0}
		}
	}

	var mappings strings.Builder
	prevSource, prevLine, prevColumn := 0, 0, 0
	for gen, seg := range segments {
		if gen > 0 {
			mappings.WriteByte(';')
		}
		if seg == nil {
			continue
		}
		mappings.WriteString(encodeVLQ(0))
		mappings.WriteString(encodeVLQ(seg.source - prevSource))
		mappings.WriteString(encodeVLQ(seg.line - prevLine))
		mappings.WriteString(encodeVLQ(seg.column - prevColumn))
		prevSource, prevLine, prevColumn = seg.source, seg.line, seg.column
	}
	out.Mappings = mappings.String()
	return out
}

// RenderedMap is the serialized output map plus the comment to append to
// the rewritten file.
type RenderedMap struct {
	// Comment is the sourceMappingURL comment, terminated by a newline.
	Comment string

	// MapPath and MapContent are set for the external flavor only.
	MapPath    string
	MapContent []byte
}

// EmitMap serializes a generated map in the same flavor as the input
// map: inline input yields an inline data-URI comment, external input
// (or no input map) yields a sibling .map file.
func EmitMap(m SourceMap, outputPath string, input *FileMap) (*RenderedMap, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize source map for %s: %w", outputPath, err)
	}

	if input != nil && input.Present && input.Inline {
		encoded := base64.StdEncoding.EncodeToString(data)
		return &RenderedMap{
			Comment: "//# sourceMappingURL=data:application/json;charset=utf-8;base64," + encoded + "\n",
		}, nil
	}

	mapPath := outputPath + ".map"
	return &RenderedMap{
		Comment:    "//# sourceMappingURL=" + filepath.Base(mapPath) + "\n",
		MapPath:    mapPath,
		MapContent: data,
	}, nil
}

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// encodeVLQ encodes one signed value as base64 VLQ, the encoding source
// map mappings use.
func encodeVLQ(value int) string {
	var unsigned uint
	if value < 0 {
		unsigned = uint(-value)<<1 | 1
	} else {
		unsigned = uint(value) << 1
	}

	var b strings.Builder
	for {
		digit := unsigned & 0x1f
		unsigned >>= 5
		if unsigned > 0 {
			digit |= 0x20
		}
		b.WriteByte(base64Alphabet[digit])
		if unsigned == 0 {
			return b.String()
		}
	}
}
