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
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/retrofit/analysis"
	"bennypowers.dev/retrofit/jsparse"
)

// Import is one module dependency to add to a file: the specifier plus
// the local qualifier new code refers to it by.
type Import struct {
	Specifier string
	Qualifier string
}

// Export is one public name to re-export from an entry-point file.
// From names the internal module the identifier lives in.
type Export struct {
	Identifier string
	From       string
}

// ModuleWithProvidersParam is one declaration-file return type to
// narrow: TypeText is spliced as a generic argument at Insert, the
// offset just past the bare return type reference.
type ModuleWithProvidersParam struct {
	Insert   uint
	TypeText string
}

// Formatter splices new text into one file at the seams of its module
// wrapper shape. Each method only edits its own seam and leaves every
// other original byte untouched. A file with no recognizable wrapper
// gets a formatter whose every method is a no-op.
type Formatter interface {
	AddImports(b *Buffer, imports []Import)
	AddExports(b *Buffer, exports []Export)
	AddConstants(b *Buffer, constants string)
	AddDefinitions(b *Buffer, class analysis.ClassDescription, definitions string)
	AddAdjacentStatements(b *Buffer, class analysis.ClassDescription, statements string)
	RemoveDecorators(b *Buffer, class analysis.ClassDescription, identifiers []string)
	RewriteSwitchableDeclarations(b *Buffer) error
	AddModuleWithProvidersParams(b *Buffer, params []ModuleWithProvidersParam)
}

// NewFormatter detects sf's wrapper shape and returns the matching
// formatter. Unrecognized files get the no-op formatter.
func NewFormatter(sf *jsparse.SourceFile) (Formatter, Shape) {
	shape, wrapper := DetectShape(sf)
	switch shape {
	case ShapeESM:
		return NewESMFormatter(sf), shape
	case ShapeCommonJS:
		return NewCommonJSFormatter(sf), shape
	case ShapeUMD:
		return NewUMDFormatter(sf, wrapper), shape
	default:
		return NoopFormatter{}, shape
	}
}

// NoopFormatter ignores every edit request. It stands in for files with
// no detectable module wrapper, which are deliberately left untouched.
type NoopFormatter struct{}

func (NoopFormatter) AddImports(*Buffer, []Import)     {}
func (NoopFormatter) AddExports(*Buffer, []Export)     {}
func (NoopFormatter) AddConstants(*Buffer, string)     {}
func (NoopFormatter) AddDefinitions(*Buffer, analysis.ClassDescription, string) {
}
func (NoopFormatter) AddAdjacentStatements(*Buffer, analysis.ClassDescription, string) {
}
func (NoopFormatter) RemoveDecorators(*Buffer, analysis.ClassDescription, []string) {
}
func (NoopFormatter) RewriteSwitchableDeclarations(*Buffer) error { return nil }
func (NoopFormatter) AddModuleWithProvidersParams(*Buffer, []ModuleWithProvidersParam) {
}

// removeDecoratorElements strips matched elements from a class's static
// decorator array, separator commas included; an array emptied entirely
// collapses the whole assignment statement.
func removeDecoratorElements(b *Buffer, original []byte, class analysis.ClassDescription, identifiers []string) {
	matched := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		matched[id] = true
	}

	var spans []jsparse.Span
	for _, d := range class.Decorators {
		if matched[d.Identifier] {
			spans = append(spans, d.Element)
		}
	}
	if len(spans) == 0 {
		return
	}
	if len(spans) == len(class.Decorators) {
		b.Remove(widenToLine(original, class.Statement))
		return
	}
	for _, span := range spans {
		b.Remove(widenToComma(original, span))
	}
}

// widenToComma extends an array-element span over its separator comma:
// the following one when present, otherwise the preceding one.
func widenToComma(original []byte, span jsparse.Span) jsparse.Span {
	end := span.End
	for end < uint(len(original)) && isJSSpace(original[end]) {
		end++
	}
	if end < uint(len(original)) && original[end] == ',' {
		span.End = end + 1
		return span
	}
	start := span.Start
	for start > 0 && isJSSpace(original[start-1]) {
		start--
	}
	if start > 0 && original[start-1] == ',' {
		span.Start = start - 1
	}
	return span
}

// widenToLine extends a statement span over its trailing newline so
// removing it does not leave a blank line behind.
func widenToLine(original []byte, span jsparse.Span) jsparse.Span {
	end := span.End
	for end < uint(len(original)) && (original[end] == ' ' || original[end] == '\t') {
		end++
	}
	if end < uint(len(original)) && original[end] == '\r' {
		end++
	}
	if end < uint(len(original)) && original[end] == '\n' {
		end++
	}
	span.End = end
	return span
}

func isJSSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// Markers distinguishing the two implementations of a switchable
// declaration in transitional distributions.
const (
	PreRuntimeMarker  = "__PRE_RUNTIME__"
	PostRuntimeMarker = "__POST_RUNTIME__"
)

// rewriteSwitchableDeclarations flips every switchable declaration's
// initializer from its pre-runtime implementation to the post-runtime
// one.
func rewriteSwitchableDeclarations(b *Buffer, sf *jsparse.SourceFile) error {
	qm, err := jsparse.GetQueryManager()
	if err != nil {
		return err
	}
	query, err := qm.Query("switchable")
	if err != nil {
		return err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(query, sf.Root(), sf.Content)
	captureNames := query.CaptureNames()
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, capture := range match.Captures {
			if captureNames[capture.Index] != "switchable.init" {
				continue
			}
			node := capture.Node
			name := node.Utf8Text(sf.Content)
			if !strings.HasSuffix(name, PreRuntimeMarker) {
				continue
			}
			span := jsparse.NodeSpan(&node)
			b.Remove(span)
			b.InsertLeft(span.Start, strings.TrimSuffix(name, PreRuntimeMarker)+PostRuntimeMarker)
		}
	}
	return nil
}

// addModuleWithProvidersParams splices generic type arguments into
// declaration-file return types.
func addModuleWithProvidersParams(b *Buffer, params []ModuleWithProvidersParam) {
	for _, p := range params {
		b.InsertLeft(p.Insert, "<"+p.TypeText+">")
	}
}
