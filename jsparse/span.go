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
package jsparse

import ts "github.com/tree-sitter/go-tree-sitter"

// Span is a half-open [Start, End) byte range within a file's original
// text.
type Span struct {
	Start uint
	End   uint
}

// NodeSpan returns the byte span of a syntax node.
func NodeSpan(n *ts.Node) Span {
	return Span{Start: uint(n.StartByte()), End: uint(n.EndByte())}
}

// Len returns the number of bytes the span covers.
func (s Span) Len() uint {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}
