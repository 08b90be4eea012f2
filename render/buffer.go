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
// Package render rewrites distributed module files in place: it locates
// the syntactic seams of each module-wrapper shape and splices new text
// there, preserving the rest of the original bytes for source-map
// fidelity.
package render

import (
	"bytes"
	"sort"

	"bennypowers.dev/retrofit/jsparse"
)

// Bias orders insertions anchored at the same original offset: left
// insertions attach to the text before the anchor and come first.
type Bias int

const (
	BiasLeft Bias = iota
	BiasRight
)

type insertion struct {
	offset uint
	bias   Bias
	seq    int
	text   string
}

// Buffer is a text-surgery buffer over one file's immutable original
// text. Pending edits are offset-anchored insertions plus explicit
// contiguous span removals; the original bytes are never modified in
// place. Materialize performs a single linear merge.
type Buffer struct {
	original []byte
	inserts  []insertion
	removals []jsparse.Span
	seq      int
}

// NewBuffer wraps original text for editing. The slice is not copied;
// callers must not mutate it afterwards.
func NewBuffer(original []byte) *Buffer {
	return &Buffer{original: original}
}

// Original returns the wrapped text.
func (b *Buffer) Original() []byte {
	return b.original
}

// InsertLeft schedules text at offset, attached to the content before
// the anchor. Insertions at the same offset keep their relative order.
func (b *Buffer) InsertLeft(offset uint, text string) {
	b.insert(offset, BiasLeft, text)
}

// InsertRight schedules text at offset, attached to the content after
// the anchor. Right-biased insertions at an offset follow all
// left-biased ones there.
func (b *Buffer) InsertRight(offset uint, text string) {
	b.insert(offset, BiasRight, text)
}

func (b *Buffer) insert(offset uint, bias Bias, text string) {
	if text == "" {
		return
	}
	if max := uint(len(b.original)); offset > max {
		offset = max
	}
	b.inserts = append(b.inserts, insertion{offset: offset, bias: bias, seq: b.seq, text: text})
	b.seq++
}

// Remove schedules a contiguous span of original text for removal.
// Spans must not overlap; formatters only remove disjoint statements and
// array elements.
func (b *Buffer) Remove(span jsparse.Span) {
	if span.End > uint(len(b.original)) {
		span.End = uint(len(b.original))
	}
	if span.Len() == 0 {
		return
	}
	b.removals = append(b.removals, span)
}

// Edited reports whether any edits are pending.
func (b *Buffer) Edited() bool {
	return len(b.inserts) > 0 || len(b.removals) > 0
}

// Result is a materialized buffer: the output text plus, for each
// generated line, the 0-based original line that supplied its first
// original byte, or -1 for wholly synthetic lines.
type Result struct {
	Text          []byte
	OriginalLines []int
}

// Materialize merges the original text with all pending edits in one
// linear pass. With no pending edits the output is byte-identical to the
// input.
func (b *Buffer) Materialize() Result {
	inserts := make([]insertion, len(b.inserts))
	copy(inserts, b.inserts)
	sort.SliceStable(inserts, func(i, j int) bool {
		if inserts[i].offset != inserts[j].offset {
			return inserts[i].offset < inserts[j].offset
		}
		if inserts[i].bias != inserts[j].bias {
			return inserts[i].bias < inserts[j].bias
		}
		return inserts[i].seq < inserts[j].seq
	})

	removals := make([]jsparse.Span, len(b.removals))
	copy(removals, b.removals)
	sort.Slice(removals, func(i, j int) bool {
		return removals[i].Start < removals[j].Start
	})

	var out bytes.Buffer
	out.Grow(len(b.original))
	origins := []int{-1}

	genLine := 0
	origLine := 0
	write := func(text []byte, original bool) {
		for _, c := range text {
			if original && origins[genLine] < 0 {
				origins[genLine] = origLine
			}
			out.WriteByte(c)
			if c == '\n' {
				genLine++
				origins = append(origins, -1)
				if original {
					origLine++
				}
			}
		}
	}

	nextInsert := 0
	nextRemoval := 0
	for offset := uint(0); offset <= uint(len(b.original)); offset++ {
		for nextInsert < len(inserts) && inserts[nextInsert].offset == offset {
			write([]byte(inserts[nextInsert].text), false)
			nextInsert++
		}
		if offset == uint(len(b.original)) {
			break
		}
		removed := false
		for nextRemoval < len(removals) && removals[nextRemoval].End <= offset {
			nextRemoval++
		}
		if nextRemoval < len(removals) {
			r := removals[nextRemoval]
			removed = offset >= r.Start && offset < r.End
		}
		if removed {
			// Line accounting still advances for removed newlines.
			if b.original[offset] == '\n' {
				origLine++
			}
			continue
		}
		write(b.original[offset:offset+1], true)
	}

	return Result{Text: out.Bytes(), OriginalLines: origins}
}
