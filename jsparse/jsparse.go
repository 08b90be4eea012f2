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
// Package jsparse provides tree-sitter parsing for distributed JavaScript
// and declaration files. The TypeScript grammar parses both: emitted .js
// output is a syntactic subset, and .d.ts files are TypeScript proper.
package jsparse

import (
	"fmt"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language is the pre-initialized TypeScript grammar.
var Language = ts.NewLanguage(tsTypescript.LanguageTypescript())

// Parser pool for reuse across files.
var parserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(Language); err != nil {
			panic("failed to set TypeScript language: " + err.Error())
		}
		return parser
	},
}

// getParser retrieves a parser from the pool.
func getParser() *ts.Parser {
	return parserPool.Get().(*ts.Parser)
}

// putParser returns a parser to the pool.
func putParser(p *ts.Parser) {
	p.Reset()
	parserPool.Put(p)
}

// Parse parses JavaScript/TypeScript content into a syntax tree.
// The caller owns the returned tree and must Close it (the source cache
// does this on eviction).
func Parse(content []byte) (*ts.Tree, error) {
	parser := getParser()
	defer putParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	return tree, nil
}
