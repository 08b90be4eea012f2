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
	"bennypowers.dev/retrofit/analysis"
	"bennypowers.dev/retrofit/jsparse"
)

// ESMFormatter splices text into ECMAScript-module files. Seams: the
// top of the file for imports and constants, the end of the file for
// exports, and each class's own metadata statement for definitions and
// decorator removal.
type ESMFormatter struct {
	sf *jsparse.SourceFile
}

// NewESMFormatter creates the formatter for an ECMAScript-module file.
func NewESMFormatter(sf *jsparse.SourceFile) *ESMFormatter {
	return &ESMFormatter{sf: sf}
}

// AddImports inserts namespace imports before the first statement.
func (f *ESMFormatter) AddImports(b *Buffer, imports []Import) {
	at := f.firstStatementOffset()
	for _, imp := range imports {
		b.InsertLeft(at, "import * as "+imp.Qualifier+" from '"+imp.Specifier+"';\n")
	}
}

// AddExports appends re-export declarations at the end of the file.
func (f *ESMFormatter) AddExports(b *Buffer, exports []Export) {
	at := uint(len(f.sf.Content))
	for _, e := range exports {
		if e.From != "" {
			b.InsertLeft(at, "\nexport {"+e.Identifier+"} from '"+e.From+"';")
		} else {
			b.InsertLeft(at, "\nexport {"+e.Identifier+"};")
		}
	}
}

// AddConstants inserts shared constant declarations after the last
// import statement, before the module's own code.
func (f *ESMFormatter) AddConstants(b *Buffer, constants string) {
	if constants == "" {
		return
	}
	b.InsertLeft(f.afterImportsOffset(), "\n"+constants+"\n")
}

// AddDefinitions appends synthesized definitions right after the
// class's metadata statement.
func (f *ESMFormatter) AddDefinitions(b *Buffer, class analysis.ClassDescription, definitions string) {
	if definitions == "" {
		return
	}
	b.InsertRight(class.Statement.End, "\n"+definitions)
}

// AddAdjacentStatements appends statements after the class's metadata
// statement, following any definitions added there.
func (f *ESMFormatter) AddAdjacentStatements(b *Buffer, class analysis.ClassDescription, statements string) {
	if statements == "" {
		return
	}
	b.InsertRight(class.Statement.End, "\n"+statements)
}

// RemoveDecorators strips matched entries from the class's static
// decorator array, collapsing the assignment when emptied.
func (f *ESMFormatter) RemoveDecorators(b *Buffer, class analysis.ClassDescription, identifiers []string) {
	removeDecoratorElements(b, f.sf.Content, class, identifiers)
}

// RewriteSwitchableDeclarations flips pre-runtime initializers to their
// post-runtime implementations.
func (f *ESMFormatter) RewriteSwitchableDeclarations(b *Buffer) error {
	return rewriteSwitchableDeclarations(b, f.sf)
}

// AddModuleWithProvidersParams narrows declaration-file return types.
func (f *ESMFormatter) AddModuleWithProvidersParams(b *Buffer, params []ModuleWithProvidersParam) {
	addModuleWithProvidersParams(b, params)
}

// firstStatementOffset is the start of the first non-comment top-level
// statement, or 0 for an effectively empty file.
func (f *ESMFormatter) firstStatementOffset() uint {
	root := f.sf.Root()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Kind() {
		case "comment", "hash_bang_line":
			continue
		}
		return uint(stmt.StartByte())
	}
	return 0
}

// afterImportsOffset is the end of the last top-level import statement,
// falling back to the first-statement seam when the file has none.
func (f *ESMFormatter) afterImportsOffset() uint {
	root := f.sf.Root()
	var end uint
	found := false
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		if stmt.Kind() == "import_statement" {
			end = uint(stmt.EndByte())
			found = true
		}
	}
	if found {
		return end
	}
	return f.firstStatementOffset()
}
