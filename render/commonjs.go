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
	"fmt"

	"bennypowers.dev/retrofit/jsparse"
)

// exportQualifierPrefix names the require qualifiers AddExports
// synthesizes for modules it has to pull in itself.
const exportQualifierPrefix = "_rf"

// CommonJSFormatter splices text into synchronous-require files. It
// shares the class-level seams with ESMFormatter and overrides only
// import, export, and constant insertion.
type CommonJSFormatter struct {
	*ESMFormatter
	qualifiers int
}

// NewCommonJSFormatter creates the formatter for a synchronous-require
// file.
func NewCommonJSFormatter(sf *jsparse.SourceFile) *CommonJSFormatter {
	return &CommonJSFormatter{ESMFormatter: NewESMFormatter(sf)}
}

// AddImports inserts require declarations before the first statement.
func (f *CommonJSFormatter) AddImports(b *Buffer, imports []Import) {
	at := f.firstStatementOffset()
	for _, imp := range imports {
		b.InsertLeft(at, "var "+imp.Qualifier+" = require('"+imp.Specifier+"');\n")
	}
}

// AddExports appends export assignments at the end of the file,
// requiring each source module under a synthesized qualifier first.
func (f *CommonJSFormatter) AddExports(b *Buffer, exports []Export) {
	at := uint(len(f.sf.Content))
	qualifiers := make(map[string]string)
	for _, e := range exports {
		q, ok := qualifiers[e.From]
		if !ok {
			q = f.nextQualifier()
			qualifiers[e.From] = q
			b.InsertLeft(at, "\nvar "+q+" = require('"+e.From+"');")
		}
		b.InsertLeft(at, "\nexports."+e.Identifier+" = "+q+"."+e.Identifier+";")
	}
}

// AddConstants inserts shared constant declarations before the first
// statement, after any imports added at the same seam.
func (f *CommonJSFormatter) AddConstants(b *Buffer, constants string) {
	if constants == "" {
		return
	}
	b.InsertLeft(f.firstStatementOffset(), "\n"+constants+"\n")
}

func (f *CommonJSFormatter) nextQualifier() string {
	q := fmt.Sprintf("%s%d", exportQualifierPrefix, f.qualifiers)
	f.qualifiers++
	return q
}
