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

	"bennypowers.dev/retrofit/jsparse"
)

// UMDFormatter splices text into universal-wrapper files. It holds a
// CommonJSFormatter and calls through to it for the class-level seams;
// import, export, and constant insertion target the wrapper's own
// seams instead. A missing wrapper branch skips that branch's edit.
type UMDFormatter struct {
	*CommonJSFormatter
	wrapper *UMDWrapper
}

// NewUMDFormatter creates the formatter for a universal-wrapper file.
func NewUMDFormatter(sf *jsparse.SourceFile, wrapper *UMDWrapper) *UMDFormatter {
	return &UMDFormatter{
		CommonJSFormatter: NewCommonJSFormatter(sf),
		wrapper:           wrapper,
	}
}

// AddImports adds each dependency at every wrapper seam: an extra
// require argument in the synchronous-require branch, an extra string
// in the definition array, an extra global property access in the
// global branch, and a trailing factory parameter.
func (f *UMDFormatter) AddImports(b *Buffer, imports []Import) {
	if f.wrapper == nil {
		return
	}
	for _, imp := range imports {
		if f.wrapper.CommonJSCall != nil {
			appendCallArgument(b, f.wrapper.CommonJSCall, "require('"+imp.Specifier+"')")
		}
		if f.wrapper.AMDDeps != nil {
			appendArrayElement(b, f.wrapper.AMDDeps, "'"+imp.Specifier+"'")
		}
		if f.wrapper.GlobalCall != nil {
			appendCallArgument(b, f.wrapper.GlobalCall, "global."+globalIdentifier(imp.Specifier))
		}
		if f.wrapper.FactoryParams != nil {
			appendParameter(b, f.wrapper.FactoryParams, imp.Qualifier)
		}
	}
}

// AddExports appends export assignments at the end of the factory body.
// Source modules are pulled in through the wrapper seams first, so the
// assignments can refer to their factory parameters.
func (f *UMDFormatter) AddExports(b *Buffer, exports []Export) {
	if f.wrapper == nil || f.wrapper.Factory == nil {
		return
	}
	body := f.wrapper.Factory.ChildByFieldName("body")
	if body == nil {
		return
	}
	at := uint(body.EndByte())
	if at > 0 {
		at-- // inside the closing brace
	}
	qualifiers := make(map[string]string)
	for _, e := range exports {
		q, ok := qualifiers[e.From]
		if !ok {
			q = f.nextQualifier()
			qualifiers[e.From] = q
			f.AddImports(b, []Import{{Specifier: e.From, Qualifier: q}})
		}
		b.InsertLeft(at, "exports."+e.Identifier+" = "+q+"."+e.Identifier+";\n")
	}
}

// AddConstants inserts shared constant declarations at the top of the
// factory body, after a leading directive prologue when present.
func (f *UMDFormatter) AddConstants(b *Buffer, constants string) {
	if constants == "" || f.wrapper == nil || f.wrapper.Factory == nil {
		return
	}
	body := f.wrapper.Factory.ChildByFieldName("body")
	if body == nil {
		return
	}
	b.InsertLeft(factoryBodyStart(body), "\n"+constants+"\n")
}

// factoryBodyStart is the offset of the first statement past any
// directive prologue ('use strict'), or just inside the braces for an
// empty body.
func factoryBodyStart(body *ts.Node) uint {
	for i := uint(0); i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(i)
		if stmt.Kind() == "comment" {
			continue
		}
		if i == 0 && stmt.Kind() == "expression_statement" {
			if expr := stmt.NamedChild(0); expr != nil && expr.Kind() == "string" {
				continue
			}
		}
		return uint(stmt.StartByte())
	}
	return uint(body.StartByte()) + 1
}

// appendCallArgument appends one argument to a call expression.
func appendCallArgument(b *Buffer, call *ts.Node, text string) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	appendListEntry(b, args, text)
}

// appendArrayElement appends one element to an array literal.
func appendArrayElement(b *Buffer, array *ts.Node, text string) {
	appendListEntry(b, array, text)
}

// appendParameter appends one formal parameter after the last existing
// one.
func appendParameter(b *Buffer, params *ts.Node, text string) {
	appendListEntry(b, params, text)
}

// appendListEntry appends to any delimited list node: after the last
// named child with a separator, or just inside the opening delimiter of
// an empty list.
func appendListEntry(b *Buffer, list *ts.Node, text string) {
	if n := list.NamedChildCount(); n > 0 {
		last := list.NamedChild(n - 1)
		b.InsertLeft(uint(last.EndByte()), ", "+text)
		return
	}
	b.InsertLeft(uint(list.StartByte())+1, text)
}

// globalIdentifier derives the global-object property path for a module
// specifier: scope markers dropped, path separators become property
// accesses, dashes become underscores.
func globalIdentifier(specifier string) string {
	id := strings.TrimPrefix(specifier, "@")
	id = strings.ReplaceAll(id, "/", ".")
	return strings.ReplaceAll(id, "-", "_")
}
