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
// Package analysis extracts per-class structured descriptions from parsed
// source files. The compiler driver consumes these descriptions to decide
// which definitions to synthesize and which decorator metadata to strip.
package analysis

import "bennypowers.dev/retrofit/jsparse"

// Decorator is one entry of a class's static decorator metadata array.
type Decorator struct {
	// Identifier is the decorator's type expression as written, e.g.
	// "Directive" or "core.Directive".
	Identifier string

	// Arguments holds the raw source text of each entry in the
	// decorator's args array, in order. Empty when no args were given.
	Arguments []string

	// Element spans this decorator's array element in the original text,
	// exclusive of separators.
	Element jsparse.Span
}

// ClassDescription describes one class found to carry static decorator
// metadata.
type ClassDescription struct {
	// Name is the class identifier the metadata was assigned to.
	Name string

	// NodeStart is the start byte of the metadata assignment statement.
	// It serves as the class's stable identity within the file across a
	// run, since parsed trees are never invalidated mid-run.
	NodeStart uint

	// Statement spans the whole `X.decorators = [...]` statement.
	Statement jsparse.Span

	// Array spans the decorator array literal.
	Array jsparse.Span

	Decorators []Decorator
}

// Provider produces class descriptions for a parsed source file.
// The default implementation is Scanner; hosts embedding the compiler can
// substitute richer analyses behind the same surface.
type Provider interface {
	DecoratedClasses(sf *jsparse.SourceFile) ([]ClassDescription, error)
}
