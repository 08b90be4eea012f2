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
package analysis

import (
	"sort"

	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/retrofit/jsparse"
)

// Scanner finds static decorator metadata assignments of the form
// `X.decorators = [{ type: Directive, args: [...] }, ...];` using a
// tree-sitter query.
type Scanner struct{}

// NewScanner creates the default decorator scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// DecoratedClasses implements Provider.
func (s *Scanner) DecoratedClasses(sf *jsparse.SourceFile) ([]ClassDescription, error) {
	qm, err := jsparse.GetQueryManager()
	if err != nil {
		return nil, err
	}
	query, err := qm.Query("decorators")
	if err != nil {
		return nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var classes []ClassDescription
	matches := cursor.Matches(query, sf.Root(), sf.Content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		desc := ClassDescription{}
		var array *ts.Node
		for _, capture := range match.Captures {
			node := capture.Node
			switch captureNames[capture.Index] {
			case "class.name":
				desc.Name = node.Utf8Text(sf.Content)
			case "decorators.array":
				array = &node
				desc.Array = jsparse.NodeSpan(&node)
			case "decorators.statement":
				desc.Statement = jsparse.NodeSpan(&node)
				desc.NodeStart = uint(node.StartByte())
			}
		}
		if desc.Name == "" || array == nil {
			continue
		}
		desc.Decorators = s.arrayDecorators(sf, array)
		classes = append(classes, desc)
	}

	// Query match order follows pattern order, not document order.
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].NodeStart < classes[j].NodeStart
	})
	return classes, nil
}

func (s *Scanner) arrayDecorators(sf *jsparse.SourceFile, array *ts.Node) []Decorator {
	var decorators []Decorator
	for i := uint(0); i < array.NamedChildCount(); i++ {
		element := array.NamedChild(i)
		if element.Kind() == "comment" {
			continue
		}
		d := Decorator{Element: jsparse.NodeSpan(element)}
		if element.Kind() == "object" {
			s.readObjectLiteral(sf, element, &d)
		} else {
			// Bare identifier entry, e.g. `[Injectable]`
			d.Identifier = sf.Text(element)
		}
		decorators = append(decorators, d)
	}
	return decorators
}

// readObjectLiteral extracts the `type:` and `args:` properties from one
// decorator object literal.
func (s *Scanner) readObjectLiteral(sf *jsparse.SourceFile, object *ts.Node, d *Decorator) {
	for i := uint(0); i < object.NamedChildCount(); i++ {
		pair := object.NamedChild(i)
		if pair.Kind() != "pair" {
			continue
		}
		key := pair.ChildByFieldName("key")
		value := pair.ChildByFieldName("value")
		if key == nil || value == nil {
			continue
		}
		switch sf.Text(key) {
		case "type":
			d.Identifier = sf.Text(value)
		case "args":
			if value.Kind() != "array" {
				continue
			}
			for j := uint(0); j < value.NamedChildCount(); j++ {
				arg := value.NamedChild(j)
				if arg.Kind() == "comment" {
					continue
				}
				d.Arguments = append(d.Arguments, sf.Text(arg))
			}
		}
	}
}
