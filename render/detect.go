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
	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/retrofit/jsparse"
)

// Shape is a file's module wrapper shape. It is a structural fact
// detected from the file, never a configured input.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeESM
	ShapeCommonJS
	ShapeUMD
)

func (s Shape) String() string {
	switch s {
	case ShapeESM:
		return "esm"
	case ShapeCommonJS:
		return "commonjs"
	case ShapeUMD:
		return "umd"
	default:
		return "unknown"
	}
}

// UMDWrapper holds the seam nodes of a detected universal wrapper: the
// factory call of each environment branch plus the shared factory
// function. Branch fields are nil when the wrapper lacks that branch;
// edits to an absent branch are silently skipped.
type UMDWrapper struct {
	// Factory is the shared factory function expression; FactoryParams
	// its formal parameter list.
	Factory       *ts.Node
	FactoryParams *ts.Node

	// CommonJSCall is the factory invocation in the synchronous-require
	// branch.
	CommonJSCall *ts.Node

	// AMDDeps is the dependency array of the array-module-definition
	// branch's define call.
	AMDDeps *ts.Node

	// GlobalCall is the factory invocation in the global-attachment
	// branch.
	GlobalCall *ts.Node
}

// DetectShape classifies a file's wrapper shape. UMD is probed first
// (a wrapper file has no top-level import/export of its own), then
// ECMAScript modules, then synchronous-require files.
func DetectShape(sf *jsparse.SourceFile) (Shape, *UMDWrapper) {
	if wrapper := findUMDWrapper(sf); wrapper != nil {
		return ShapeUMD, wrapper
	}

	root := sf.Root()
	sawRequire := false
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Kind() {
		case "import_statement", "export_statement":
			return ShapeESM, nil
		}
		if statementRequires(sf, stmt) {
			sawRequire = true
		}
	}
	if sawRequire {
		return ShapeCommonJS, nil
	}
	return ShapeUnknown, nil
}

// findUMDWrapper matches the classic universal wrapper: a top-level
// call of a two-parameter function whose body is one conditional
// expression dispatching between environment probes, invoked with the
// factory function as an argument.
func findUMDWrapper(sf *jsparse.SourceFile) *UMDWrapper {
	root := sf.Root()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		if stmt.Kind() != "expression_statement" {
			continue
		}
		call := unwrapParens(stmt.NamedChild(0))
		if call == nil || call.Kind() != "call_expression" {
			continue
		}
		wrapperFn := unwrapParens(call.ChildByFieldName("function"))
		if !isFunctionExpression(wrapperFn) {
			continue
		}
		factory := findFactoryArgument(call)
		if factory == nil {
			continue
		}
		ternary := findConditional(wrapperFn.ChildByFieldName("body"))
		if ternary == nil {
			continue
		}

		wrapper := &UMDWrapper{
			Factory:       factory,
			FactoryParams: factory.ChildByFieldName("parameters"),
		}
		classifyBranches(sf, ternary, wrapper)
		if wrapper.CommonJSCall == nil && wrapper.AMDDeps == nil && wrapper.GlobalCall == nil {
			continue
		}
		return wrapper
	}
	return nil
}

// classifyBranches walks the ternary chain assigning each branch to its
// environment by the typeof probes in its condition.
func classifyBranches(sf *jsparse.SourceFile, ternary *ts.Node, wrapper *UMDWrapper) {
	current := ternary
	for current != nil && current.Kind() == "ternary_expression" {
		condition := current.ChildByFieldName("condition")
		consequence := current.ChildByFieldName("consequence")
		switch {
		case hasTypeofProbe(sf, condition, "define"):
			if defineCall := findCall(consequence); defineCall != nil {
				wrapper.AMDDeps = findArrayArgument(defineCall)
			}
		case hasTypeofProbe(sf, condition, "exports") || hasTypeofProbe(sf, condition, "module"):
			wrapper.CommonJSCall = findCall(consequence)
		}
		alternative := unwrapParens(current.ChildByFieldName("alternative"))
		if alternative != nil && alternative.Kind() == "ternary_expression" {
			current = alternative
			continue
		}
		wrapper.GlobalCall = findCall(alternative)
		return
	}
}

// hasTypeofProbe reports whether a condition subtree contains a
// `typeof <name>` test.
func hasTypeofProbe(sf *jsparse.SourceFile, node *ts.Node, name string) bool {
	if node == nil {
		return false
	}
	if node.Kind() == "unary_expression" {
		operator := node.ChildByFieldName("operator")
		argument := node.ChildByFieldName("argument")
		if operator != nil && argument != nil &&
			sf.Text(operator) == "typeof" &&
			argument.Kind() == "identifier" && sf.Text(argument) == name {
			return true
		}
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if hasTypeofProbe(sf, node.NamedChild(i), name) {
			return true
		}
	}
	return false
}

// findConditional locates the first ternary expression among the
// wrapper body's statements.
func findConditional(body *ts.Node) *ts.Node {
	if body == nil {
		return nil
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(i)
		if stmt.Kind() != "expression_statement" {
			continue
		}
		expr := unwrapParens(stmt.NamedChild(0))
		if expr != nil && expr.Kind() == "ternary_expression" {
			return expr
		}
	}
	return nil
}

// findCall digs the factory invocation out of a branch expression,
// seeing through parentheses, assignments, and sequences.
func findCall(node *ts.Node) *ts.Node {
	node = unwrapParens(node)
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "call_expression":
		return node
	case "assignment_expression":
		return findCall(node.ChildByFieldName("right"))
	case "sequence_expression":
		if last := node.NamedChild(node.NamedChildCount() - 1); last != nil {
			return findCall(last)
		}
	}
	return nil
}

// findFactoryArgument returns the last function-expression argument of
// the wrapper call.
func findFactoryArgument(call *ts.Node) *ts.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	for i := int(args.NamedChildCount()) - 1; i >= 0; i-- {
		arg := unwrapParens(args.NamedChild(uint(i)))
		if isFunctionExpression(arg) {
			return arg
		}
	}
	return nil
}

// findArrayArgument returns the first array argument of a define call.
func findArrayArgument(call *ts.Node) *ts.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		if arg.Kind() == "array" {
			return arg
		}
	}
	return nil
}

// statementRequires reports whether a top-level statement contains a
// require call or an exports assignment.
func statementRequires(sf *jsparse.SourceFile, stmt *ts.Node) bool {
	found := false
	var walk func(n *ts.Node)
	walk = func(n *ts.Node) {
		if n == nil || found {
			return
		}
		switch n.Kind() {
		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn != nil && fn.Kind() == "identifier" && sf.Text(fn) == "require" {
				found = true
				return
			}
		case "member_expression":
			text := sf.Text(n)
			if text == "module.exports" {
				found = true
				return
			}
		case "identifier":
			if sf.Text(n) == "exports" {
				found = true
				return
			}
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(stmt)
	return found
}

func unwrapParens(node *ts.Node) *ts.Node {
	for node != nil && node.Kind() == "parenthesized_expression" {
		node = node.NamedChild(0)
	}
	return node
}

func isFunctionExpression(node *ts.Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "function_expression", "function", "arrow_function":
		return true
	}
	return false
}
