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
package compile

import (
	"regexp"
	"strings"

	"bennypowers.dev/retrofit/analysis"
	"bennypowers.dev/retrofit/incremental"
	"bennypowers.dev/retrofit/render"
)

// definitionProperty and runtime factory per recognized decorator.
var decoratorRuntimes = map[string]struct {
	property string
	factory  string
	kind     incremental.MetadataKind
}{
	"Component":  {"__dirDef", "defineDirective", incremental.DirectiveMetadata},
	"Directive":  {"__dirDef", "defineDirective", incremental.DirectiveMetadata},
	"NgModule":   {"__modDef", "defineModule", incremental.ModuleMetadata},
	"Pipe":       {"__pipeDef", "definePipe", incremental.PipeMetadata},
	"Injectable": {"__injDef", "defineInjectable", incremental.DirectiveMetadata},
}

// definitionFor synthesizes the runtime definition statement replacing
// one decorator of a class. Unrecognized decorators are left alone (ok
// false): permissiveness over breakage for metadata this compiler does
// not understand.
func definitionFor(className string, d analysis.Decorator) (string, incremental.MetadataKind, bool) {
	runtime, ok := decoratorRuntimes[baseIdentifier(d.Identifier)]
	if !ok {
		return "", 0, false
	}
	def := className + "." + runtime.property + " = " + runtimeQualifier + "." + runtime.factory +
		"({ type: " + className + ", args: [" + strings.Join(d.Arguments, ", ") + "] });"
	return def, runtime.kind, true
}

// baseIdentifier strips a namespace qualifier: `core.Directive` names
// the same decorator as `Directive`.
func baseIdentifier(identifier string) string {
	if i := strings.LastIndexByte(identifier, '.'); i >= 0 {
		return identifier[i+1:]
	}
	return identifier
}

// bareProvidersReturn matches a ModuleWithProviders return type written
// without its generic argument.
var bareProvidersReturn = regexp.MustCompile(`:\s*(ModuleWithProviders)\s*[;{=\n)]`)

// findBareProvidersReturns locates ungeneric ModuleWithProviders return
// types in declaration-file text and prepares the splice narrowing each
// to typeText.
func findBareProvidersReturns(content []byte, typeText string) []render.ModuleWithProvidersParam {
	var params []render.ModuleWithProvidersParam
	for _, loc := range bareProvidersReturn.FindAllSubmatchIndex(content, -1) {
		params = append(params, render.ModuleWithProvidersParam{
			Insert:   uint(loc[3]),
			TypeText: typeText,
		})
	}
	return params
}
