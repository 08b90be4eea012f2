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
package render_test

import (
	"strings"
	"testing"

	"bennypowers.dev/retrofit/analysis"
	"bennypowers.dev/retrofit/internal/mapfs"
	"bennypowers.dev/retrofit/jsparse"
	"bennypowers.dev/retrofit/render"
)

func parseSource(t *testing.T, content string) *jsparse.SourceFile {
	t.Helper()
	mfs := mapfs.New()
	mfs.AddFile("/pkg/index.js", content, 0644)
	cache, err := jsparse.NewCache(mfs, 0)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	sf, err := cache.Load("/pkg/index.js")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return sf
}

const umdSource = `(function (global, factory) {
  typeof exports === 'object' && typeof module !== 'undefined' ? factory(exports, require('lib-a')) :
  typeof define === 'function' && define.amd ? define(['exports', 'lib-a'], factory) :
  (factory((global.pkg = {}), global.lib_a));
}(this, (function (exports, liba) { 'use strict';
  var Widget = {};
  exports.Widget = Widget;
})));
`

func TestDetectShape(t *testing.T) {
	cases := []struct {
		name     string
		source   string
		expected render.Shape
	}{
		{"esm import", "import { x } from 'lib';\nexport const y = x;\n", render.ShapeESM},
		{"esm export only", "export function f() {}\n", render.ShapeESM},
		{"commonjs require", "var lib = require('lib');\nmodule.exports = lib;\n", render.ShapeCommonJS},
		{"commonjs exports", "exports.f = function () {};\n", render.ShapeCommonJS},
		{"umd", umdSource, render.ShapeUMD},
		{"bare script", "var a = 1;\nconsole.log(a);\n", render.ShapeUnknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			shape, _ := render.DetectShape(parseSource(t, c.source))
			if shape != c.expected {
				t.Errorf("shape = %v, expected %v", shape, c.expected)
			}
		})
	}
}

func TestESMAddImportsExportsConstants(t *testing.T) {
	source := "import { a } from './a';\nvar b = a;\n"
	sf := parseSource(t, source)
	f := render.NewESMFormatter(sf)
	b := render.NewBuffer(sf.Content)

	f.AddImports(b, []render.Import{{Specifier: "lib-x", Qualifier: "qx"}})
	f.AddConstants(b, "var SHARED = 1;")
	f.AddExports(b, []render.Export{{Identifier: "Widget", From: "./widget"}})

	got := string(b.Materialize().Text)
	expectText(t, "import * as qx from 'lib-x';\n"+
		"import { a } from './a';\n"+
		"var SHARED = 1;\n"+
		"\nvar b = a;\n"+
		"\nexport {Widget} from './widget';", got)
}

func TestESMAddDefinitionsAfterClassStatement(t *testing.T) {
	source := `var W = {};
W.decorators = [
  { type: Directive, args: [] },
];
var after = 1;
`
	sf := parseSource(t, source)
	classes, err := analysis.NewScanner().DecoratedClasses(sf)
	if err != nil || len(classes) != 1 {
		t.Fatalf("scan: %v, %d classes", err, len(classes))
	}

	f := render.NewESMFormatter(sf)
	b := render.NewBuffer(sf.Content)
	f.AddDefinitions(b, classes[0], "W.def = defineDirective({});")
	f.AddAdjacentStatements(b, classes[0], "setClassMetadata(W);")

	got := string(b.Materialize().Text)
	if !strings.Contains(got, "];\nW.def = defineDirective({});\nsetClassMetadata(W);\nvar after = 1;") {
		t.Errorf("definitions should follow the metadata statement in call order:\n%s", got)
	}
}

func TestRemoveSomeDecorators(t *testing.T) {
	source := `W.decorators = [
  { type: Directive, args: [] },
  { type: Keep, args: [] },
];
`
	sf := parseSource(t, source)
	classes, err := analysis.NewScanner().DecoratedClasses(sf)
	if err != nil || len(classes) != 1 {
		t.Fatalf("scan: %v, %d classes", err, len(classes))
	}

	f := render.NewESMFormatter(sf)
	b := render.NewBuffer(sf.Content)
	f.RemoveDecorators(b, classes[0], []string{"Directive"})

	got := string(b.Materialize().Text)
	expectText(t, "W.decorators = [\n  \n  { type: Keep, args: [] },\n];\n", got)
}

func TestRemoveAllDecoratorsCollapsesStatement(t *testing.T) {
	source := `var W = {};
W.decorators = [
  { type: Directive, args: [] },
];
var after = 1;
`
	sf := parseSource(t, source)
	classes, err := analysis.NewScanner().DecoratedClasses(sf)
	if err != nil || len(classes) != 1 {
		t.Fatalf("scan: %v, %d classes", err, len(classes))
	}

	f := render.NewESMFormatter(sf)
	b := render.NewBuffer(sf.Content)
	f.RemoveDecorators(b, classes[0], []string{"Directive"})

	got := string(b.Materialize().Text)
	expectText(t, "var W = {};\nvar after = 1;\n", got)
}

func TestRewriteSwitchableDeclarations(t *testing.T) {
	source := "var compileInjectable = compileInjectable__PRE_RUNTIME__;\nvar untouched = other;\n"
	sf := parseSource(t, source)
	f := render.NewESMFormatter(sf)
	b := render.NewBuffer(sf.Content)

	if err := f.RewriteSwitchableDeclarations(b); err != nil {
		t.Fatalf("RewriteSwitchableDeclarations failed: %v", err)
	}

	got := string(b.Materialize().Text)
	expectText(t, "var compileInjectable = compileInjectable__POST_RUNTIME__;\nvar untouched = other;\n", got)
}

func TestCommonJSAddImportsAndExports(t *testing.T) {
	source := "var a = require('./a');\nmodule.exports = a;\n"
	sf := parseSource(t, source)
	f := render.NewCommonJSFormatter(sf)
	b := render.NewBuffer(sf.Content)

	f.AddImports(b, []render.Import{{Specifier: "lib-x", Qualifier: "qx"}})
	f.AddExports(b, []render.Export{
		{Identifier: "Widget", From: "./widget"},
		{Identifier: "Gadget", From: "./widget"},
	})

	got := string(b.Materialize().Text)
	if !strings.HasPrefix(got, "var qx = require('lib-x');\nvar a = require('./a');") {
		t.Errorf("imports should precede the first statement:\n%s", got)
	}
	if !strings.Contains(got, "var _rf0 = require('./widget');\nexports.Widget = _rf0.Widget;\nexports.Gadget = _rf0.Gadget;") {
		t.Errorf("exports from one module should share a require:\n%s", got)
	}
}

// A universal wrapper with all three branches present receives the same
// two dependencies at all four seams.
func TestUMDAddImportsEditsAllFourSeams(t *testing.T) {
	sf := parseSource(t, umdSource)
	formatter, shape := render.NewFormatter(sf)
	if shape != render.ShapeUMD {
		t.Fatalf("shape = %v", shape)
	}

	b := render.NewBuffer(sf.Content)
	formatter.AddImports(b, []render.Import{
		{Specifier: "lib-b", Qualifier: "qb"},
		{Specifier: "lib-c", Qualifier: "qc"},
	})

	got := string(b.Materialize().Text)
	for _, expected := range []string{
		"factory(exports, require('lib-a'), require('lib-b'), require('lib-c'))",
		"define(['exports', 'lib-a', 'lib-b', 'lib-c'], factory)",
		"(factory((global.pkg = {}), global.lib_a, global.lib_b, global.lib_c))",
		"function (exports, liba, qb, qc)",
	} {
		if !strings.Contains(got, expected) {
			t.Errorf("missing %q in:\n%s", expected, got)
		}
	}
}

func TestUMDAddExportsInsideFactory(t *testing.T) {
	sf := parseSource(t, umdSource)
	formatter, _ := render.NewFormatter(sf)

	b := render.NewBuffer(sf.Content)
	formatter.AddExports(b, []render.Export{{Identifier: "Extra", From: "lib-b"}})

	got := string(b.Materialize().Text)
	if !strings.Contains(got, "exports.Extra = _rf0.Extra;") {
		t.Errorf("export assignment missing:\n%s", got)
	}
	if !strings.Contains(got, "require('lib-a'), require('lib-b')") {
		t.Errorf("export source should be wired through the wrapper seams:\n%s", got)
	}
	// The assignment must land inside the factory, before its close.
	if strings.Index(got, "exports.Extra") > strings.Index(got, "})));") {
		t.Errorf("export assignment landed outside the factory:\n%s", got)
	}
}

func TestUMDAddConstantsAfterPrologue(t *testing.T) {
	sf := parseSource(t, umdSource)
	formatter, _ := render.NewFormatter(sf)

	b := render.NewBuffer(sf.Content)
	formatter.AddConstants(b, "var SHARED = 1;")

	got := string(b.Materialize().Text)
	if !strings.Contains(got, "'use strict';\n  \nvar SHARED = 1;\nvar Widget") {
		t.Errorf("constants should follow the directive prologue:\n%s", got)
	}
}

// A wrapper missing its AMD branch gets the remaining seams edited and
// the absent branch silently skipped.
func TestUMDMissingBranchSkipped(t *testing.T) {
	source := `(function (global, factory) {
  typeof exports === 'object' ? factory(exports) :
  (factory((global.pkg = {})));
}(this, (function (exports) {
  exports.a = 1;
})));
`
	sf := parseSource(t, source)
	formatter, shape := render.NewFormatter(sf)
	if shape != render.ShapeUMD {
		t.Fatalf("shape = %v", shape)
	}

	b := render.NewBuffer(sf.Content)
	formatter.AddImports(b, []render.Import{{Specifier: "lib-b", Qualifier: "qb"}})

	got := string(b.Materialize().Text)
	if !strings.Contains(got, "factory(exports, require('lib-b'))") {
		t.Errorf("require branch unedited:\n%s", got)
	}
	if strings.Contains(got, "define") {
		t.Errorf("no AMD text should appear:\n%s", got)
	}
}

func TestUnknownShapeIsNoop(t *testing.T) {
	source := "var a = 1;\nconsole.log(a);\n"
	sf := parseSource(t, source)
	formatter, shape := render.NewFormatter(sf)
	if shape != render.ShapeUnknown {
		t.Fatalf("shape = %v", shape)
	}

	b := render.NewBuffer(sf.Content)
	formatter.AddImports(b, []render.Import{{Specifier: "lib-b", Qualifier: "qb"}})
	formatter.AddConstants(b, "var SHARED = 1;")
	if b.Edited() {
		t.Error("unrecognized files must be left untouched")
	}
}

// Rendering with nothing to do reproduces the input byte for byte,
// whatever the wrapper shape.
func TestZeroEditRoundTrip(t *testing.T) {
	sources := map[string]string{
		"esm":      "import { a } from './a';\nexport const b = a;\n",
		"commonjs": "var a = require('./a');\nexports.b = a;\n",
		"umd":      umdSource,
	}
	for name, source := range sources {
		t.Run(name, func(t *testing.T) {
			sf := parseSource(t, source)
			formatter, _ := render.NewFormatter(sf)
			b := render.NewBuffer(sf.Content)
			formatter.AddImports(b, nil)
			formatter.AddExports(b, nil)
			formatter.AddConstants(b, "")
			if err := formatter.RewriteSwitchableDeclarations(b); err != nil {
				t.Fatalf("RewriteSwitchableDeclarations failed: %v", err)
			}
			expectText(t, source, string(b.Materialize().Text))
		})
	}
}

func TestAddModuleWithProvidersParams(t *testing.T) {
	source := "export declare function forRoot(): ModuleWithProviders;\n"
	sf := parseSource(t, source)
	f := render.NewESMFormatter(sf)
	b := render.NewBuffer(sf.Content)

	at := uint(strings.Index(source, "ModuleWithProviders") + len("ModuleWithProviders"))
	f.AddModuleWithProvidersParams(b, []render.ModuleWithProvidersParam{
		{Insert: at, TypeText: "typeof AppModule"},
	})

	got := string(b.Materialize().Text)
	expectText(t, "export declare function forRoot(): ModuleWithProviders<typeof AppModule>;\n", got)
}
