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
// Package compile drives a compilation pass over a package directory:
// entry points are discovered, ordered so dependencies come first, gated
// through incremental state, and each format file is rewritten at its
// wrapper seams with its source map regenerated.
package compile

import (
	"fmt"

	"bennypowers.dev/retrofit/analysis"
	"bennypowers.dev/retrofit/deps"
	"bennypowers.dev/retrofit/entrypoint"
	"bennypowers.dev/retrofit/fs"
	"bennypowers.dev/retrofit/incremental"
	"bennypowers.dev/retrofit/jsparse"
	"bennypowers.dev/retrofit/manifest"
	"bennypowers.dev/retrofit/render"
	"bennypowers.dev/retrofit/resolve"
)

// DefaultRuntimeModule is the module new definitions import the runtime
// factories from.
const DefaultRuntimeModule = "compat-runtime"

// runtimeQualifier is the local name the runtime module is imported
// under in rewritten files.
const runtimeQualifier = "_rt"

// BackupSuffix twins every rewritten file with its original content.
const BackupSuffix = ".__orig__"

// Options configures a compilation pass.
type Options struct {
	// Formats restricts which declared formats are compiled. Empty means
	// every format each entry point declares.
	Formats []manifest.Format

	// Aliases is the path-alias configuration consulted during
	// resolution.
	Aliases *resolve.Aliases

	// RuntimeModule overrides DefaultRuntimeModule.
	RuntimeModule string

	// Version is recorded under the processed marker in each rewritten
	// manifest.
	Version string

	// IgnorePatterns adds entry-point discovery exclusions on top of the
	// defaults (node_modules and dotted directories).
	IgnorePatterns []string

	// CreateBackups twins each rewritten file with a BackupSuffix copy of
	// the original.
	CreateBackups bool

	Logger resolve.Logger
}

// Compiler rewrites package distributions. One Compiler carries its
// parse cache and incremental state across passes, so repeated
// CompilePackage calls skip files proven unaffected.
type Compiler struct {
	fs        fs.FileSystem
	opts      Options
	manifests manifest.Cache
	sources   *jsparse.Cache
	analyzer  analysis.Provider

	state    *incremental.State
	snapshot incremental.Snapshot
}

// New creates a Compiler over the given filesystem.
func New(fsys fs.FileSystem, opts Options) (*Compiler, error) {
	sources, err := jsparse.NewCache(fsys, 0)
	if err != nil {
		return nil, err
	}
	if opts.RuntimeModule == "" {
		opts.RuntimeModule = DefaultRuntimeModule
	}
	return &Compiler{
		fs:        fsys,
		opts:      opts,
		manifests: manifest.NewMemoryCache(),
		sources:   sources,
		analyzer:  analysis.NewScanner(),
		state:     incremental.NewState(),
	}, nil
}

// WithAnalyzer returns a new Compiler using the given analysis provider
// in place of the default decorator scanner.
func (c *Compiler) WithAnalyzer(p analysis.Provider) *Compiler {
	clone := *c
	clone.analyzer = p
	return &clone
}

// CompiledFile records one rewritten format file.
type CompiledFile struct {
	EntryPoint string
	Format     manifest.Format
	File       string
	Shape      render.Shape
}

// Report summarizes one compilation pass.
type Report struct {
	// Order is the dependency-sorted entry point sequence.
	Order []string

	Compiled []CompiledFile

	// SkippedProcessed lists entry-point formats a previous run already
	// rewrote; SkippedUnchanged lists files incremental state proved
	// unaffected since the last pass.
	SkippedProcessed []string
	SkippedUnchanged []string

	// Missing and DeepImports map each entry point to its unresolvable
	// specifiers and its imports bypassing another package's entry point.
	Missing     map[string][]string
	DeepImports map[string][]string

	// Failed maps entry points whose compilation errored to the error
	// text. A failed entry point is skipped, not fatal to the pass.
	Failed map[string]string
}

// CompilePackage rewrites every entry point of the package at dir, in
// dependency order. A dependency cycle between entry points is an error;
// unresolvable imports are reported, not fatal.
func (c *Compiler) CompilePackage(dir string) (*Report, error) {
	finder := entrypoint.NewFinder(c.fs).WithManifestCache(c.manifests)
	if c.opts.Logger != nil {
		finder = finder.WithLogger(c.opts.Logger)
	}
	if len(c.opts.IgnorePatterns) > 0 {
		var err error
		if finder, err = finder.WithIgnorePatterns(c.opts.IgnorePatterns); err != nil {
			return nil, err
		}
	}
	entryPoints, err := finder.FindEntryPoints(dir)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Missing:     make(map[string][]string),
		DeepImports: make(map[string][]string),
		Failed:      make(map[string]string),
	}

	byPath := make(map[string]*entrypoint.EntryPoint, len(entryPoints))
	order, err := c.orderEntryPoints(entryPoints, byPath, report)
	if err != nil {
		return nil, err
	}
	report.Order = order

	for _, path := range order {
		ep := byPath[path]
		if ep == nil {
			continue
		}
		if err := c.compileEntryPoint(ep, report); err != nil {
			report.Failed[path] = err.Error()
			if c.opts.Logger != nil {
				c.opts.Logger.Warning("skipping entry point %s: %v", path, err)
			}
		}
	}
	return report, nil
}

// orderEntryPoints scans each entry point's dependencies, reconciles
// incremental state against the previous pass, and returns the
// dependency-sorted entry point paths.
func (c *Compiler) orderEntryPoints(entryPoints []*entrypoint.EntryPoint, byPath map[string]*entrypoint.EntryPoint, report *Report) ([]string, error) {
	resolver := resolve.New(c.fs, c.scanFormat()).WithManifestCache(c.manifests)
	if c.opts.Aliases != nil {
		resolver = resolver.WithAliases(c.opts.Aliases)
	}
	if c.opts.Logger != nil {
		resolver = resolver.WithLogger(c.opts.Logger)
	}

	// File dependencies observed during the scan belong to the state of
	// the pass being reconciled into, so they are collected and replayed
	// after reconciliation.
	type dependencyPair struct{ dependency, dependent string }
	var observed []dependencyPair
	host := deps.NewHost(c.fs, c.sources, resolver).
		WithFileDependencyObserver(func(dependency, dependent string) {
			observed = append(observed, dependencyPair{dependency, dependent})
		})
	if c.opts.Logger != nil {
		host = host.WithLogger(c.opts.Logger)
	}

	graph := deps.NewGraph()
	var allFiles []string
	for _, ep := range entryPoints {
		byPath[ep.Path] = ep
		graph.AddEntryPoint(ep.Path)

		entryFile := c.scanFile(ep)
		if entryFile == "" {
			continue
		}
		allFiles = append(allFiles, c.formatFiles(ep)...)
		// Declaration files join the snapshot so a newly appearing one
		// triggers the conservative full invalidation.
		if typings := ep.TypingsFile(); typings != "" && c.fs.Exists(typings) {
			allFiles = append(allFiles, typings)
		}

		set, err := host.FindDependencies(entryFile)
		if err != nil {
			return nil, err
		}
		for _, dep := range set.Dependencies {
			graph.AddDependency(ep.Path, dep)
		}
		if len(set.Missing) > 0 {
			report.Missing[ep.Path] = set.Missing
			if c.opts.Logger != nil {
				c.opts.Logger.Warning("entry point %s has unresolvable imports: %v", ep.Path, set.Missing)
			}
		}
		if len(set.DeepImports) > 0 {
			report.DeepImports[ep.Path] = set.DeepImports
		}
	}

	order, err := graph.Sorted()
	if err != nil {
		return nil, fmt.Errorf("entry points do not form a compilable order: %w", err)
	}

	for _, pair := range observed {
		allFiles = append(allFiles, pair.dependency)
	}
	snapshot, err := incremental.SnapshotFiles(c.fs, dedupe(allFiles))
	if err != nil {
		return nil, err
	}
	c.state = incremental.Reconcile(c.state, c.snapshot, snapshot)
	c.snapshot = snapshot
	for _, pair := range observed {
		c.state.TrackFileDependency(pair.dependency, pair.dependent)
	}

	return order, nil
}

// compileEntryPoint rewrites every requested format of one entry point,
// narrows its typings, and marks the manifest processed.
func (c *Compiler) compileEntryPoint(ep *entrypoint.EntryPoint, report *Report) error {
	var compiled []manifest.Format
	var moduleClasses []string

	for _, format := range c.entryPointFormats(ep) {
		if ep.Manifest.IsProcessed(format) {
			report.SkippedProcessed = append(report.SkippedProcessed,
				fmt.Sprintf("%s (%s)", ep.Path, format))
			continue
		}
		file := ep.FileFor(format)
		if file == "" || !c.fs.Exists(file) {
			continue
		}
		if c.state.SafeToSkip(file) {
			report.SkippedUnchanged = append(report.SkippedUnchanged, file)
			continue
		}

		shape, modules, err := c.compileFile(file)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", file, err)
		}
		compiled = append(compiled, format)
		moduleClasses = modules
		report.Compiled = append(report.Compiled, CompiledFile{
			EntryPoint: ep.Path,
			Format:     format,
			File:       file,
			Shape:      shape,
		})
	}

	if len(compiled) == 0 {
		return nil
	}
	if err := c.narrowTypings(ep, moduleClasses); err != nil {
		return err
	}
	if err := manifest.MarkProcessed(c.fs, ep.ManifestPath, c.opts.Version, compiled); err != nil {
		return err
	}
	c.manifests.Invalidate(ep.ManifestPath)
	return nil
}

// compileFile rewrites one format file in place, returning its detected
// wrapper shape and the names of its module-decorated classes.
func (c *Compiler) compileFile(file string) (render.Shape, []string, error) {
	sf, err := c.sources.Load(file)
	if err != nil {
		return render.ShapeUnknown, nil, err
	}
	fileMap, err := render.LoadFileMap(c.fs, file, sf.Content)
	if err != nil {
		return render.ShapeUnknown, nil, err
	}
	classes, err := c.analyzer.DecoratedClasses(sf)
	if err != nil {
		return render.ShapeUnknown, nil, err
	}

	formatter, shape := render.NewFormatter(sf)
	b := render.NewBuffer(sf.Content)
	if fileMap.Present {
		b.Remove(fileMap.Comment)
	}

	moduleClasses := c.applyClassEdits(b, formatter, file, classes)
	if err := formatter.RewriteSwitchableDeclarations(b); err != nil {
		return shape, nil, err
	}

	result := b.Materialize()
	outputMap := render.GenerateMap(result, file, sf.Content, fileMap)
	rendered, err := render.EmitMap(outputMap, file, fileMap)
	if err != nil {
		return shape, nil, err
	}

	if c.opts.CreateBackups && !c.fs.Exists(file+BackupSuffix) {
		if err := c.fs.WriteFile(file+BackupSuffix, sf.Content, 0644); err != nil {
			return shape, nil, err
		}
	}
	text := append(result.Text, []byte("\n"+rendered.Comment)...)
	if err := c.fs.WriteFile(file, text, 0644); err != nil {
		return shape, nil, err
	}
	c.sources.Invalidate(file)
	if rendered.MapContent != nil {
		if err := c.fs.WriteFile(rendered.MapPath, rendered.MapContent, 0644); err != nil {
			return shape, nil, err
		}
	}
	return shape, moduleClasses, nil
}

// applyClassEdits synthesizes runtime definitions for each decorated
// class, strips the superseded decorator metadata, and registers the
// analysis results for incremental reuse. It returns the names of
// module-decorated classes.
func (c *Compiler) applyClassEdits(b *render.Buffer, formatter render.Formatter, file string, classes []analysis.ClassDescription) []string {
	var moduleClasses []string
	imported := false

	for _, class := range classes {
		var removed []string
		for _, d := range class.Decorators {
			def, kind, ok := definitionFor(class.Name, d)
			if !ok {
				continue
			}
			if !imported {
				formatter.AddImports(b, []render.Import{
					{Specifier: c.opts.RuntimeModule, Qualifier: runtimeQualifier},
				})
				imported = true
			}
			formatter.AddDefinitions(b, class, def)
			removed = append(removed, d.Identifier)

			switch kind {
			case incremental.ModuleMetadata:
				moduleClasses = append(moduleClasses, class.Name)
				c.state.RegisterModuleMetadata(file, class.NodeStart, class)
			case incremental.PipeMetadata:
				c.state.RegisterPipeMetadata(file, class.NodeStart, class)
			default:
				c.state.RegisterDirectiveMetadata(file, class.NodeStart, class)
			}
		}
		if len(removed) == 0 {
			continue
		}
		formatter.AddAdjacentStatements(b, class,
			runtimeQualifier+".setClassMetadata("+class.Name+");")
		formatter.RemoveDecorators(b, class, removed)
	}
	return moduleClasses
}

// narrowTypings splices a generic type argument into bare
// ModuleWithProviders return types in the entry point's declaration
// file. Applied only when the entry point has exactly one
// module-decorated class; with several the right argument is ambiguous
// and the typings are left alone.
func (c *Compiler) narrowTypings(ep *entrypoint.EntryPoint, moduleClasses []string) error {
	if len(moduleClasses) != 1 {
		return nil
	}
	typings := ep.TypingsFile()
	if typings == "" || !c.fs.Exists(typings) {
		return nil
	}
	sf, err := c.sources.Load(typings)
	if err != nil {
		return err
	}
	params := findBareProvidersReturns(sf.Content, "typeof "+moduleClasses[0])
	if len(params) == 0 {
		return nil
	}

	formatter := render.NewESMFormatter(sf)
	b := render.NewBuffer(sf.Content)
	formatter.AddModuleWithProvidersParams(b, params)
	result := b.Materialize()

	if c.opts.CreateBackups && !c.fs.Exists(typings+BackupSuffix) {
		if err := c.fs.WriteFile(typings+BackupSuffix, sf.Content, 0644); err != nil {
			return err
		}
	}
	if err := c.fs.WriteFile(typings, result.Text, 0644); err != nil {
		return err
	}
	c.sources.Invalidate(typings)
	return nil
}

// scanFormat is the format whose entry-point files dependency scanning
// reads. Dependency sets are the same across a package's formats, so one
// representative suffices.
func (c *Compiler) scanFormat() manifest.Format {
	if len(c.opts.Formats) > 0 {
		return c.opts.Formats[0]
	}
	return manifest.FormatESM2015
}

// scanFile is the representative file dependency scanning starts from.
func (c *Compiler) scanFile(ep *entrypoint.EntryPoint) string {
	order := []manifest.Format{c.scanFormat(), manifest.FormatESM2015,
		manifest.FormatESM5, manifest.FormatCommonJS, manifest.FormatUMD}
	for _, f := range order {
		if file := ep.FileFor(f); file != "" && c.fs.Exists(file) {
			return file
		}
	}
	return ""
}

// entryPointFormats intersects the requested formats with what the
// entry point declares.
func (c *Compiler) entryPointFormats(ep *entrypoint.EntryPoint) []manifest.Format {
	declared := ep.Formats()
	if len(c.opts.Formats) == 0 {
		return declared
	}
	var formats []manifest.Format
	for _, requested := range c.opts.Formats {
		for _, d := range declared {
			if requested == d {
				formats = append(formats, requested)
				break
			}
		}
	}
	return formats
}

// formatFiles lists every existing declared format file of an entry
// point.
func (c *Compiler) formatFiles(ep *entrypoint.EntryPoint) []string {
	var files []string
	for _, f := range ep.Formats() {
		if file := ep.FileFor(f); file != "" && c.fs.Exists(file) {
			files = append(files, file)
		}
	}
	return files
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
