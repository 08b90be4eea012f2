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

// Package deps provides the deps command for retrofit.
package deps

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/retrofit/deps"
	"bennypowers.dev/retrofit/entrypoint"
	"bennypowers.dev/retrofit/fs"
	"bennypowers.dev/retrofit/internal/output"
	"bennypowers.dev/retrofit/jsparse"
	"bennypowers.dev/retrofit/manifest"
	"bennypowers.dev/retrofit/resolve"
)

// Cmd is the deps cobra command that reports a package's entry points,
// their dependencies, and the order a compilation pass would visit them.
var Cmd = &cobra.Command{
	Use:   "deps",
	Short: "Show entry points and their dependency order",
	Long: `Show the entry points of a package, what each one depends on, and the
dependency-sorted order a compilation pass would visit them in.

Unresolvable imports and deep imports (imports reaching past another
package's entry point) are listed per entry point.`,
	Example: `  # Inspect the package in the current directory
  retrofit deps

  # Inspect one installed dependency as JSON
  retrofit deps -p node_modules/@example/widgets --format json`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

// entryPointReport is one entry point's dependency partitions.
type entryPointReport struct {
	Path         string   `json:"path"`
	Formats      []string `json:"formats"`
	Dependencies []string `json:"dependencies,omitempty"`
	Missing      []string `json:"missing,omitempty"`
	DeepImports  []string `json:"deepImports,omitempty"`
}

type depsReport struct {
	EntryPoints []entryPointReport `json:"entryPoints"`
	Order       []string           `json:"order"`
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewCachingFileSystem(fs.NewOSFileSystem())
	absRoot, err := filepath.Abs(viper.GetString("package"))
	if err != nil {
		return fmt.Errorf("invalid package directory: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", format)
	}

	entryPoints, err := entrypoint.NewFinder(osfs).FindEntryPoints(absRoot)
	if err != nil {
		return err
	}

	sources, err := jsparse.NewCache(osfs, 0)
	if err != nil {
		return err
	}
	resolver := resolve.New(osfs, manifest.FormatESM2015)
	host := deps.NewHost(osfs, sources, resolver)
	graph := deps.NewGraph()

	report := depsReport{}
	for _, ep := range entryPoints {
		graph.AddEntryPoint(ep.Path)
		epr := entryPointReport{Path: ep.Path}
		for _, f := range ep.Formats() {
			epr.Formats = append(epr.Formats, string(f))
		}

		if entryFile := representativeFile(osfs, ep); entryFile != "" {
			set, err := host.FindDependencies(entryFile)
			if err != nil {
				return err
			}
			epr.Dependencies = set.Dependencies
			epr.Missing = set.Missing
			epr.DeepImports = set.DeepImports
			for _, dep := range set.Dependencies {
				graph.AddDependency(ep.Path, dep)
			}
		}
		report.EntryPoints = append(report.EntryPoints, epr)
	}

	order, err := graph.Sorted()
	if err != nil {
		return err
	}
	report.Order = order

	if format == "json" {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling report: %w", err)
		}
		return output.Text(osfs, string(out))
	}
	return output.Text(osfs, formatReport(report))
}

// representativeFile picks the first declared format file that exists;
// dependency sets are the same across a package's formats.
func representativeFile(osfs fs.FileSystem, ep *entrypoint.EntryPoint) string {
	for _, f := range ep.Formats() {
		if file := ep.FileFor(f); file != "" && osfs.Exists(file) {
			return file
		}
	}
	return ""
}

func formatReport(report depsReport) string {
	var b strings.Builder
	for _, ep := range report.EntryPoints {
		fmt.Fprintf(&b, "%s (%s)\n", ep.Path, strings.Join(ep.Formats, ", "))
		for _, dep := range ep.Dependencies {
			fmt.Fprintf(&b, "  depends on %s\n", dep)
		}
		for _, missing := range ep.Missing {
			fmt.Fprintf(&b, "  missing %s\n", missing)
		}
		for _, deep := range ep.DeepImports {
			fmt.Fprintf(&b, "  deep import %s\n", deep)
		}
	}
	fmt.Fprintf(&b, "order: %s", strings.Join(report.Order, " -> "))
	return b.String()
}
