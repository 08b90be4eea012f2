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

// Package compile provides the compile command for retrofit.
package compile

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/retrofit/compile"
	"bennypowers.dev/retrofit/fs"
	"bennypowers.dev/retrofit/internal/output"
	"bennypowers.dev/retrofit/internal/version"
	"bennypowers.dev/retrofit/manifest"
	"bennypowers.dev/retrofit/resolve"
)

// Cmd is the compile cobra command that rewrites a package's distributed
// format files in place.
var Cmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a package's distributed formats in place",
	Long: `Compile every entry point of a package directory, in dependency order.

Each declared format file (esm2015, esm5, commonjs, umd) is rewritten at its
wrapper seams, its source map is regenerated, and the package manifest is
marked so repeated runs skip already-processed formats.`,
	Example: `  # Compile every declared format of the package in the current directory
  retrofit compile

  # Compile one installed dependency
  retrofit compile -p node_modules/@example/widgets

  # Restrict to flattened ES2015 output
  retrofit compile --formats esm2015

  # Map an import prefix onto local directories during resolution
  retrofit compile --alias "@example/*=packages/*/dist"

  # Skip the .__orig__ backup twins
  retrofit compile --no-backup`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringSlice("formats", nil, "Formats to compile (esm2015, esm5, commonjs, umd; default: all declared)")
	Cmd.Flags().StringArray("alias", nil, "Path alias pattern=target[,target...] (can be repeated)")
	Cmd.Flags().String("runtime-module", compile.DefaultRuntimeModule, "Module the rewritten files import runtime factories from")
	Cmd.Flags().StringSlice("ignore", nil, "Extra glob patterns excluded from entry-point discovery")
	Cmd.Flags().Bool("no-backup", false, "Do not twin rewritten files with their original content")
	Cmd.Flags().StringP("format", "f", "text", "Report format (text, json)")
	Cmd.Flags().BoolP("verbose", "v", false, "Log resolution diagnostics to stderr")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewCachingFileSystem(fs.NewOSFileSystem())
	absRoot, err := filepath.Abs(viper.GetString("package"))
	if err != nil {
		return fmt.Errorf("invalid package directory: %w", err)
	}

	reportFormat, _ := cmd.Flags().GetString("format")
	if reportFormat != "text" && reportFormat != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", reportFormat)
	}

	formats, err := parseFormats(cmd)
	if err != nil {
		return err
	}
	aliases, err := parseAliases(cmd, absRoot)
	if err != nil {
		return err
	}

	runtimeModule, _ := cmd.Flags().GetString("runtime-module")
	ignore, _ := cmd.Flags().GetStringSlice("ignore")
	noBackup, _ := cmd.Flags().GetBool("no-backup")
	verbose, _ := cmd.Flags().GetBool("verbose")

	compiler, err := compile.New(osfs, compile.Options{
		Formats:        formats,
		Aliases:        aliases,
		RuntimeModule:  runtimeModule,
		Version:        version.GetVersion(),
		IgnorePatterns: ignore,
		CreateBackups:  !noBackup,
		Logger:         &output.Logger{Verbose: verbose},
	})
	if err != nil {
		return err
	}

	report, err := compiler.CompilePackage(absRoot)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", absRoot, err)
	}

	if reportFormat == "json" {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling report: %w", err)
		}
		return output.Text(osfs, string(out))
	}
	return output.Text(osfs, formatReport(report))
}

// parseFormats validates the --formats flag against the known format names.
func parseFormats(cmd *cobra.Command) ([]manifest.Format, error) {
	names, _ := cmd.Flags().GetStringSlice("formats")
	var formats []manifest.Format
	for _, name := range names {
		switch f := manifest.Format(name); f {
		case manifest.FormatESM2015, manifest.FormatESM5, manifest.FormatCommonJS, manifest.FormatUMD:
			formats = append(formats, f)
		default:
			return nil, fmt.Errorf("unknown format %q: must be one of esm2015, esm5, commonjs, umd", name)
		}
	}
	return formats, nil
}

// parseAliases builds the alias configuration from repeated --alias flags
// of the form pattern=target[,target...], resolved against the package
// directory.
func parseAliases(cmd *cobra.Command, baseDir string) (*resolve.Aliases, error) {
	values, _ := cmd.Flags().GetStringArray("alias")
	if len(values) == 0 {
		return nil, nil
	}
	var patterns []resolve.AliasPattern
	for _, value := range values {
		pattern, targets, found := strings.Cut(value, "=")
		if !found || pattern == "" || targets == "" {
			return nil, fmt.Errorf("invalid alias %q: expected pattern=target[,target...]", value)
		}
		patterns = append(patterns, resolve.AliasPattern{
			Pattern: pattern,
			Targets: strings.Split(targets, ","),
		})
	}
	return resolve.NewAliases(baseDir, patterns)
}

// formatReport renders the pass summary as text.
func formatReport(report *compile.Report) string {
	var b strings.Builder
	for _, f := range report.Compiled {
		fmt.Fprintf(&b, "compiled %s (%s, %s)\n", f.File, f.Format, f.Shape)
	}
	for _, skipped := range report.SkippedProcessed {
		fmt.Fprintf(&b, "skipped %s: already processed\n", skipped)
	}
	for _, skipped := range report.SkippedUnchanged {
		fmt.Fprintf(&b, "skipped %s: unchanged\n", skipped)
	}
	for _, ep := range report.Order {
		if reason, ok := report.Failed[ep]; ok {
			fmt.Fprintf(&b, "failed %s: %s\n", ep, reason)
		}
		if missing := report.Missing[ep]; len(missing) > 0 {
			fmt.Fprintf(&b, "missing from %s: %s\n", ep, strings.Join(missing, ", "))
		}
		if deep := report.DeepImports[ep]; len(deep) > 0 {
			fmt.Fprintf(&b, "deep imports from %s: %s\n", ep, strings.Join(deep, ", "))
		}
	}
	fmt.Fprintf(&b, "%d entry points, %d files compiled", len(report.Order), len(report.Compiled))
	return b.String()
}
