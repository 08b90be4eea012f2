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
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "retrofit_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "retrofit_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "retrofit_test")
	cmd := exec.Command(binary, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

// fixtureCopy copies a testdata package into a temp directory, since
// compile rewrites packages in place.
func fixtureCopy(t *testing.T, fixture string) string {
	t.Helper()
	dst := t.TempDir()
	if err := os.CopyFS(dst, os.DirFS(fixture)); err != nil {
		t.Fatalf("Failed to copy fixture: %v", err)
	}
	return dst
}

func TestCompile(t *testing.T) {
	pkgDir := fixtureCopy(t, filepath.Join("testdata", "compile", "simple-pkg"))

	stdout, stderr, code := runCLI(t, "compile", "--package", pkgDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	if !strings.Contains(stdout, "1 files compiled") {
		t.Errorf("Expected compile summary, got: %s", stdout)
	}

	out, err := os.ReadFile(filepath.Join(pkgDir, "fesm2015", "simple-pkg.js"))
	if err != nil {
		t.Fatalf("Failed to read rewritten file: %v", err)
	}
	for _, expected := range []string{
		"import * as _rt from 'compat-runtime';",
		"_rt.defineDirective({ type: GreetComponent",
		"_rt.defineModule({ type: GreetModule",
	} {
		if !strings.Contains(string(out), expected) {
			t.Errorf("Expected %q in rewritten output", expected)
		}
	}

	if _, err := os.Stat(filepath.Join(pkgDir, "fesm2015", "simple-pkg.js.__orig__")); err != nil {
		t.Error("Expected backup twin alongside rewritten file")
	}
	if _, err := os.Stat(filepath.Join(pkgDir, "fesm2015", "simple-pkg.js.map")); err != nil {
		t.Error("Expected source map alongside rewritten file")
	}
}

func TestCompileSecondRunSkips(t *testing.T) {
	pkgDir := fixtureCopy(t, filepath.Join("testdata", "compile", "simple-pkg"))

	if _, stderr, code := runCLI(t, "compile", "--package", pkgDir); code != 0 {
		t.Fatalf("First run failed: %s", stderr)
	}
	stdout, stderr, code := runCLI(t, "compile", "--package", pkgDir)
	if code != 0 {
		t.Fatalf("Second run failed: %s", stderr)
	}

	if !strings.Contains(stdout, "already processed") {
		t.Errorf("Expected processed-marker skip, got: %s", stdout)
	}
	if !strings.Contains(stdout, "0 files compiled") {
		t.Errorf("Expected nothing recompiled, got: %s", stdout)
	}
}

func TestCompileNoBackup(t *testing.T) {
	pkgDir := fixtureCopy(t, filepath.Join("testdata", "compile", "simple-pkg"))

	if _, stderr, code := runCLI(t, "compile", "--package", pkgDir, "--no-backup"); code != 0 {
		t.Fatalf("Expected exit code 0, stderr: %s", stderr)
	}
	if _, err := os.Stat(filepath.Join(pkgDir, "fesm2015", "simple-pkg.js.__orig__")); err == nil {
		t.Error("Expected no backup twin with --no-backup")
	}
}

func TestCompileJSONReport(t *testing.T) {
	pkgDir := fixtureCopy(t, filepath.Join("testdata", "compile", "simple-pkg"))

	stdout, stderr, code := runCLI(t, "compile", "--package", pkgDir, "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var report struct {
		Order    []string `json:"Order"`
		Compiled []struct {
			Format string `json:"Format"`
		} `json:"Compiled"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("Failed to parse JSON report: %v\nstdout: %s", err, stdout)
	}
	if len(report.Order) != 1 || len(report.Compiled) != 1 {
		t.Errorf("Unexpected report: %s", stdout)
	}
	if report.Compiled[0].Format != "esm2015" {
		t.Errorf("Expected esm2015, got %s", report.Compiled[0].Format)
	}
}

func TestCompileInvalidFormat(t *testing.T) {
	_, stderr, code := runCLI(t, "compile", "--formats", "amd")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown format")
	}
	if !strings.Contains(stderr, "unknown format") {
		t.Errorf("Expected format error, got: %s", stderr)
	}
}

func TestCompileInvalidAlias(t *testing.T) {
	_, stderr, code := runCLI(t, "compile", "--alias", "no-separator")
	if code == 0 {
		t.Error("Expected non-zero exit code for malformed alias")
	}
	if !strings.Contains(stderr, "invalid alias") {
		t.Errorf("Expected alias error, got: %s", stderr)
	}
}

func TestDeps(t *testing.T) {
	fixtureDir := filepath.Join("testdata", "compile", "simple-pkg")

	stdout, stderr, code := runCLI(t, "deps", "--package", fixtureDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	if !strings.Contains(stdout, "esm2015") {
		t.Errorf("Expected declared format in output, got: %s", stdout)
	}
	if !strings.Contains(stdout, "order:") {
		t.Errorf("Expected order line, got: %s", stdout)
	}
}

func TestDepsJSON(t *testing.T) {
	fixtureDir := filepath.Join("testdata", "compile", "simple-pkg")

	stdout, stderr, code := runCLI(t, "deps", "--package", fixtureDir, "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var report struct {
		EntryPoints []struct {
			Path    string   `json:"path"`
			Formats []string `json:"formats"`
		} `json:"entryPoints"`
		Order []string `json:"order"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if len(report.EntryPoints) != 1 || len(report.Order) != 1 {
		t.Errorf("Unexpected report: %s", stdout)
	}
}

func TestHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}

	expectedStrings := []string{
		"retrofit",
		"compile",
		"deps",
		"--package",
		"--output",
	}

	for _, s := range expectedStrings {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in help output", s)
		}
	}
}

func TestCompileHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "compile", "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}

	expectedStrings := []string{
		"--formats",
		"--alias",
		"--runtime-module",
		"--no-backup",
	}

	for _, s := range expectedStrings {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in compile help output", s)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, code := runCLI(t, "unknown")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown command")
	}

	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("Expected 'unknown command' error, got: %s", stderr)
	}
}

func TestCompileMissingPackage(t *testing.T) {
	_, stderr, code := runCLI(t, "compile", "--package", filepath.Join(t.TempDir(), "absent"))
	if code == 0 {
		t.Error("Expected non-zero exit code for missing package")
	}
	if !strings.Contains(stderr, "package.json") {
		t.Errorf("Expected package.json error, got: %s", stderr)
	}
}
