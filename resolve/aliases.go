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
package resolve

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// AliasPattern maps a glob-like specifier prefix pattern to one or more
// candidate replacement roots, tried in order. Patterns contain at most
// one "*", which captures the rest of the specifier and substitutes into
// each target's "*".
type AliasPattern struct {
	Pattern string
	Targets []string
}

// Aliases is a path-alias configuration: an ordered list of patterns
// resolved against a base directory.
type Aliases struct {
	BaseDir  string
	Patterns []AliasPattern
}

// NewAliases validates and constructs an alias configuration.
func NewAliases(baseDir string, patterns []AliasPattern) (*Aliases, error) {
	for _, p := range patterns {
		if strings.Count(p.Pattern, "*") > 1 {
			return nil, fmt.Errorf("alias pattern %q: at most one wildcard allowed", p.Pattern)
		}
		if !doublestar.ValidatePattern(p.Pattern) {
			return nil, fmt.Errorf("invalid alias pattern %q", p.Pattern)
		}
		for _, target := range p.Targets {
			if strings.Count(target, "*") > 1 {
				return nil, fmt.Errorf("alias target %q: at most one wildcard allowed", target)
			}
		}
		if len(p.Targets) == 0 {
			return nil, fmt.Errorf("alias pattern %q has no targets", p.Pattern)
		}
	}
	return &Aliases{BaseDir: baseDir, Patterns: patterns}, nil
}

// Candidates returns the candidate absolute paths for a specifier, in
// configuration order. Empty when no pattern matches.
func (a *Aliases) Candidates(specifier string) []string {
	var candidates []string
	for _, p := range a.Patterns {
		captured, ok := matchPattern(p.Pattern, specifier)
		if !ok {
			continue
		}
		for _, target := range p.Targets {
			substituted := strings.Replace(target, "*", captured, 1)
			candidates = append(candidates, path.Join(a.BaseDir, substituted))
		}
	}
	return candidates
}

// matchPattern matches specifier against a single-wildcard prefix pattern
// and returns the text captured by the wildcard.
func matchPattern(pattern, specifier string) (captured string, ok bool) {
	star := strings.Index(pattern, "*")
	if star < 0 {
		return "", pattern == specifier
	}
	prefix, suffix := pattern[:star], pattern[star+1:]
	if len(specifier) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
		return "", false
	}
	return specifier[len(prefix) : len(specifier)-len(suffix)], true
}
