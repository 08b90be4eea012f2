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
package deps

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Graph tracks dependencies between entry-point roots so compilation can
// process dependencies before dependents. Cycles between packages are an
// unsupported configuration and surface as an error from Sorted; cycles
// between files inside one package never reach this graph (the Host's
// visited set absorbs them).
type Graph struct {
	mu sync.RWMutex

	// dependsOn maps entry-point root -> set of roots it imports
	dependsOn map[string]map[string]bool

	// dependents maps entry-point root -> set of roots that import it
	dependents map[string]map[string]bool
}

// NewGraph creates an empty entry-point graph.
func NewGraph() *Graph {
	return &Graph{
		dependsOn:  make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// AddEntryPoint registers a root with no edges yet.
func (g *Graph) AddEntryPoint(root string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dependsOn[root] == nil {
		g.dependsOn[root] = make(map[string]bool)
	}
	if g.dependents[root] == nil {
		g.dependents[root] = make(map[string]bool)
	}
}

// AddDependency records that dependent's entry point imports dependency's.
func (g *Graph) AddDependency(dependent, dependency string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dependsOn[dependent] == nil {
		g.dependsOn[dependent] = make(map[string]bool)
	}
	g.dependsOn[dependent][dependency] = true

	if g.dependents[dependency] == nil {
		g.dependents[dependency] = make(map[string]bool)
	}
	g.dependents[dependency][dependent] = true
}

// Dependencies returns the roots a given root directly depends on.
func (g *Graph) Dependencies(root string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependsOn[root])
}

// Dependents returns the roots that directly depend on a given root.
func (g *Graph) Dependents(root string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[root])
}

// Sorted returns every registered root in dependency order (dependencies
// before dependents). Roots with no ordering constraint between them come
// out in lexical order, so the result is deterministic. A dependency
// cycle between packages returns an error naming the cycle members.
func (g *Graph) Sorted() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Kahn's algorithm over in-degree = number of unprocessed dependencies.
	indegree := make(map[string]int, len(g.dependsOn))
	for root, deps := range g.dependsOn {
		count := 0
		for dep := range deps {
			// Edges to unregistered roots (external packages outside the
			// compilation scope) impose no ordering.
			if _, known := g.dependsOn[dep]; known && dep != root {
				count++
			}
		}
		indegree[root] = count
	}

	var ready []string
	for root, n := range indegree {
		if n == 0 {
			ready = append(ready, root)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(indegree))
	for len(ready) > 0 {
		root := ready[0]
		ready = ready[1:]
		order = append(order, root)

		var unblocked []string
		for dependent := range g.dependents[root] {
			if _, known := indegree[dependent]; !known {
				continue
			}
			indegree[dependent]--
			if indegree[dependent] == 0 {
				unblocked = append(unblocked, dependent)
			}
		}
		sort.Strings(unblocked)
		ready = mergeSorted(ready, unblocked)
	}

	if len(order) != len(indegree) {
		var cycle []string
		for root, n := range indegree {
			if n > 0 && !slices.Contains(order, root) {
				cycle = append(cycle, root)
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("dependency cycle between packages: %s", strings.Join(cycle, ", "))
	}

	return order, nil
}

// mergeSorted merges two lexically sorted slices.
func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
