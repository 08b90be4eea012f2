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
package deps_test

import (
	"reflect"
	"strings"
	"testing"

	"bennypowers.dev/retrofit/deps"
)

func TestSortedDependenciesFirst(t *testing.T) {
	g := deps.NewGraph()
	for _, root := range []string{"/n/app", "/n/lib", "/n/core"} {
		g.AddEntryPoint(root)
	}
	g.AddDependency("/n/app", "/n/lib")
	g.AddDependency("/n/lib", "/n/core")
	g.AddDependency("/n/app", "/n/core")

	order, err := g.Sorted()
	if err != nil {
		t.Fatalf("Sorted failed: %v", err)
	}

	expected := []string{"/n/core", "/n/lib", "/n/app"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("order = %v, expected %v", order, expected)
	}
}

func TestSortedIsDeterministic(t *testing.T) {
	g := deps.NewGraph()
	for _, root := range []string{"/n/c", "/n/a", "/n/b"} {
		g.AddEntryPoint(root)
	}

	order, err := g.Sorted()
	if err != nil {
		t.Fatalf("Sorted failed: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"/n/a", "/n/b", "/n/c"}) {
		t.Errorf("unconstrained roots should sort lexically, got %v", order)
	}
}

func TestSortedIgnoresUnregisteredEdges(t *testing.T) {
	g := deps.NewGraph()
	g.AddEntryPoint("/n/app")
	// Edge to a package outside the compilation scope
	g.AddDependency("/n/app", "/elsewhere/lib")

	order, err := g.Sorted()
	if err != nil {
		t.Fatalf("Sorted failed: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"/n/app"}) {
		t.Errorf("order = %v", order)
	}
}

func TestSortedReportsCycle(t *testing.T) {
	g := deps.NewGraph()
	for _, root := range []string{"/n/a", "/n/b", "/n/c"} {
		g.AddEntryPoint(root)
	}
	g.AddDependency("/n/a", "/n/b")
	g.AddDependency("/n/b", "/n/a")
	g.AddDependency("/n/c", "/n/a")

	_, err := g.Sorted()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "/n/a") || !strings.Contains(err.Error(), "/n/b") {
		t.Errorf("cycle error should name the cycle members: %v", err)
	}
}

func TestDependents(t *testing.T) {
	g := deps.NewGraph()
	g.AddDependency("/n/app", "/n/core")
	g.AddDependency("/n/lib", "/n/core")

	dependents := g.Dependents("/n/core")
	if !reflect.DeepEqual(dependents, []string{"/n/app", "/n/lib"}) {
		t.Errorf("Dependents = %v", dependents)
	}
}
