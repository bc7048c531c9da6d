package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scripthub/scripthub/internal/errs"
)

// CircularDependencyError indicates a cycle in the script dependency graph.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
}

// MissingDependencyError indicates a script depends on an id the manifest
// does not declare.
type MissingDependencyError struct {
	Script     string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("script %q depends on %q, which is not in the manifest", e.Script, e.Dependency)
}

// Resolve returns the dependency closure of the given script ids in
// topological order, dependencies first. Order is deterministic.
func (m *Manifest) Resolve(ids []string) ([]ScriptEntry, error) {
	byID := make(map[string]*ScriptEntry, len(m.Scripts))
	for i := range m.Scripts {
		byID[m.Scripts[i].ID] = &m.Scripts[i]
	}

	// Collect the closure breadth-first.
	needed := make(map[string]bool)
	queue := append([]string(nil), ids...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if needed[current] {
			continue
		}
		entry, ok := byID[current]
		if !ok {
			return nil, &errs.NotFoundError{ID: current}
		}
		needed[current] = true
		for _, dep := range entry.Dependencies {
			if _, ok := byID[dep]; !ok {
				return nil, &MissingDependencyError{Script: current, Dependency: dep}
			}
			queue = append(queue, dep)
		}
	}

	// Kahn's algorithm restricted to the closure.
	inDegree := make(map[string]int, len(needed))
	dependents := make(map[string][]string)
	for id := range needed {
		inDegree[id] += 0
		for _, dep := range byID[id].Dependencies {
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]ScriptEntry, 0, len(needed))
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, *byID[id])
		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(needed) {
		return nil, &CircularDependencyError{Cycle: findCycle(byID, needed)}
	}
	return order, nil
}

func findCycle(byID map[string]*ScriptEntry, needed map[string]bool) []string {
	const (
		unvisited = iota
		inProgress
		done
	)
	visited := make(map[string]int)
	var path []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		visited[id] = inProgress
		path = append(path, id)

		for _, dep := range byID[id].Dependencies {
			if !needed[dep] {
				continue
			}
			if visited[dep] == inProgress {
				for i, n := range path {
					if n == dep {
						return append(append([]string(nil), path[i:]...), dep)
					}
				}
			}
			if visited[dep] == unvisited {
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		visited[id] = done
		return nil
	}

	ids := make([]string, 0, len(needed))
	for id := range needed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if visited[id] == unvisited {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
