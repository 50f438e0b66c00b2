package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// CycleError is returned when the dependency graph contains a cycle
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency between: %s", strings.Join(e.Nodes, ", "))
}

// MissingDependencyError is returned when a node depends on a node that was never added
type MissingDependencyError struct {
	Node       string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s depends on unknown %s", e.Node, e.Dependency)
}

// Graph tracks dependencies between named nodes
type Graph struct {
	edges map[string][]string // node -> dependencies
	mu    sync.RWMutex
}

// New creates an empty dependency graph
func New() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

// AddNode adds a node with its dependencies, replacing any previous entry
func (g *Graph) AddNode(name string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	deps := make([]string, len(dependencies))
	copy(deps, dependencies)
	g.edges[name] = deps
}

// Has reports whether the node was added
func (g *Graph) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.edges[name]
	return ok
}

// Nodes returns all node names in alphabetical order
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.sortedNodes()
}

func (g *Graph) sortedNodes() []string {
	nodes := make([]string, 0, len(g.edges))
	for name := range g.edges {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}

// Validate checks that every dependency refers to a known node
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, name := range g.sortedNodes() {
		for _, dep := range g.edges[name] {
			if _, ok := g.edges[dep]; !ok {
				return &MissingDependencyError{Node: name, Dependency: dep}
			}
		}
	}
	return nil
}

// TopologicalSort returns all nodes with dependencies first.
// Nodes that become ready at the same time are emitted alphabetically so the
// order is stable between runs.
func (g *Graph) TopologicalSort() ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	// edges[A] = [B, C] means A depends on B and C, so B and C come first
	inDegree := make(map[string]int, len(g.edges))
	dependents := make(map[string][]string, len(g.edges))
	for name, deps := range g.edges {
		inDegree[name] = len(unique(deps))
		for _, dep := range unique(deps) {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	ready := make([]string, 0)
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	result := make([]string, 0, len(g.edges))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		result = append(result, node)

		next := make([]string, 0)
		for _, dependent := range dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				next = append(next, dependent)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			sort.Strings(ready)
		}
	}

	if len(result) != len(g.edges) {
		missing := make([]string, 0)
		for _, name := range g.sortedNodes() {
			if inDegree[name] > 0 {
				missing = append(missing, name)
			}
		}
		return nil, &CycleError{Nodes: missing}
	}

	return result, nil
}

// HasCycle detects if the dependency graph has a cycle
func (g *Graph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(string) bool
	hasCycle = func(name string) bool {
		visited[name] = true
		recStack[name] = true

		for _, dep := range g.edges[name] {
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				return true
			}
		}

		recStack[name] = false
		return false
	}

	for _, name := range g.sortedNodes() {
		if !visited[name] {
			if hasCycle(name) {
				return true
			}
		}
	}

	return false
}

// Dependencies returns the direct dependencies of a node
func (g *Graph) Dependencies(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps, ok := g.edges[name]
	if !ok {
		return []string{}
	}

	// Return a copy to avoid data races
	result := make([]string, len(deps))
	copy(result, deps)
	return result
}

// Dependents returns the nodes that directly depend on the given node
func (g *Graph) Dependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dependents := make([]string, 0)
	for _, node := range g.sortedNodes() {
		for _, dep := range g.edges[node] {
			if dep == name {
				dependents = append(dependents, node)
				break
			}
		}
	}

	return dependents
}

// Closure returns the given nodes plus everything they transitively depend on,
// sorted alphabetically. Unknown nodes are reported as missing dependencies.
func (g *Graph) Closure(names []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{})
	var visit func(from, name string) error
	visit = func(from, name string) error {
		if _, ok := seen[name]; ok {
			return nil
		}
		deps, ok := g.edges[name]
		if !ok {
			return &MissingDependencyError{Node: from, Dependency: name}
		}
		seen[name] = struct{}{}
		for _, dep := range deps {
			if err := visit(name, dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range names {
		if err := visit("selection", name); err != nil {
			return nil, err
		}
	}

	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

func unique(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}
