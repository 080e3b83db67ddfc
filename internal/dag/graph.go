// Package dag implements the Dependency Graph (spec §4.3): an immutable,
// pure view over a plan's operations providing topological levels, cycle
// detection, critical path, and reverse dependencies for cascade-skip.
//
// Grounded on the teacher's Kahn's-algorithm graph in
// internal/engine/dag.go: sorted-queue processing for determinism, and a
// processed-count check to detect cycles.
package dag

import (
	"sort"

	sqlflowerrors "github.com/sqlflow/sqlflow/pkg/errors"
)

// Node is one operation's position in the graph.
type Node struct {
	ID         string
	DependsOn  []string
	Dependents []string
}

// Graph is a frozen dependency view built once per plan and never mutated
// after Build.
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// Build constructs a Graph from an id -> depends_on map, computing
// topological levels via Kahn's algorithm and detecting cycles.
func Build(dependsOn map[string][]string) (*Graph, error) {
	g := &Graph{Nodes: make(map[string]*Node, len(dependsOn))}

	for id, deps := range dependsOn {
		g.Nodes[id] = &Node{ID: id, DependsOn: append([]string(nil), deps...)}
	}
	for id, node := range g.Nodes {
		for _, dep := range node.DependsOn {
			depNode, ok := g.Nodes[dep]
			if !ok {
				return nil, sqlflowerrors.NewDependencyError().WithMissingDependency(dep)
			}
			depNode.Dependents = append(depNode.Dependents, id)
		}
	}
	for _, node := range g.Nodes {
		sort.Strings(node.Dependents)
	}

	levels, err := g.topologicalLevels()
	if err != nil {
		return nil, err
	}
	g.Levels = levels
	return g, nil
}

// topologicalLevels groups nodes into waves: level k can run once all
// members of levels 0..k-1 have completed. A sorted ready-queue per level
// keeps output deterministic across runs with the same input.
func (g *Graph) topologicalLevels() ([][]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		inDegree[id] = len(node.DependsOn)
	}

	var levels [][]string
	remaining := len(g.Nodes)
	processed := 0

	current := readyNodes(inDegree, nil)
	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, current)
		processed += len(current)

		var next []string
		for _, id := range current {
			for _, dependent := range g.Nodes[id].Dependents {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
			delete(inDegree, id)
		}
		current = next
	}

	if processed != remaining {
		cycle := g.findCycle()
		return nil, sqlflowerrors.NewDependencyError().WithCycle(cycle)
	}
	return levels, nil
}

func readyNodes(inDegree map[string]int, _ []string) []string {
	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	return ready
}

// findCycle does a DFS from an arbitrary unresolved node to produce one
// concrete cycle path for the DependencyError, best-effort for diagnostics.
func (g *Graph) findCycle() []string {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var path []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		visiting[id] = true
		path = append(path, id)
		for _, dep := range g.Nodes[id].DependsOn {
			if visiting[dep] {
				// Found the back edge; return the cycle slice from dep's
				// first occurrence onward.
				for i, p := range path {
					if p == dep {
						cyc := append(append([]string(nil), path[i:]...), dep)
						return cyc
					}
				}
			}
			if !visited[dep] {
				if cyc := dfs(dep); cyc != nil {
					return cyc
				}
			}
		}
		visiting[id] = false
		visited[id] = true
		path = path[:len(path)-1]
		return nil
	}

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if visited[id] {
			continue
		}
		if cyc := dfs(id); cyc != nil {
			return cyc
		}
	}
	return nil
}

// ExecutableSteps returns every node whose dependencies are a subset of
// completed and which is not itself completed.
func (g *Graph) ExecutableSteps(completed map[string]bool) []string {
	var ready []string
	for id, node := range g.Nodes {
		if completed[id] {
			continue
		}
		ok := true
		for _, dep := range node.DependsOn {
			if !completed[dep] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)
	return ready
}

// CriticalPath returns the longest dependency chain in the graph.
func (g *Graph) CriticalPath() []string {
	memo := make(map[string][]string)
	var longest func(id string) []string
	longest = func(id string) []string {
		if path, ok := memo[id]; ok {
			return path
		}
		best := []string{}
		for _, dep := range g.Nodes[id].DependsOn {
			if p := longest(dep); len(p) > len(best) {
				best = p
			}
		}
		path := append(append([]string(nil), best...), id)
		memo[id] = path
		return path
	}

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var critical []string
	for _, id := range ids {
		if p := longest(id); len(p) > len(critical) {
			critical = p
		}
	}
	return critical
}

// ReverseDependencies returns, for the node id, the set of nodes that
// transitively depend on it — used by the coordinator to cascade-skip on
// failure.
func (g *Graph) ReverseDependencies(id string) []string {
	visited := make(map[string]bool)
	var collect func(string)
	collect = func(cur string) {
		node, ok := g.Nodes[cur]
		if !ok {
			return
		}
		for _, dependent := range node.Dependents {
			if visited[dependent] {
				continue
			}
			visited[dependent] = true
			collect(dependent)
		}
	}
	collect(id)

	out := make([]string, 0, len(visited))
	for d := range visited {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
