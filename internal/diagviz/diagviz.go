// Package diagviz renders a plan's dependency graph as an ASCII tree for
// `sqlflow validate` diagnostics: a highlighted cycle when validation
// fails, or the full dependency tree when it passes.
//
// Grounded on the pack's treedrawer usage in
// pumped-fn-pumped-go/extensions/graph_debug.go: tree.NewTree /
// tree.NodeString / Tree.AddChild to build a node-labeled tree, rendered
// via Tree.String().
package diagviz

import (
	"fmt"
	"sort"

	"github.com/m1gwings/treedrawer/tree"

	"github.com/sqlflow/sqlflow/internal/dag"
)

// RenderDependencyTree renders graph as a tree rooted at a synthetic
// "plan" node, one subtree per level-0 (root) operation.
func RenderDependencyTree(graph *dag.Graph) string {
	if len(graph.Levels) == 0 {
		return "(empty plan)"
	}

	root := tree.NewTree(tree.NodeString("plan"))
	visited := make(map[string]bool)

	roots := append([]string(nil), graph.Levels[0]...)
	sort.Strings(roots)

	for _, id := range roots {
		buildSubtree(root, graph, id, visited)
	}
	return root.String()
}

func buildSubtree(parent *tree.Tree, graph *dag.Graph, id string, visited map[string]bool) {
	if visited[id] {
		return
	}
	visited[id] = true

	node := parent.AddChild(tree.NodeString(id))

	children := append([]string(nil), graph.Nodes[id].Dependents...)
	sort.Strings(children)
	for _, child := range children {
		buildSubtree(node, graph, child, visited)
	}
}

// RenderCycle renders a detected dependency cycle as a nested tree rooted at
// cycle[0], each later id a child of the one before it and labelled
// "<id> (cycle)", for inclusion in a DependencyError diagnostic.
func RenderCycle(cycle []string) string {
	if len(cycle) == 0 {
		return "(no cycle)"
	}

	root := tree.NewTree(tree.NodeString(cycle[0]))
	cur := root
	for _, id := range cycle[1:] {
		cur = cur.AddChild(tree.NodeString(fmt.Sprintf("%s (cycle)", id)))
	}
	return root.String()
}
