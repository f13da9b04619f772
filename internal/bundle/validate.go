package bundle

import (
	"fmt"
	"slices"
	"strings"
)

// ProblemKind categorises a static validation problem.
type ProblemKind string

const (
	ProblemUnresolved ProblemKind = "unresolved"
	ProblemCycle      ProblemKind = "cycle"
)

// Problem is one defect in a bundle set's prerequisite graph.
type Problem struct {
	Kind    ProblemKind `json:"kind"`
	Bundle  string      `json:"bundle,omitempty"`  // unresolved: the requiring bundle
	Missing string      `json:"missing,omitempty"` // unresolved: the absent prerequisite
	Path    []string    `json:"path,omitempty"`    // cycle: ["a", "b", "a"]
	Message string      `json:"message"`
}

// Validate reports every unresolved prerequisite and every dependency cycle in
// bundles. Output order is deterministic: unresolved problems sorted by
// bundle ID, then cycles sorted by their first element. An empty result means
// InstallBundles cannot fail on graph structure.
//
// Cycles are found with Tarjan's strongly connected components; each SCC with
// more than one member, or a single member that requires itself, is one cycle.
func Validate(bundles []Bundle) []Problem {
	graph := buildGraph(bundles)
	problems := []Problem{}

	for _, id := range graph.nodes() {
		for _, dep := range graph.requires[id] {
			if _, ok := graph.requires[dep]; ok {
				continue
			}
			problems = append(problems, Problem{
				Kind:    ProblemUnresolved,
				Bundle:  id,
				Missing: dep,
				Message: fmt.Sprintf("bundle %s requires %s, which is not available", id, dep),
			})
		}
	}

	var cycles []Problem
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && graph.hasSelfLoop(scc[0])) {
			path := reconstructCyclePath(scc, graph)
			cycles = append(cycles, Problem{
				Kind:    ProblemCycle,
				Path:    path,
				Message: "dependency cycle: " + strings.Join(path, " -> "),
			})
		}
	}
	slices.SortFunc(cycles, func(a, b Problem) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})

	return append(problems, cycles...)
}

// dependencyGraph maps bundle ID to the IDs it requires, as declared.
// Later duplicates replace earlier ones, matching InstallBundles.
type dependencyGraph struct {
	requires map[string][]string
}

func buildGraph(bundles []Bundle) dependencyGraph {
	g := dependencyGraph{requires: make(map[string][]string, len(bundles))}
	for _, b := range bundles {
		g.requires[b.ID()] = slices.Clone(b.Requires())
	}
	return g
}

func (g dependencyGraph) nodes() []string {
	out := make([]string, 0, len(g.requires))
	for id := range g.requires {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// edges returns the resolvable prerequisites of id.
func (g dependencyGraph) edges(id string) []string {
	var out []string
	for _, dep := range g.requires[id] {
		if _, ok := g.requires[dep]; ok {
			out = append(out, dep)
		}
	}
	return out
}

func (g dependencyGraph) hasSelfLoop(id string) bool {
	return slices.Contains(g.requires[id], id)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the result is stable.
func tarjanSCC(g dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges(v) {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes() {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath returns the shortest loop through the SCC's smallest
// member, e.g. ["a", "b", "a"]. A breadth-first search restricted to the SCC
// always finds one because every member reaches every other.
func reconstructCyclePath(scc []string, g dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}
	start := slices.Min(scc)

	parent := make(map[string]string)
	queue := []string{start}
	seen := map[string]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.edges(cur) {
			if !members[next] {
				continue
			}
			if next == start {
				path := []string{start}
				for n := cur; n != start; n = parent[n] {
					path = append(path, n)
				}
				slices.Reverse(path[1:])
				return append(path, start)
			}
			if !seen[next] {
				seen[next] = true
				parent[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return []string{start, start}
}
