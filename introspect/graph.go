package introspect

import "sort"

// Graph maps each table to the tables its foreign keys reference.
type Graph struct {
	edges map[string]map[string]bool
}

func NewGraph() *Graph {
	return &Graph{edges: map[string]map[string]bool{}}
}

func (g *Graph) AddTable(name string) {
	if _, ok := g.edges[name]; !ok {
		g.edges[name] = map[string]bool{}
	}
}

func (g *Graph) AddEdge(from, to string) {
	g.AddTable(from)
	g.AddTable(to)
	g.edges[from][to] = true
}

// References returns the tables name points at, sorted.
func (g *Graph) References(name string) []string {
	out := make([]string, 0, len(g.edges[name]))
	for to := range g.edges[name] {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// Cycles returns every group of tables that reference each other directly
// or transitively, including self references. Each group is sorted and the
// groups are ordered by their first table.
func (g *Graph) Cycles() [][]string {
	names := make([]string, 0, len(g.edges))
	for name := range g.edges {
		names = append(names, name)
	}
	sort.Strings(names)

	// Tarjan's strongly connected components.
	index := 0
	indices := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var cycles [][]string

	var visit func(v string)
	visit = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.References(v) {
			if _, seen := indices[w]; !seen {
				visit(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 || g.edges[v][v] {
			sort.Strings(component)
			cycles = append(cycles, component)
		}
	}

	for _, name := range names {
		if _, seen := indices[name]; !seen {
			visit(name)
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
