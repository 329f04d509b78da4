// Package analysis builds the request-scoped indices the planner works from:
// the dependency graph with its topological order, the file conflict index,
// and the value-impact ranking.
package analysis

import (
	"sort"

	"github.com/vanderheijden86/planwork/pkg/model"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph is the dependency DAG over one request's tasks. Tasks are interned to
// dense integer handles at construction; deps and blocks are adjacency tables
// over handles, so traversal never chases pointers. Handles equal insertion
// order, which is what the topological tie-break uses.
type Graph struct {
	tasks  []model.Task
	index  map[string]int
	deps   [][]int
	blocks [][]int

	// gonum mirror, used only for cycle witnessing. Node id == handle.
	g *simple.DirectedGraph
}

// NewGraph interns the tasks and builds both adjacency directions. Edges
// whose endpoints are unknown are silently dropped. Self-dependencies are
// kept in the adjacency tables (they are one-node cycles) but not mirrored
// into gonum, which rejects self-edges.
func NewGraph(tasks []model.Task) *Graph {
	g := &Graph{
		tasks:  tasks,
		index:  make(map[string]int, len(tasks)),
		deps:   make([][]int, len(tasks)),
		blocks: make([][]int, len(tasks)),
		g:      simple.NewDirectedGraph(),
	}
	for i := range tasks {
		g.index[tasks[i].ID] = i
		g.g.AddNode(simple.Node(i))
	}
	for i := range tasks {
		for _, dep := range tasks[i].DependsOn {
			j, ok := g.index[dep]
			if !ok {
				continue
			}
			g.deps[i] = append(g.deps[i], j)
			g.blocks[j] = append(g.blocks[j], i)
			if i != j {
				// Edge dependent -> prerequisite, matching the deps table.
				g.g.SetEdge(g.g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}
	return g
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.tasks) }

// HasTask reports whether id was interned.
func (g *Graph) HasTask(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Task returns the task for id.
func (g *Graph) Task(id string) (model.Task, bool) {
	i, ok := g.index[id]
	if !ok {
		return model.Task{}, false
	}
	return g.tasks[i], true
}

// TaskIDs returns all interned ids in ascending order.
func (g *Graph) TaskIDs() []string {
	ids := make([]string, 0, len(g.tasks))
	for i := range g.tasks {
		ids = append(ids, g.tasks[i].ID)
	}
	sort.Strings(ids)
	return ids
}

// Deps returns the prerequisite ids of id, sorted ascending.
func (g *Graph) Deps(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.handleIDs(g.deps[i])
}

// Blocks returns the ids directly blocked by id, sorted ascending.
func (g *Graph) Blocks(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.handleIDs(g.blocks[i])
}

func (g *Graph) handleIDs(handles []int) []string {
	if len(handles) == 0 {
		return nil
	}
	ids := make([]string, len(handles))
	for k, h := range handles {
		ids[k] = g.tasks[h].ID
	}
	sort.Strings(ids)
	return ids
}

// TopologicalOrder runs Kahn's algorithm with a priority-first tie break:
// among currently unblocked tasks, the highest priority value is emitted
// first, ties broken by insertion order. Returns a *model.CycleError when
// any task remains unvisited.
func (g *Graph) TopologicalOrder() ([]string, error) {
	return g.OrderBy(func(a, b model.Task) bool {
		return a.Priority > b.Priority
	})
}

// OrderBy is TopologicalOrder with a caller-supplied tie break among the
// ready frontier. before reports whether a should be emitted ahead of b;
// when neither is preferred, insertion order decides. The schedule solver
// uses this to enumerate alternative linearizations.
func (g *Graph) OrderBy(before func(a, b model.Task) bool) ([]string, error) {
	n := len(g.tasks)
	indegree := make([]int, n)
	for i := range g.deps {
		indegree[i] = len(g.deps[i])
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, n)
	for len(ready) > 0 {
		// Linear scan keeps the frontier in insertion order, so equal keys
		// fall back to source order deterministically.
		best := 0
		for k := 1; k < len(ready); k++ {
			if before(g.tasks[ready[k]], g.tasks[ready[best]]) {
				best = k
			}
		}
		h := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, g.tasks[h].ID)

		for _, dependent := range g.blocks[h] {
			if dependent == h {
				continue
			}
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != n {
		return nil, &model.CycleError{Cycle: g.cycleWitness()}
	}
	return order, nil
}

// cycleWitness returns one cycle, sorted by id. Self-loops are reported as
// single-element cycles; otherwise the first strongly-connected component
// with more than one node wins (smallest member id decides "first").
func (g *Graph) cycleWitness() []string {
	for i := range g.deps {
		for _, j := range g.deps[i] {
			if i == j {
				return []string{g.tasks[i].ID}
			}
		}
	}

	var witness []string
	for _, scc := range topo.TarjanSCC(g.g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, len(scc))
		for k, node := range scc {
			ids[k] = g.tasks[int(node.ID())].ID
		}
		sort.Strings(ids)
		if witness == nil || ids[0] < witness[0] {
			witness = ids
		}
	}
	return witness
}
