package runbook

import (
	"errors"
	"fmt"
)

// Errors for Graph operations.
var (
	ErrDuplicateStep    = errors.New("step with this ID already exists")
	ErrCyclicDependency = errors.New("cyclic dependency detected")
	ErrMissingDep       = errors.New("step depends on nonexistent step")
	ErrUnknownStep      = errors.New("no step with this ID")
)

// Graph is a directed acyclic graph of steps. It preserves declaration
// order so that topological sorting is deterministic: ties among
// independent steps are broken by the order in which they were added,
// never by map iteration. Deterministic output keeps plans diffable
// across runs.
type Graph struct {
	order      []string // declaration order of step IDs
	steps      map[string]Step
	dependsOn  map[string][]string // step ID -> list of dependency IDs
	dependedBy map[string][]string // step ID -> list of steps that depend on it
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		order:      make([]string, 0),
		steps:      make(map[string]Step),
		dependsOn:  make(map[string][]string),
		dependedBy: make(map[string][]string),
	}
}

// Len returns the number of steps in the graph.
func (g *Graph) Len() int {
	return len(g.steps)
}

// Add adds a step to the graph.
// Returns ErrDuplicateStep if a step with the same ID already exists.
func (g *Graph) Add(step Step) error {
	id := step.ID().String()

	if _, exists := g.steps[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStep, id)
	}

	g.order = append(g.order, id)
	g.steps[id] = step

	deps := step.DependsOn()
	depIDs := make([]string, len(deps))
	for i, dep := range deps {
		depID := dep.String()
		depIDs[i] = depID
		g.dependedBy[depID] = append(g.dependedBy[depID], id)
	}
	g.dependsOn[id] = depIDs

	return nil
}

// Get retrieves a step by ID.
func (g *Graph) Get(id StepID) (Step, bool) {
	step, ok := g.steps[id.String()]
	return step, ok
}

// Steps returns all steps in declaration order.
func (g *Graph) Steps() []Step {
	steps := make([]Step, 0, len(g.order))
	for _, id := range g.order {
		steps = append(steps, g.steps[id])
	}
	return steps
}

// Validate checks that all dependencies exist.
func (g *Graph) Validate() error {
	for _, id := range g.order {
		for _, depID := range g.dependsOn[id] {
			if _, exists := g.steps[depID]; !exists {
				return fmt.Errorf("%w: step %q depends on %q", ErrMissingDep, id, depID)
			}
		}
	}
	return nil
}

// TopologicalSort returns steps in dependency order. Every step appears
// after all of its dependencies; independent steps keep their
// declaration order. Returns a CycleError naming the minimal offending
// cycle if the graph is not acyclic.
func (g *Graph) TopologicalSort() ([]Step, error) {
	inDegree := make(map[string]int, len(g.steps))
	for _, id := range g.order {
		for _, depID := range g.dependsOn[id] {
			if _, exists := g.steps[depID]; exists {
				inDegree[id]++
			}
		}
	}

	sorted := make([]Step, 0, len(g.steps))
	placed := make(map[string]bool, len(g.steps))

	// Kahn's algorithm, but the ready set is rescanned in declaration
	// order after every placement so ties resolve deterministically.
	for len(sorted) < len(g.steps) {
		progressed := false
		for _, id := range g.order {
			if placed[id] || inDegree[id] != 0 {
				continue
			}
			placed[id] = true
			sorted = append(sorted, g.steps[id])
			for _, dependentID := range g.dependedBy[id] {
				if _, exists := g.steps[dependentID]; exists {
					inDegree[dependentID]--
				}
			}
			progressed = true
			break
		}
		if !progressed {
			cycle := g.findMinimalCycle(placed)
			return nil, NewCycleError(cycle)
		}
	}

	return sorted, nil
}

// Subgraph returns a new graph containing the given steps and,
// transitively, everything they depend on. Declaration order is
// preserved so subset plans sort the same way full plans do.
func (g *Graph) Subgraph(ids []StepID) (*Graph, error) {
	keep := make(map[string]bool)
	var mark func(id string) error
	mark = func(id string) error {
		if keep[id] {
			return nil
		}
		if _, exists := g.steps[id]; !exists {
			return fmt.Errorf("%w: %q", ErrUnknownStep, id)
		}
		keep[id] = true
		for _, depID := range g.dependsOn[id] {
			if err := mark(depID); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range ids {
		if err := mark(id.String()); err != nil {
			return nil, err
		}
	}

	sub := NewGraph()
	for _, id := range g.order {
		if keep[id] {
			if err := sub.Add(g.steps[id]); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}

// findMinimalCycle returns the shortest dependency cycle among the
// steps that could not be placed by the topological sort. Reporting
// the minimal cycle gives the operator the exact edges to break
// instead of an opaque "cycle detected".
func (g *Graph) findMinimalCycle(placed map[string]bool) []string {
	var best []string

	for _, start := range g.order {
		if placed[start] {
			continue
		}
		// BFS along dependency edges looking for the shortest path
		// from start back to itself.
		parent := make(map[string]string)
		queue := []string{start}
		visited := map[string]bool{start: true}
		var found bool

		for len(queue) > 0 && !found {
			current := queue[0]
			queue = queue[1:]
			for _, depID := range g.dependsOn[current] {
				if placed[depID] {
					continue
				}
				if depID == start {
					parent[start] = current
					found = true
					break
				}
				if !visited[depID] {
					visited[depID] = true
					parent[depID] = current
					queue = append(queue, depID)
				}
			}
		}

		if !found {
			continue
		}

		cycle := []string{start}
		for current := parent[start]; current != start; current = parent[current] {
			cycle = append(cycle, current)
		}
		// parent pointers walk against the dependency direction; flip
		// everything after start so the cycle reads depends-on order.
		for i, j := 1, len(cycle)-1; i < j; i, j = i+1, j-1 {
			cycle[i], cycle[j] = cycle[j], cycle[i]
		}

		if best == nil || len(cycle) < len(best) {
			best = cycle
		}
	}

	return best
}
