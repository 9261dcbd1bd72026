package dag

import (
	"errors"
	"strings"
)

// CycleError reports a cycle found while ordering the graph. Cycle lists
// the node IDs along the cycle, starting and ending with the same node.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Cycle, " -> ")
}

// Is makes errors.Is(err, ErrGraphHasCycle) true for every CycleError.
func (e *CycleError) Is(target error) bool { return target == ErrGraphHasCycle }

// AsCycleError returns the CycleError in err's chain, or nil.
func AsCycleError(err error) *CycleError {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// FindCycle returns one cycle in the graph, or nil if it is acyclic.
// Nodes and children are explored in sorted order so the same graph always
// yields the same cycle.
func (d *DAG) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var stack []string
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, child := range sortedCopy(d.outgoing[id]) {
			switch color[child] {
			case white:
				if dfs(child) {
					return true
				}
			case gray:
				for i, s := range stack {
					if s == child {
						cycle = append(append(cycle, stack[i:]...), child)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range d.NodeIDs() {
		if color[id] == white && dfs(id) {
			return cycle
		}
	}
	return nil
}
