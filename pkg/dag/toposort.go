package dag

import (
	"slices"
	"sort"
)

// TopologicalSort orders the nodes so that every edge's source comes before
// its target. Among nodes that are ready at the same time the smallest ID
// goes first, so the order is deterministic. A cyclic graph yields a
// [*CycleError].
func (d *DAG) TopologicalSort() ([]string, error) {
	indegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		indegree[id] = len(d.incoming[id])
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, child := range d.outgoing[id] {
			indegree[child]--
			if indegree[child] == 0 {
				i, _ := slices.BinarySearch(ready, child)
				ready = slices.Insert(ready, i, child)
			}
		}
	}

	if len(order) != len(d.nodes) {
		return nil, &CycleError{Cycle: d.FindCycle()}
	}
	return order, nil
}

func sortedCopy(ids []string) []string {
	out := slices.Clone(ids)
	sort.Strings(out)
	return out
}
