// Package dag provides the directed graph behind flowc's module analysis.
//
// # Overview
//
// Every module reachable from a flow's entry point becomes a [Node] keyed by
// its canonical path. Edges run from a dependency to its dependent, so a
// topological order visits a module only after everything it requires.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "flows/main.lua"})
//	g.AddNode(dag.Node{ID: "lib/util.lua"})
//	g.AddEdge(dag.Edge{From: "lib/util.lua", To: "flows/main.lua"})
//
//	order, err := g.TopologicalSort() // [lib/util.lua flows/main.lua]
//
// # Ordering and Cycles
//
// [DAG.TopologicalSort] uses Kahn's algorithm with ties broken by node ID,
// so the same graph always produces the same order. When the graph has a
// cycle it returns a [*CycleError] naming one cycle, found by depth-first
// search with white/gray/black coloring ([DAG.FindCycle]). errors.Is with
// [ErrGraphHasCycle] matches any cycle error.
//
// # Metadata
//
// Nodes and the graph carry [Metadata] maps. The engine stores each module's
// own and final interval and its entry-point flag there so renderers can
// label nodes without depending on the engine.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use.
package dag
