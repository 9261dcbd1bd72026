package engine

import (
	"sort"

	"github.com/yuin/gopher-lua/ast"

	"github.com/matzehuels/flowc/pkg/analysis"
	"github.com/matzehuels/flowc/pkg/dag"
	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// Node metadata keys set on the graph returned by [ResolvedGraph.DAG].
const (
	MetaOwn   = "own"
	MetaFinal = "final"
	MetaEntry = "entry"
)

// Module is the analysis result for one module.
type Module struct {
	Path         string
	Entry        bool
	Imports      []analysis.Import  // in source order, duplicates kept
	Dependencies []string           // distinct import paths, sorted
	Own          sdk.Interval       // from this module's code alone
	Final        sdk.Interval       // Own folded with every dependency's Final
	Rewrites     []analysis.Rewrite // probe conditionals neutralized in Tree
	Tree         []ast.Stmt         // syntax tree with rewrites applied
}

// ResolvedGraph is a fully analyzed, acyclic module graph.
type ResolvedGraph struct {
	g       *dag.DAG
	order   []string
	modules map[string]*Module
}

// freeze checks that every module is resolved and propagates intervals in
// dependency order.
func freeze(g *dag.DAG, modules map[string]*module) (*ResolvedGraph, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCyclicDependency, err, "module graph")
	}

	out := &ResolvedGraph{g: g, order: order, modules: make(map[string]*Module, len(modules))}
	for _, id := range order {
		st, ok := modules[id].state.(resolved)
		if !ok {
			return nil, errors.New(errors.ErrCodeInternal, "module %s left in state %s", id, modules[id].state.name())
		}

		deps := distinctPaths(st.imports)
		final := st.result.Interval
		for _, dep := range deps {
			final = sdk.Intersect(final, out.modules[dep].Final)
		}

		m := &Module{
			Path:         id,
			Entry:        modules[id].entry,
			Imports:      st.imports,
			Dependencies: deps,
			Own:          st.result.Interval,
			Final:        final,
			Rewrites:     st.result.Rewrites,
			Tree:         st.result.Apply(st.tree),
		}
		out.modules[id] = m

		node, _ := g.Node(id)
		node.Meta[MetaOwn] = m.Own
		node.Meta[MetaFinal] = m.Final
		node.Meta[MetaEntry] = m.Entry
	}
	return out, nil
}

func distinctPaths(imports []analysis.Import) []string {
	seen := make(map[string]bool, len(imports))
	var out []string
	for _, imp := range imports {
		if !seen[imp.Path] {
			seen[imp.Path] = true
			out = append(out, imp.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Versions maps each entry point to its final interval.
func (r *ResolvedGraph) Versions() map[string]sdk.Interval {
	out := make(map[string]sdk.Interval)
	for _, m := range r.modules {
		if m.Entry {
			out[m.Path] = m.Final
		}
	}
	return out
}

// Module returns the result for one module.
func (r *ResolvedGraph) Module(path string) (*Module, bool) {
	m, ok := r.modules[path]
	return m, ok
}

// Modules returns every module, dependencies before dependents.
func (r *ResolvedGraph) Modules() []*Module {
	out := make([]*Module, len(r.order))
	for i, id := range r.order {
		out[i] = r.modules[id]
	}
	return out
}

// Entries returns the entry point paths in sorted order.
func (r *ResolvedGraph) Entries() []string {
	var out []string
	for _, m := range r.modules {
		if m.Entry {
			out = append(out, m.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Closure returns path and every module it transitively requires,
// dependencies before dependents.
func (r *ResolvedGraph) Closure(path string) []string {
	want := map[string]bool{}
	var walk func(string)
	walk = func(p string) {
		if want[p] {
			return
		}
		want[p] = true
		if m, ok := r.modules[p]; ok {
			for _, d := range m.Dependencies {
				walk(d)
			}
		}
	}
	walk(path)

	var out []string
	for _, id := range r.order {
		if want[id] {
			out = append(out, id)
		}
	}
	return out
}

// DAG returns the module graph. Edges run from dependency to dependent and
// nodes carry MetaOwn, MetaFinal and MetaEntry.
func (r *ResolvedGraph) DAG() *dag.DAG { return r.g }
