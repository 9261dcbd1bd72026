package engine

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yuin/gopher-lua/ast"

	"github.com/matzehuels/flowc/pkg/analysis"
	"github.com/matzehuels/flowc/pkg/dag"
	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/observability"
	"github.com/matzehuels/flowc/pkg/paths"
	"github.com/matzehuels/flowc/pkg/resolve"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// Options configures an [Engine]. Only Table is required.
type Options struct {
	Parser    Parser            // LuaParser when nil
	Resources resolve.Resources // filesystem relative to the working directory when nil
	Locator   resolve.Locator   // PathLocator over Resources when nil
	Table     *sdk.GateTable
	Logger    *log.Logger // discards output when nil
}

// Engine computes final intervals for a set of entry points. An Engine holds
// only configuration; each Compute call builds its own graph, so one Engine
// can serve many calls, including concurrent ones.
type Engine struct {
	parser    Parser
	resources resolve.Resources
	collector *analysis.Collector
	table     *sdk.GateTable
	logger    *log.Logger
}

// New creates an engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Table == nil {
		return nil, errors.New(errors.ErrCodeInvalidGateTable, "engine requires a gate table")
	}
	if err := opts.Table.Validate(); err != nil {
		return nil, err
	}
	if opts.Parser == nil {
		opts.Parser = LuaParser{}
	}
	if opts.Resources == nil {
		opts.Resources = resolve.NewOSResources("")
	}
	if opts.Locator == nil {
		opts.Locator = resolve.NewPathLocator(opts.Resources, "")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Engine{
		parser:    opts.Parser,
		resources: opts.Resources,
		collector: analysis.NewCollector(resolve.NewRequireResolver(opts.Locator), opts.Table.Require()),
		table:     opts.Table,
		logger:    opts.Logger,
	}, nil
}

type pendingEdge struct {
	dependency, dependent string
}

// Compute analyzes every module reachable from entryPoints. Entry paths are
// normalized and duplicates collapse. The context is checked between passes.
func (e *Engine) Compute(ctx context.Context, entryPoints []string) (result *ResolvedGraph, err error) {
	start := time.Now()
	g := dag.New(nil)
	modules := make(map[string]*module)

	defer func() {
		observability.Engine().OnGraphResolved(ctx, len(entryPoints), len(modules), time.Since(start), err)
	}()

	if len(entryPoints) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no entry points")
	}
	for _, p := range entryPoints {
		p = paths.Normalize(p)
		if m, ok := modules[p]; ok {
			m.entry = true
			continue
		}
		modules[p] = &module{path: p, entry: true, state: unvisited{}}
		if err := g.AddNode(dag.Node{ID: p}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "entry point %q", p)
		}
	}

	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		order, err := g.TopologicalSort()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCyclicDependency, err, "module graph")
		}

		var edges []pendingEdge
		advanced := 0
		for _, id := range order {
			m := modules[id]
			switch st := m.state.(type) {
			case unvisited:
				tree, imports, err := e.discover(id)
				if err != nil {
					return nil, err
				}
				for _, imp := range imports {
					if _, ok := modules[imp.Path]; !ok {
						modules[imp.Path] = &module{path: imp.Path, state: unvisited{}}
						if err := g.AddNode(dag.Node{ID: imp.Path}); err != nil {
							return nil, errors.Wrap(errors.ErrCodeInternal, err, "add module %s", imp.Path)
						}
					}
					edges = append(edges, pendingEdge{dependency: imp.Path, dependent: id})
				}
				m.state = parsing{tree: tree, imports: imports}
				advanced++
			case parsing:
				m.state = e.resolveOwn(ctx, id, st)
				advanced++
			case resolved:
			}
		}

		for _, edge := range edges {
			if err := g.AddEdge(dag.Edge{From: edge.dependency, To: edge.dependent}); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "add edge %s -> %s", edge.dependency, edge.dependent)
			}
		}

		e.logger.Debug("engine pass", "pass", pass, "modules", len(modules), "advanced", advanced)
		if advanced == 0 {
			break
		}
	}

	return freeze(g, modules)
}

// discover reads, parses and collects the imports of one module.
func (e *Engine) discover(path string) ([]ast.Stmt, []analysis.Import, error) {
	src, err := e.resources.Read(path)
	if err != nil {
		if errors.GetCode(err) != "" {
			return nil, nil, err
		}
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	tree, err := e.parser.Parse(path, src)
	if err != nil {
		if errors.GetCode(err) != "" {
			return nil, nil, err
		}
		return nil, nil, errors.Wrap(errors.ErrCodeParseFailure, err, "parse %s", path)
	}
	imports, err := e.collector.Collect(path, tree)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("module discovered", "path", path, "imports", len(imports))
	return tree, imports, nil
}

func (e *Engine) resolveOwn(ctx context.Context, path string, st parsing) resolved {
	start := time.Now()
	res := analysis.Resolve(e.table, st.tree)
	elapsed := time.Since(start)

	if res.Interval.Empty() {
		e.logger.Warn("module requires an empty SDK range", "path", path, "interval", res.Interval.String())
	}
	for _, rw := range res.Rewrites {
		e.logger.Debug("probe conditional neutralized", "path", path, "line", rw.Line, "merged", rw.Merged)
	}
	e.logger.Debug("module resolved", "path", path, "own", res.Interval.String(), "duration", elapsed)
	observability.Engine().OnModuleResolved(ctx, path, elapsed, len(res.Rewrites))

	return resolved{tree: st.tree, imports: st.imports, result: res}
}
