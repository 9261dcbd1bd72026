package engine

import (
	"github.com/yuin/gopher-lua/ast"

	"github.com/matzehuels/flowc/pkg/analysis"
)

// state is the closed set of module states. Only resolved carries an own
// interval, so nothing can read one before it exists.
type state interface {
	name() string
}

type unvisited struct{}

type parsing struct {
	tree    []ast.Stmt
	imports []analysis.Import
}

type resolved struct {
	tree    []ast.Stmt
	imports []analysis.Import
	result  analysis.Result
}

func (unvisited) name() string { return "unvisited" }
func (parsing) name() string   { return "parsing" }
func (resolved) name() string  { return "resolved" }

type module struct {
	path  string
	entry bool
	state state
}
