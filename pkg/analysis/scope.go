package analysis

import "github.com/yuin/gopher-lua/ast"

// binding is what a local name was declared with. A nil expr means the
// declaration was not a single-name, single-value local (parameters, loop
// variables, multiple assignment) and nothing is known about the value.
type binding struct {
	expr ast.Expr
}

// environment is a stack of lexical frames. Inner frames shadow outer ones;
// a frame is discarded when its block ends.
type environment struct {
	frames []map[string]binding
}

func (e *environment) push() {
	e.frames = append(e.frames, map[string]binding{})
}

func (e *environment) pop() {
	if len(e.frames) > 0 {
		e.frames = e.frames[:len(e.frames)-1]
	}
}

func (e *environment) declare(name string, expr ast.Expr) {
	if len(e.frames) == 0 {
		e.push()
	}
	e.frames[len(e.frames)-1][name] = binding{expr: expr}
}

func (e *environment) lookup(name string) (binding, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if b, ok := e.frames[i][name]; ok {
			return b, true
		}
	}
	return binding{}, false
}
