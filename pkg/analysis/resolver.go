package analysis

import (
	"github.com/yuin/gopher-lua/ast"

	"github.com/matzehuels/flowc/pkg/sdk"
)

// Rewrite marks a probe conditional that must not reach later passes as
// written. Merged reports whether its branches contributed an interval
// (if/else) or were dropped without one (if without else).
type Rewrite struct {
	If     *ast.IfStmt
	Line   int
	Merged bool
}

// Result is the outcome of resolving one module.
type Result struct {
	Interval sdk.Interval
	Rewrites []Rewrite
}

// Resolver computes the own interval of a module. A Resolver is not safe
// for concurrent use; create one per goroutine.
type Resolver struct {
	table *sdk.GateTable

	scopes   []sdk.Interval
	env      environment
	result   sdk.Interval
	rewrites []Rewrite
}

// NewResolver creates a resolver for table.
func NewResolver(table *sdk.GateTable) *Resolver {
	return &Resolver{table: table}
}

// Resolve is shorthand for NewResolver(table).Resolve(chunk).
func Resolve(table *sdk.GateTable, chunk []ast.Stmt) Result {
	return NewResolver(table).Resolve(chunk)
}

// Resolve walks chunk and returns its own interval and the probe
// conditionals it neutralized. The chunk is not modified.
func (r *Resolver) Resolve(chunk []ast.Stmt) Result {
	r.scopes = r.scopes[:0]
	r.env = environment{}
	r.rewrites = nil
	r.result = r.table.Default()

	r.block(chunk)

	return Result{Interval: r.result, Rewrites: r.rewrites}
}

// =============================================================================
// Scopes
// =============================================================================

func (r *Resolver) push() {
	r.scopes = append(r.scopes, r.table.Default())
	r.env.push()
}

func (r *Resolver) pop() {
	r.env.pop()
	n := len(r.scopes)
	if n == 0 {
		return
	}
	child := r.scopes[n-1]
	r.scopes = r.scopes[:n-1]
	if n == 1 {
		r.result = child
		return
	}
	r.scopes[n-2] = sdk.Intersect(r.scopes[n-2], child)
}

func (r *Resolver) merge(iv sdk.Interval) {
	if n := len(r.scopes); n > 0 {
		r.scopes[n-1] = sdk.Intersect(r.scopes[n-1], iv)
	}
}

func (r *Resolver) block(stmts []ast.Stmt) {
	r.push()
	r.stmts(stmts)
	r.pop()
}

// =============================================================================
// Statements
// =============================================================================

func (r *Resolver) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.stmt(s)
	}
}

func (r *Resolver) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.AssignStmt:
		r.exprs(s.Rhs)
		r.exprs(s.Lhs)
	case *ast.LocalAssignStmt:
		r.exprs(s.Exprs)
		if len(s.Names) == 1 && len(s.Exprs) == 1 {
			r.env.declare(s.Names[0], s.Exprs[0])
			return
		}
		for _, name := range s.Names {
			r.env.declare(name, nil)
		}
	case *ast.FuncCallStmt:
		r.expr(s.Expr)
	case *ast.DoBlockStmt:
		r.block(s.Stmts)
	case *ast.WhileStmt:
		r.expr(s.Condition)
		r.block(s.Stmts)
	case *ast.RepeatStmt:
		// The condition sees the body's locals.
		r.push()
		r.stmts(s.Stmts)
		r.expr(s.Condition)
		r.pop()
	case *ast.IfStmt:
		r.ifStmt(s)
	case *ast.NumberForStmt:
		r.expr(s.Init)
		r.expr(s.Limit)
		r.expr(s.Step)
		r.push()
		r.env.declare(s.Name, nil)
		r.stmts(s.Stmts)
		r.pop()
	case *ast.GenericForStmt:
		r.exprs(s.Exprs)
		r.push()
		for _, name := range s.Names {
			r.env.declare(name, nil)
		}
		r.stmts(s.Stmts)
		r.pop()
	case *ast.FuncDefStmt:
		var params []string
		if s.Name != nil && s.Name.Method != "" {
			params = append(params, "self")
		}
		r.function(s.Func, params...)
	case *ast.ReturnStmt:
		r.exprs(s.Exprs)
	}
}

func (r *Resolver) function(fn *ast.FunctionExpr, implicit ...string) {
	if fn == nil {
		return
	}
	r.push()
	for _, name := range implicit {
		r.env.declare(name, nil)
	}
	if fn.ParList != nil {
		for _, name := range fn.ParList.Names {
			r.env.declare(name, nil)
		}
	}
	r.stmts(fn.Stmts)
	r.pop()
}

// ifStmt handles probe conditionals. An if/else whose predicate consults the
// probe is measured branch by branch and replaced; an if without else is
// replaced without contributing. elseif chains are visited as ordinary code.
func (r *Resolver) ifStmt(s *ast.IfStmt) {
	if isElseIf(s) || !r.mentionsProbe(s.Condition) {
		r.chain(s)
		return
	}
	if s.Else == nil {
		r.rewrites = append(r.rewrites, Rewrite{If: s, Line: s.Line()})
		return
	}
	then := r.isolated(s.Then)
	otherwise := r.isolated(s.Else)
	r.merge(sdk.Union(then, otherwise))
	r.rewrites = append(r.rewrites, Rewrite{If: s, Line: s.Line(), Merged: true})
}

func (r *Resolver) chain(s *ast.IfStmt) {
	r.expr(s.Condition)
	r.block(s.Then)
	if isElseIf(s) {
		r.push()
		r.chain(s.Else[0].(*ast.IfStmt))
		r.pop()
		return
	}
	if s.Else != nil {
		r.block(s.Else)
	}
}

// isElseIf reports whether the else part of s is exactly one nested if, the
// shape the parser gives an elseif clause. gopher-lua builds the same tree
// for "else if c then ... end end", so a probe conditional whose else body
// is a lone if is treated as an elseif chain.
func isElseIf(s *ast.IfStmt) bool {
	if len(s.Else) != 1 {
		return false
	}
	_, ok := s.Else[0].(*ast.IfStmt)
	return ok
}

// isolated measures a branch on its own, starting from the default interval
// with no bindings from the enclosing code.
func (r *Resolver) isolated(stmts []ast.Stmt) sdk.Interval {
	return NewResolver(r.table).Resolve(stmts).Interval
}

// mentionsProbe reports whether cond calls the probe directly or reads a
// local bound to a probe call.
func (r *Resolver) mentionsProbe(cond ast.Expr) bool {
	probe := r.table.Probe()
	found := false
	InspectExpr(cond, func(n Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *ast.FuncCallExpr:
			if name, ok := CallName(n); ok && name == probe {
				found = true
			}
		case *ast.IdentExpr:
			b, ok := r.env.lookup(n.Value)
			if !ok {
				break
			}
			if call, ok := b.expr.(*ast.FuncCallExpr); ok {
				if name, ok := CallName(call); ok && name == probe {
					found = true
				}
			}
		}
		return !found
	})
	return found
}

// =============================================================================
// Expressions
// =============================================================================

func (r *Resolver) exprs(es []ast.Expr) {
	for _, e := range es {
		r.expr(e)
	}
}

func (r *Resolver) expr(e ast.Expr) {
	switch e := e.(type) {
	case nil:
	case *ast.FuncCallExpr:
		r.call(e)
		r.expr(e.Func)
		r.expr(e.Receiver)
		r.exprs(e.Args)
	case *ast.AttrGetExpr:
		r.expr(e.Object)
		r.expr(e.Key)
	case *ast.TableExpr:
		for _, f := range e.Fields {
			r.expr(f.Key)
			r.expr(f.Value)
		}
	case *ast.LogicalOpExpr:
		r.expr(e.Lhs)
		r.expr(e.Rhs)
	case *ast.RelationalOpExpr:
		r.expr(e.Lhs)
		r.expr(e.Rhs)
	case *ast.StringConcatOpExpr:
		r.expr(e.Lhs)
		r.expr(e.Rhs)
	case *ast.ArithmeticOpExpr:
		r.expr(e.Lhs)
		r.expr(e.Rhs)
	case *ast.UnaryMinusOpExpr:
		r.expr(e.Expr)
	case *ast.UnaryNotOpExpr:
		r.expr(e.Expr)
	case *ast.UnaryLenOpExpr:
		r.expr(e.Expr)
	case *ast.FunctionExpr:
		r.function(e)
	}
}

func (r *Resolver) call(call *ast.FuncCallExpr) {
	name, ok := CallName(call)
	if !ok {
		return
	}
	if name == r.table.Trap() {
		if len(call.Args) == 0 {
			return
		}
		if name, ok = r.trapped(call.Args[0]); !ok {
			return
		}
	}
	if iv, ok := r.table.Lookup(name); ok {
		r.merge(iv)
	}
}

// trapped names the function passed to the trap wrapper. A local is
// followed one step to its initializer; a local without a simple
// initializer names nothing.
func (r *Resolver) trapped(arg ast.Expr) (string, bool) {
	ident, ok := arg.(*ast.IdentExpr)
	if !ok {
		return QualifiedName(arg)
	}
	b, bound := r.env.lookup(ident.Value)
	if !bound {
		return ident.Value, true
	}
	if b.expr == nil {
		return "", false
	}
	return QualifiedName(b.expr)
}
