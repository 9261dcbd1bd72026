package analysis

import "github.com/yuin/gopher-lua/ast"

// Apply returns chunk with every rewritten conditional replaced by
// "if true then end" (plus an empty else when the original had one).
// Statements and expressions on no path to a rewrite are shared with chunk;
// chunk itself is left unchanged.
func (res Result) Apply(chunk []ast.Stmt) []ast.Stmt {
	if len(res.Rewrites) == 0 {
		return chunk
	}
	w := rewriter{targets: make(map[*ast.IfStmt]bool, len(res.Rewrites))}
	for _, rw := range res.Rewrites {
		w.targets[rw.If] = true
	}
	out, _ := w.stmts(chunk)
	return out
}

// neutralized builds the always-true, empty-bodied form of s.
func neutralized(s *ast.IfStmt) *ast.IfStmt {
	cond := &ast.TrueExpr{}
	cond.SetLine(s.Condition.Line())
	cond.SetLastLine(s.Condition.LastLine())
	out := &ast.IfStmt{Condition: cond, Then: []ast.Stmt{}}
	if s.Else != nil {
		out.Else = []ast.Stmt{}
	}
	out.SetLine(s.Line())
	out.SetLastLine(s.LastLine())
	return out
}

type rewriter struct {
	targets map[*ast.IfStmt]bool
}

// stmts rewrites a block, copying the slice only when an element changed.
func (w rewriter) stmts(in []ast.Stmt) ([]ast.Stmt, bool) {
	var out []ast.Stmt
	for i, s := range in {
		ns, changed := w.stmt(s)
		if !changed {
			if out != nil {
				out = append(out, s)
			}
			continue
		}
		if out == nil {
			out = make([]ast.Stmt, i, len(in))
			copy(out, in[:i])
		}
		out = append(out, ns)
	}
	if out == nil {
		return in, false
	}
	return out, true
}

func (w rewriter) exprs(in []ast.Expr) ([]ast.Expr, bool) {
	var out []ast.Expr
	for i, e := range in {
		ne, changed := w.expr(e)
		if !changed {
			if out != nil {
				out = append(out, e)
			}
			continue
		}
		if out == nil {
			out = make([]ast.Expr, i, len(in))
			copy(out, in[:i])
		}
		out = append(out, ne)
	}
	if out == nil {
		return in, false
	}
	return out, true
}

func (w rewriter) stmt(s ast.Stmt) (ast.Stmt, bool) {
	switch s := s.(type) {
	case *ast.IfStmt:
		if w.targets[s] {
			return neutralized(s), true
		}
		cond, c1 := w.expr(s.Condition)
		then, c2 := w.stmts(s.Then)
		els, c3 := w.stmts(s.Else)
		if !c1 && !c2 && !c3 {
			return s, false
		}
		cp := *s
		cp.Condition, cp.Then, cp.Else = cond, then, els
		return &cp, true
	case *ast.AssignStmt:
		lhs, c1 := w.exprs(s.Lhs)
		rhs, c2 := w.exprs(s.Rhs)
		if !c1 && !c2 {
			return s, false
		}
		cp := *s
		cp.Lhs, cp.Rhs = lhs, rhs
		return &cp, true
	case *ast.LocalAssignStmt:
		exprs, changed := w.exprs(s.Exprs)
		if !changed {
			return s, false
		}
		cp := *s
		cp.Exprs = exprs
		return &cp, true
	case *ast.FuncCallStmt:
		e, changed := w.expr(s.Expr)
		if !changed {
			return s, false
		}
		cp := *s
		cp.Expr = e
		return &cp, true
	case *ast.DoBlockStmt:
		body, changed := w.stmts(s.Stmts)
		if !changed {
			return s, false
		}
		cp := *s
		cp.Stmts = body
		return &cp, true
	case *ast.WhileStmt:
		cond, c1 := w.expr(s.Condition)
		body, c2 := w.stmts(s.Stmts)
		if !c1 && !c2 {
			return s, false
		}
		cp := *s
		cp.Condition, cp.Stmts = cond, body
		return &cp, true
	case *ast.RepeatStmt:
		cond, c1 := w.expr(s.Condition)
		body, c2 := w.stmts(s.Stmts)
		if !c1 && !c2 {
			return s, false
		}
		cp := *s
		cp.Condition, cp.Stmts = cond, body
		return &cp, true
	case *ast.NumberForStmt:
		init, c1 := w.expr(s.Init)
		limit, c2 := w.expr(s.Limit)
		step, c3 := w.expr(s.Step)
		body, c4 := w.stmts(s.Stmts)
		if !c1 && !c2 && !c3 && !c4 {
			return s, false
		}
		cp := *s
		cp.Init, cp.Limit, cp.Step, cp.Stmts = init, limit, step, body
		return &cp, true
	case *ast.GenericForStmt:
		exprs, c1 := w.exprs(s.Exprs)
		body, c2 := w.stmts(s.Stmts)
		if !c1 && !c2 {
			return s, false
		}
		cp := *s
		cp.Exprs, cp.Stmts = exprs, body
		return &cp, true
	case *ast.FuncDefStmt:
		fn, changed := w.function(s.Func)
		if !changed {
			return s, false
		}
		cp := *s
		cp.Func = fn
		return &cp, true
	case *ast.ReturnStmt:
		exprs, changed := w.exprs(s.Exprs)
		if !changed {
			return s, false
		}
		cp := *s
		cp.Exprs = exprs
		return &cp, true
	}
	return s, false
}

func (w rewriter) function(fn *ast.FunctionExpr) (*ast.FunctionExpr, bool) {
	if fn == nil {
		return fn, false
	}
	body, changed := w.stmts(fn.Stmts)
	if !changed {
		return fn, false
	}
	cp := *fn
	cp.Stmts = body
	return &cp, true
}

func (w rewriter) expr(e ast.Expr) (ast.Expr, bool) {
	switch e := e.(type) {
	case *ast.FunctionExpr:
		return w.function(e)
	case *ast.FuncCallExpr:
		fn, c1 := w.expr(e.Func)
		recv, c2 := w.expr(e.Receiver)
		args, c3 := w.exprs(e.Args)
		if !c1 && !c2 && !c3 {
			return e, false
		}
		cp := *e
		cp.Func, cp.Receiver, cp.Args = fn, recv, args
		return &cp, true
	case *ast.AttrGetExpr:
		obj, c1 := w.expr(e.Object)
		key, c2 := w.expr(e.Key)
		if !c1 && !c2 {
			return e, false
		}
		cp := *e
		cp.Object, cp.Key = obj, key
		return &cp, true
	case *ast.TableExpr:
		var fields []*ast.Field
		for i, f := range e.Fields {
			k, c1 := w.expr(f.Key)
			v, c2 := w.expr(f.Value)
			if !c1 && !c2 {
				if fields != nil {
					fields = append(fields, f)
				}
				continue
			}
			if fields == nil {
				fields = make([]*ast.Field, i, len(e.Fields))
				copy(fields, e.Fields[:i])
			}
			fields = append(fields, &ast.Field{Key: k, Value: v})
		}
		if fields == nil {
			return e, false
		}
		cp := *e
		cp.Fields = fields
		return &cp, true
	case *ast.LogicalOpExpr:
		lhs, c1 := w.expr(e.Lhs)
		rhs, c2 := w.expr(e.Rhs)
		if !c1 && !c2 {
			return e, false
		}
		cp := *e
		cp.Lhs, cp.Rhs = lhs, rhs
		return &cp, true
	case *ast.RelationalOpExpr:
		lhs, c1 := w.expr(e.Lhs)
		rhs, c2 := w.expr(e.Rhs)
		if !c1 && !c2 {
			return e, false
		}
		cp := *e
		cp.Lhs, cp.Rhs = lhs, rhs
		return &cp, true
	case *ast.StringConcatOpExpr:
		lhs, c1 := w.expr(e.Lhs)
		rhs, c2 := w.expr(e.Rhs)
		if !c1 && !c2 {
			return e, false
		}
		cp := *e
		cp.Lhs, cp.Rhs = lhs, rhs
		return &cp, true
	case *ast.ArithmeticOpExpr:
		lhs, c1 := w.expr(e.Lhs)
		rhs, c2 := w.expr(e.Rhs)
		if !c1 && !c2 {
			return e, false
		}
		cp := *e
		cp.Lhs, cp.Rhs = lhs, rhs
		return &cp, true
	case *ast.UnaryMinusOpExpr:
		x, changed := w.expr(e.Expr)
		if !changed {
			return e, false
		}
		cp := *e
		cp.Expr = x
		return &cp, true
	case *ast.UnaryNotOpExpr:
		x, changed := w.expr(e.Expr)
		if !changed {
			return e, false
		}
		cp := *e
		cp.Expr = x
		return &cp, true
	case *ast.UnaryLenOpExpr:
		x, changed := w.expr(e.Expr)
		if !changed {
			return e, false
		}
		cp := *e
		cp.Expr = x
		return &cp, true
	}
	return e, false
}
