package analysis

import "github.com/yuin/gopher-lua/ast"

// Node is any statement or expression.
type Node = ast.PositionHolder

// Inspect traverses stmts depth-first, calling f for every statement and
// expression, function bodies included. If f returns false the children of
// that node are skipped.
func Inspect(stmts []ast.Stmt, f func(Node) bool) {
	for _, s := range stmts {
		inspectStmt(s, f)
	}
}

// InspectExpr is [Inspect] for a single expression.
func InspectExpr(e ast.Expr, f func(Node) bool) {
	if e == nil || !f(e) {
		return
	}
	switch e := e.(type) {
	case *ast.AttrGetExpr:
		InspectExpr(e.Object, f)
		InspectExpr(e.Key, f)
	case *ast.TableExpr:
		for _, field := range e.Fields {
			InspectExpr(field.Key, f)
			InspectExpr(field.Value, f)
		}
	case *ast.FuncCallExpr:
		InspectExpr(e.Func, f)
		InspectExpr(e.Receiver, f)
		inspectExprs(e.Args, f)
	case *ast.LogicalOpExpr:
		InspectExpr(e.Lhs, f)
		InspectExpr(e.Rhs, f)
	case *ast.RelationalOpExpr:
		InspectExpr(e.Lhs, f)
		InspectExpr(e.Rhs, f)
	case *ast.StringConcatOpExpr:
		InspectExpr(e.Lhs, f)
		InspectExpr(e.Rhs, f)
	case *ast.ArithmeticOpExpr:
		InspectExpr(e.Lhs, f)
		InspectExpr(e.Rhs, f)
	case *ast.UnaryMinusOpExpr:
		InspectExpr(e.Expr, f)
	case *ast.UnaryNotOpExpr:
		InspectExpr(e.Expr, f)
	case *ast.UnaryLenOpExpr:
		InspectExpr(e.Expr, f)
	case *ast.FunctionExpr:
		Inspect(e.Stmts, f)
	}
}

func inspectExprs(es []ast.Expr, f func(Node) bool) {
	for _, e := range es {
		InspectExpr(e, f)
	}
}

func inspectStmt(s ast.Stmt, f func(Node) bool) {
	if s == nil || !f(s) {
		return
	}
	switch s := s.(type) {
	case *ast.AssignStmt:
		inspectExprs(s.Lhs, f)
		inspectExprs(s.Rhs, f)
	case *ast.LocalAssignStmt:
		inspectExprs(s.Exprs, f)
	case *ast.FuncCallStmt:
		InspectExpr(s.Expr, f)
	case *ast.DoBlockStmt:
		Inspect(s.Stmts, f)
	case *ast.WhileStmt:
		InspectExpr(s.Condition, f)
		Inspect(s.Stmts, f)
	case *ast.RepeatStmt:
		Inspect(s.Stmts, f)
		InspectExpr(s.Condition, f)
	case *ast.IfStmt:
		InspectExpr(s.Condition, f)
		Inspect(s.Then, f)
		Inspect(s.Else, f)
	case *ast.NumberForStmt:
		InspectExpr(s.Init, f)
		InspectExpr(s.Limit, f)
		InspectExpr(s.Step, f)
		Inspect(s.Stmts, f)
	case *ast.GenericForStmt:
		inspectExprs(s.Exprs, f)
		Inspect(s.Stmts, f)
	case *ast.FuncDefStmt:
		if s.Name != nil {
			InspectExpr(s.Name.Func, f)
			InspectExpr(s.Name.Receiver, f)
		}
		InspectExpr(s.Func, f)
	case *ast.ReturnStmt:
		inspectExprs(s.Exprs, f)
	}
}
