package analysis

import (
	"strings"

	"github.com/yuin/gopher-lua/ast"
)

// QualifiedName returns the dotted name of an identifier or of a field
// access chain whose keys are all string constants ("a.b.c"). Any other
// expression, including computed indexing such as t[k], has no name.
func QualifiedName(e ast.Expr) (string, bool) {
	var parts []string
	for {
		switch x := e.(type) {
		case *ast.IdentExpr:
			parts = append(parts, x.Value)
			for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
				parts[i], parts[j] = parts[j], parts[i]
			}
			return strings.Join(parts, "."), true
		case *ast.AttrGetExpr:
			key, ok := x.Key.(*ast.StringExpr)
			if !ok {
				return "", false
			}
			parts = append(parts, key.Value)
			e = x.Object
		default:
			return "", false
		}
	}
}

// CallName returns the qualified name of a plain function call. Method
// calls (obj:m()) have no name.
func CallName(call *ast.FuncCallExpr) (string, bool) {
	if call.Receiver != nil || call.Method != "" {
		return "", false
	}
	return QualifiedName(call.Func)
}
