package analysis

import (
	"github.com/yuin/gopher-lua/ast"

	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/paths"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// ImportResolver maps a require literal seen in the module at from to a
// canonical module path.
type ImportResolver interface {
	Resolve(literal, from string) (string, error)
}

// Import is one require call found in a module.
type Import struct {
	Raw     string // literal as written in the source
	Literal string // normalized literal, leading "./" kept
	Path    string // canonical path of the required module
	Line    int
}

// Collector finds the imports of a module.
type Collector struct {
	resolver ImportResolver
	function string
}

// NewCollector creates a collector recognizing calls to function (the
// table's import function when empty).
func NewCollector(resolver ImportResolver, function string) *Collector {
	if function == "" {
		function = sdk.DefaultRequireFunction
	}
	return &Collector{resolver: resolver, function: function}
}

// Collect returns every import in chunk, in source order, duplicates
// included. Every literal that cannot be resolved is reported; the returned
// error joins all of them under UNRESOLVABLE_IMPORT.
func (c *Collector) Collect(path string, chunk []ast.Stmt) ([]Import, error) {
	var (
		imports []Import
		errs    []error
	)
	Inspect(chunk, func(n Node) bool {
		call, ok := n.(*ast.FuncCallExpr)
		if !ok {
			return true
		}
		raw, ok := c.literal(call)
		if !ok {
			return true
		}
		literal := paths.NormalizeKeepCurrent(raw)
		resolved, err := c.resolver.Resolve(literal, path)
		if err != nil {
			errs = append(errs, err)
			return true
		}
		imports = append(imports, Import{Raw: raw, Literal: literal, Path: resolved, Line: call.Line()})
		return true
	})
	if err := errors.Join(errors.ErrCodeUnresolvableImport, "unresolved imports in "+path, errs...); err != nil {
		return imports, err
	}
	return imports, nil
}

// literal reports whether call is require("x") and returns the literal.
// require "x" parses to the same one-argument call.
func (c *Collector) literal(call *ast.FuncCallExpr) (string, bool) {
	if call.Receiver != nil || call.Method != "" {
		return "", false
	}
	ident, ok := call.Func.(*ast.IdentExpr)
	if !ok || ident.Value != c.function || len(call.Args) != 1 {
		return "", false
	}
	str, ok := call.Args[0].(*ast.StringExpr)
	if !ok {
		return "", false
	}
	return str.Value, true
}
