package engine

import (
	"bytes"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	"github.com/matzehuels/flowc/pkg/errors"
)

// Parser turns module source into a syntax tree.
type Parser interface {
	Parse(path string, src []byte) ([]ast.Stmt, error)
}

// LuaParser parses Lua 5.1 source with gopher-lua.
type LuaParser struct{}

// Parse implements [Parser]. Syntax errors carry code PARSE_FAILURE.
func (LuaParser) Parse(path string, src []byte) ([]ast.Stmt, error) {
	chunk, err := parse.Parse(bytes.NewReader(src), path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailure, err, "parse %s", path)
	}
	return chunk, nil
}
