package analysis

import (
	"strings"
	"testing"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	"github.com/matzehuels/flowc/pkg/sdk"
)

func mustParse(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	chunk, err := parse.Parse(strings.NewReader(src), "test.lua")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return chunk
}

func u64(v uint64) *uint64 { return &v }

func testTable() *sdk.GateTable {
	return &sdk.GateTable{
		DefaultVersion: u64(10),
		FunctionMappings: map[string]sdk.FunctionMapping{
			"get_sdk_version":    {MinSdkVersion: 13},
			"at_least_20":        {MinSdkVersion: 20},
			"less_than_20":       {MinSdkVersion: 16, MaxSdkVersion: u64(19)},
			"global_function_15": {MinSdkVersion: 15},
			"http.fetch":         {MinSdkVersion: 17},
		},
		SdkVersionFunction: "get_sdk_version",
	}
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		src  string
		want string
		ok   bool
	}{
		{"f()", "f", true},
		{"a.b.c()", "a.b.c", true},
		{`a["b"]()`, "a.b", true},
		{"a[k]()", "", false},
		{"obj:m()", "", false},
		{"f()()", "", false},
	}
	for _, tt := range tests {
		chunk := mustParse(t, tt.src)
		call := chunk[0].(*ast.FuncCallStmt).Expr.(*ast.FuncCallExpr)
		got, ok := CallName(call)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CallName(%s) = %q, %v, want %q, %v", tt.src, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		want     sdk.Interval
		rewrites int
	}{
		{
			name: "no gated calls",
			src:  `print("hello")`,
			want: sdk.AtLeast(10),
		},
		{
			name: "single gated call",
			src:  `at_least_20()`,
			want: sdk.AtLeast(20),
		},
		{
			name: "sequential calls intersect",
			src:  "at_least_20()\nless_than_20()",
			want: sdk.Between(20, 19),
		},
		{
			name: "field chain",
			src:  `local r = http.fetch("https://example.com")`,
			want: sdk.AtLeast(17),
		},
		{
			name: "method calls ignored",
			src:  `http:fetch("x") obj:at_least_20()`,
			want: sdk.AtLeast(10),
		},
		{
			name: "indexed callee ignored",
			src:  `local k = "at_least_20" _G[k]()`,
			want: sdk.AtLeast(10),
		},
		{
			name: "nested function body raises requirement",
			src:  "local function run()\n  for _, v in ipairs({}) do\n    at_least_20()\n  end\nend",
			want: sdk.AtLeast(20),
		},
		{
			name: "call in argument position",
			src:  `print(less_than_20())`,
			want: sdk.Between(16, 19),
		},
		{
			name:     "probe if/else unions branches",
			src:      "if get_sdk_version() >= 20 then\n  at_least_20()\nelse\n  less_than_20()\nend",
			want:     sdk.AtLeast(16),
			rewrites: 1,
		},
		{
			name:     "probe if without else contributes nothing",
			src:      "if get_sdk_version() >= 20 then\n  at_least_20()\nend",
			want:     sdk.AtLeast(10),
			rewrites: 1,
		},
		{
			name: "non-probe conditional visited normally",
			src:  "if ready then\n  at_least_20()\nelse\n  less_than_20()\nend",
			want: sdk.Between(20, 19),
		},
		{
			name: "elseif chain untouched",
			src:  "if get_sdk_version() >= 20 then\n  at_least_20()\nelseif get_sdk_version() >= 16 then\n  less_than_20()\nelse\n  global_function_15()\nend",
			want: sdk.Between(20, 19),
		},
		{
			name: "else with lone nested if reads as elseif",
			src:  "if get_sdk_version() >= 20 then\n  at_least_20()\nelse\n  if ready then\n    less_than_20()\n  end\nend",
			want: sdk.Between(20, 19),
		},
		{
			name:     "else with nested if and more statements is a probe",
			src:      "if get_sdk_version() >= 20 then\n  at_least_20()\nelse\n  if ready then\n    less_than_20()\n  end\n  print(1)\nend",
			want:     sdk.AtLeast(16),
			rewrites: 1,
		},
		{
			name: "trap with global",
			src:  `local ok = pcall(at_least_20)`,
			want: sdk.AtLeast(20),
		},
		{
			name: "trap with field chain",
			src:  `pcall(http.fetch, "u")`,
			want: sdk.AtLeast(17),
		},
		{
			name: "trap through simple local",
			src:  "local f = http.fetch\npcall(f)",
			want: sdk.AtLeast(17),
		},
		{
			name: "trap through opaque local fails closed",
			src:  "local f, g = at_least_20, nil\npcall(f)",
			want: sdk.AtLeast(10),
		},
		{
			name: "trap through parameter fails closed",
			src:  "function wrap(at_least_20)\n  return pcall(at_least_20)\nend",
			want: sdk.AtLeast(10),
		},
		{
			name: "trap without arguments",
			src:  `pcall()`,
			want: sdk.AtLeast(10),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(testTable(), mustParse(t, tt.src))
			if res.Interval != tt.want {
				t.Errorf("Resolve() interval = %v, want %v", res.Interval, tt.want)
			}
			if len(res.Rewrites) != tt.rewrites {
				t.Errorf("Resolve() rewrites = %d, want %d", len(res.Rewrites), tt.rewrites)
			}
		})
	}
}

func TestResolve_TrapMatchesDirectCall(t *testing.T) {
	direct := Resolve(testTable(), mustParse(t, `global_function_15()`))
	trapped := Resolve(testTable(), mustParse(t, `pcall(global_function_15)`))
	if direct.Interval != trapped.Interval {
		t.Errorf("pcall(gated) = %v, direct = %v", trapped.Interval, direct.Interval)
	}
}

const loopIfElse = `
function main()
    local x = 33
    for i = 1, 10 do
        local sdk_version = get_sdk_version()
        if sdk_version >= 20 then
            at_least_20()
        else
            less_than_20()
        end
    end
end
`

const loopIfOnly = `
function main()
    local x = 33
    for i = 1, 10 do
        local sdk_version = get_sdk_version()
        if sdk_version >= 20 then
            at_least_20()
        end
    end
end
`

const loopTrap = `
function main()
    local x = 33
    for i = 1, 10 do
        local my_test_call = pcall(global_function_15)
    end
end
`

func TestResolve_BoundProbe(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMin uint64
		merged  bool
	}{
		{"if/else through bound probe", loopIfElse, 16, true},
		{"if only through bound probe", loopIfOnly, 13, false},
		{"trap inside loop", loopTrap, 15, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(testTable())
			res := r.Resolve(mustParse(t, tt.src))
			if res.Interval.Min() != tt.wantMin {
				t.Errorf("Min() = %d, want %d", res.Interval.Min(), tt.wantMin)
			}
			for _, rw := range res.Rewrites {
				if rw.Merged != tt.merged {
					t.Errorf("Rewrite at line %d Merged = %v, want %v", rw.Line, rw.Merged, tt.merged)
				}
			}
		})
	}
}

func TestResolve_ShadowedProbeBinding(t *testing.T) {
	src := `
local v = get_sdk_version()
do
    local v = 3
    if v >= 20 then
        at_least_20()
    else
        less_than_20()
    end
end
`
	res := Resolve(testTable(), mustParse(t, src))
	if len(res.Rewrites) != 0 {
		t.Fatalf("shadowed binding should not look like a probe, got %d rewrites", len(res.Rewrites))
	}
	if res.Interval != sdk.Between(20, 19) {
		t.Errorf("Interval = %v, want 20..19", res.Interval)
	}
}

func TestApply(t *testing.T) {
	src := `
local function main()
    local sdk_version = get_sdk_version()
    if sdk_version >= 20 then
        at_least_20()
    else
        less_than_20()
    end
    print("done")
end
if get_sdk_version() > 1 then
    global_function_15()
end
return main
`
	chunk := mustParse(t, src)
	res := Resolve(testTable(), chunk)
	if len(res.Rewrites) != 2 {
		t.Fatalf("Rewrites = %d, want 2", len(res.Rewrites))
	}

	out := res.Apply(chunk)
	if &out[0] == &chunk[0] {
		t.Fatal("Apply() should return a new slice")
	}
	if out[2] != chunk[2] {
		t.Error("untouched statements should be shared")
	}

	// Input tree keeps its conditionals.
	orig := chunk[1].(*ast.IfStmt)
	if _, ok := orig.Condition.(*ast.TrueExpr); ok {
		t.Error("Apply() mutated the input tree")
	}

	top := out[1].(*ast.IfStmt)
	if _, ok := top.Condition.(*ast.TrueExpr); !ok || len(top.Then) != 0 || top.Else != nil {
		t.Errorf("if-only conditional not neutralized: %#v", top)
	}
	if top.Line() != orig.Line() {
		t.Errorf("line = %d, want %d", top.Line(), orig.Line())
	}

	fn := out[0].(*ast.LocalAssignStmt).Exprs[0].(*ast.FunctionExpr)
	inner := fn.Stmts[1].(*ast.IfStmt)
	if _, ok := inner.Condition.(*ast.TrueExpr); !ok || len(inner.Then) != 0 || inner.Else == nil || len(inner.Else) != 0 {
		t.Errorf("if/else conditional not neutralized: %#v", inner)
	}
	if fn.Stmts[2] != chunk[0].(*ast.LocalAssignStmt).Exprs[0].(*ast.FunctionExpr).Stmts[2] {
		t.Error("sibling statements inside a rewritten function should be shared")
	}

	// Re-resolving the rewritten tree finds nothing left to rewrite.
	again := Resolve(testTable(), out)
	if len(again.Rewrites) != 0 {
		t.Errorf("rewritten tree still has %d probe conditionals", len(again.Rewrites))
	}
}

func TestApply_NoRewrites(t *testing.T) {
	chunk := mustParse(t, `at_least_20()`)
	res := Resolve(testTable(), chunk)
	out := res.Apply(chunk)
	if len(out) != 1 || out[0] != chunk[0] {
		t.Error("Apply() without rewrites should return the input")
	}
}

type mapResolver map[string]string

func (m mapResolver) Resolve(literal, from string) (string, error) {
	if p, ok := m[literal]; ok {
		return p, nil
	}
	return "", &missingError{literal}
}

type missingError struct{ literal string }

func (e *missingError) Error() string { return "missing " + e.literal }

func TestCollector(t *testing.T) {
	src := `
local a = require("./lib/a")
local b = require "lib/b"
local c = require("./lib/a")
local d = require(name)
local e = require("x", "y")
local f = obj:require("./lib/a")
local g = other("./lib/a")
local h = function() return require("./nested") end
local i = require("./lib/a").field
`
	res := mapResolver{
		"./lib/a":  "flows/lib/a.lua",
		"lib/b":    "lib/b.lua",
		"./nested": "flows/nested.lua",
	}
	imports, err := NewCollector(res, "").Collect("flows/main.lua", mustParse(t, src))
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	var got []string
	for _, imp := range imports {
		got = append(got, imp.Path)
	}
	want := []string{"flows/lib/a.lua", "lib/b.lua", "flows/lib/a.lua", "flows/nested.lua", "flows/lib/a.lua"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Collect() = %v, want %v", got, want)
	}
	if imports[0].Line != 2 || imports[0].Literal != "./lib/a" {
		t.Errorf("imports[0] = %+v", imports[0])
	}
}

func TestCollector_KeepsRawLiteral(t *testing.T) {
	src := `local a = require("./lib/../lib//a")`
	imports, err := NewCollector(mapResolver{"./lib/a": "lib/a.lua"}, "").Collect("main.lua", mustParse(t, src))
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(imports) != 1 {
		t.Fatalf("got %d imports, want 1", len(imports))
	}
	if imports[0].Raw != "./lib/../lib//a" || imports[0].Literal != "./lib/a" {
		t.Errorf("Raw = %q, Literal = %q", imports[0].Raw, imports[0].Literal)
	}
}

func TestCollector_AggregatesFailures(t *testing.T) {
	src := `
require("./one")
require("./ok")
require("./two")
`
	imports, err := NewCollector(mapResolver{"./ok": "ok.lua"}, "").Collect("main.lua", mustParse(t, src))
	if err == nil {
		t.Fatal("Collect() should fail")
	}
	for _, lit := range []string{"./one", "./two"} {
		if !strings.Contains(err.Error(), lit) {
			t.Errorf("error %q does not mention %s", err, lit)
		}
	}
	if len(imports) != 1 {
		t.Errorf("imports = %d, want 1", len(imports))
	}
}

func TestCollector_CustomFunction(t *testing.T) {
	imports, err := NewCollector(mapResolver{"m": "m.lua"}, "import").Collect("main.lua", mustParse(t, `import("m") require("m")`))
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 1 {
		t.Errorf("imports = %d, want 1", len(imports))
	}
}
