package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/yuin/gopher-lua/ast"

	"github.com/matzehuels/flowc/pkg/dag"
	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/observability"
	"github.com/matzehuels/flowc/pkg/resolve"
	"github.com/matzehuels/flowc/pkg/sdk"
)

func u64(v uint64) *uint64 { return &v }

func testTable() *sdk.GateTable {
	return &sdk.GateTable{
		FunctionMappings: map[string]sdk.FunctionMapping{
			"one":        {MinSdkVersion: 1},
			"three":      {MinSdkVersion: 3},
			"five":       {MinSdkVersion: 5},
			"seven_30":   {MinSdkVersion: 7, MaxSdkVersion: u64(30)},
			"two_20":     {MinSdkVersion: 2, MaxSdkVersion: u64(20)},
			"at_least_9": {MinSdkVersion: 9},
			"sdk":        {MinSdkVersion: 1},
		},
		SdkVersionFunction: "sdk",
	}
}

func compute(t *testing.T, files map[string]string, entries ...string) (*ResolvedGraph, error) {
	t.Helper()
	eng, err := New(Options{
		Resources: resolve.NewMemoryResources(files),
		Table:     testTable(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return eng.Compute(context.Background(), entries)
}

func TestCompute_Chain(t *testing.T) {
	files := map[string]string{
		"flows/a.lua": `local b = require("./b") one()`,
		"flows/b.lua": `local c = require("./c") three()`,
		"flows/c.lua": `five()`,
	}
	g, err := compute(t, files, "flows/a.lua")
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	want := map[string]sdk.Interval{"flows/a.lua": sdk.AtLeast(5)}
	if got := g.Versions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Versions() = %v, want %v", got, want)
	}

	owns := map[string]uint64{"flows/a.lua": 1, "flows/b.lua": 3, "flows/c.lua": 5}
	for path, own := range owns {
		m, ok := g.Module(path)
		if !ok {
			t.Fatalf("Module(%s) missing", path)
		}
		if m.Own.Min() != own {
			t.Errorf("%s own = %v, want >=%d", path, m.Own, own)
		}
		if m.Final != sdk.AtLeast(5) {
			t.Errorf("%s final = %v, want >=5", path, m.Final)
		}
	}

	var order []string
	for _, m := range g.Modules() {
		order = append(order, m.Path)
	}
	if !reflect.DeepEqual(order, []string{"flows/c.lua", "flows/b.lua", "flows/a.lua"}) {
		t.Errorf("Modules() order = %v", order)
	}
}

func TestCompute_Diamond(t *testing.T) {
	files := map[string]string{
		"main.lua":  `require("left") require("right")`,
		"left.lua":  `require("base") two_20()`,
		"right.lua": `require("base")`,
		"base.lua":  `seven_30()`,
	}
	g, err := compute(t, files, "main.lua")
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if got := g.Versions()["main.lua"]; got != sdk.Between(7, 20) {
		t.Errorf("main final = %v, want 7..20", got)
	}
	if m, _ := g.Module("right.lua"); m.Final != sdk.Between(7, 30) {
		t.Errorf("right final = %v, want 7..30", m.Final)
	}
	if got := g.DAG().EdgeCount(); got != 4 {
		t.Errorf("EdgeCount() = %d, want 4", got)
	}
	if got := g.Closure("left.lua"); !reflect.DeepEqual(got, []string{"base.lua", "left.lua"}) {
		t.Errorf("Closure(left) = %v", got)
	}
}

func TestCompute_EntryPointsOnly(t *testing.T) {
	files := map[string]string{
		"flows/x.lua":     `require("shared/util") at_least_9()`,
		"flows/y.lua":     `require("shared/util")`,
		"shared/util.lua": `three()`,
	}
	g, err := compute(t, files, "flows/x.lua", "./flows/y.lua", "flows/x.lua")
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	want := map[string]sdk.Interval{
		"flows/x.lua": sdk.AtLeast(9),
		"flows/y.lua": sdk.AtLeast(3),
	}
	if got := g.Versions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Versions() = %v, want %v", got, want)
	}
	if got := g.Entries(); !reflect.DeepEqual(got, []string{"flows/x.lua", "flows/y.lua"}) {
		t.Errorf("Entries() = %v", got)
	}
	node, _ := g.DAG().Node("shared/util.lua")
	if node.Meta[MetaEntry] != false || node.Meta[MetaOwn] != sdk.AtLeast(3) {
		t.Errorf("node metadata = %v", node.Meta)
	}
}

func TestCompute_Cycle(t *testing.T) {
	files := map[string]string{
		"a.lua": `require("b") five()`,
		"b.lua": `require("a")`,
	}
	g, err := compute(t, files, "a.lua")
	if g != nil {
		t.Error("Compute() should not return a graph for a cycle")
	}
	if !errors.Is(err, errors.ErrCodeCyclicDependency) {
		t.Fatalf("Compute() error = %v, want CYCLIC_DEPENDENCY", err)
	}
	ce := dag.AsCycleError(err)
	if ce == nil {
		t.Fatalf("error %v does not carry a cycle", err)
	}
	if !reflect.DeepEqual(ce.Cycle, []string{"a.lua", "b.lua", "a.lua"}) {
		t.Errorf("Cycle = %v", ce.Cycle)
	}
}

func TestCompute_SelfImport(t *testing.T) {
	_, err := compute(t, map[string]string{"a.lua": `require("a")`}, "a.lua")
	if !errors.Is(err, errors.ErrCodeCyclicDependency) {
		t.Errorf("Compute() error = %v, want CYCLIC_DEPENDENCY", err)
	}
}

func TestCompute_Failures(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		entry string
		code  errors.Code
	}{
		{
			name:  "unresolvable import",
			files: map[string]string{"a.lua": `require("./missing") require("./gone")`},
			entry: "a.lua",
			code:  errors.ErrCodeUnresolvableImport,
		},
		{
			name:  "unresolvable import in dependency",
			files: map[string]string{"a.lua": `require("b")`, "b.lua": `require("nope")`},
			entry: "a.lua",
			code:  errors.ErrCodeUnresolvableImport,
		},
		{
			name:  "parse failure",
			files: map[string]string{"a.lua": `local = = 3`},
			entry: "a.lua",
			code:  errors.ErrCodeParseFailure,
		},
		{
			name:  "missing entry point",
			files: map[string]string{},
			entry: "a.lua",
			code:  errors.ErrCodeFileNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := compute(t, tt.files, tt.entry)
			if g != nil {
				t.Error("Compute() should not return a partial graph")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Compute() error = %v, want %s", err, tt.code)
			}
		})
	}
}

// failingResources returns err for every read.
type failingResources struct{ err error }

func (r failingResources) Read(string) ([]byte, error) { return nil, r.err }
func (r failingResources) Exists(string) bool          { return true }

func TestCompute_ReadErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.Code
	}{
		{"missing", &fs.PathError{Op: "open", Path: "a.lua", Err: fs.ErrNotExist}, errors.ErrCodeFileNotFound},
		{"permission denied", &fs.PathError{Op: "open", Path: "a.lua", Err: fs.ErrPermission}, errors.ErrCodeInternal},
		{"coded error kept", errors.New(errors.ErrCodeInvalidPath, "bad path"), errors.ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := New(Options{Resources: failingResources{err: tt.err}, Table: testTable()})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := eng.Compute(context.Background(), []string{"a.lua"}); !errors.Is(err, tt.code) {
				t.Errorf("Compute() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestCompute_EntryIsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.lua"), 0o755); err != nil {
		t.Fatal(err)
	}
	eng, err := New(Options{Resources: resolve.NewOSResources(dir), Table: testTable()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = eng.Compute(context.Background(), []string{"a.lua"})
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Compute() error = %v, a directory is not a missing file", err)
	}
	if !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("Compute() error = %v, want INTERNAL_ERROR", err)
	}
}

func TestCompute_RewrittenTree(t *testing.T) {
	files := map[string]string{
		"main.lua": "if sdk() >= 9 then\n  at_least_9()\nelse\n  five()\nend",
	}
	g, err := compute(t, files, "main.lua")
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	m, _ := g.Module("main.lua")
	if m.Own != sdk.AtLeast(5) {
		t.Errorf("Own = %v, want >=5", m.Own)
	}
	if len(m.Rewrites) != 1 || !m.Rewrites[0].Merged {
		t.Fatalf("Rewrites = %+v", m.Rewrites)
	}
	ifStmt := m.Tree[0].(*ast.IfStmt)
	if _, ok := ifStmt.Condition.(*ast.TrueExpr); !ok {
		t.Error("Tree should hold the neutralized conditional")
	}
}

func TestCompute_Deterministic(t *testing.T) {
	files := map[string]string{
		"main.lua": `require("a") require("b") require("c")`,
		"a.lua":    `require("c") two_20()`,
		"b.lua":    `require("c") seven_30()`,
		"c.lua":    `five()`,
	}
	first, err := compute(t, files, "main.lua")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := compute(t, files, "main.lua")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Versions(), again.Versions()) {
			t.Fatalf("run %d: %v != %v", i, again.Versions(), first.Versions())
		}
	}
}

func TestCompute_NoEntryPoints(t *testing.T) {
	if _, err := compute(t, nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Compute() error = %v, want INVALID_INPUT", err)
	}
}

func TestCompute_Canceled(t *testing.T) {
	eng, err := New(Options{Resources: resolve.NewMemoryResources(map[string]string{"a.lua": ""}), Table: testTable()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.Compute(ctx, []string{"a.lua"}); err != context.Canceled {
		t.Errorf("Compute() error = %v, want context.Canceled", err)
	}
}

func TestNew_RequiresTable(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, errors.ErrCodeInvalidGateTable) {
		t.Errorf("New() error = %v", err)
	}
}

type recordingHooks struct {
	observability.NoopEngineHooks
	modules []string
	graphs  int
	lastErr error
}

func (h *recordingHooks) OnModuleResolved(_ context.Context, path string, _ time.Duration, _ int) {
	h.modules = append(h.modules, path)
}

func (h *recordingHooks) OnGraphResolved(_ context.Context, _, _ int, _ time.Duration, err error) {
	h.graphs++
	h.lastErr = err
}

func TestCompute_Hooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetEngineHooks(hooks)
	defer observability.Reset()

	_, err := compute(t, map[string]string{"a.lua": `require("b")`, "b.lua": ``}, "a.lua")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(hooks.modules, []string{"a.lua", "b.lua"}) {
		t.Errorf("resolved modules = %v", hooks.modules)
	}
	if hooks.graphs != 1 || hooks.lastErr != nil {
		t.Errorf("graph hook calls = %d, err = %v", hooks.graphs, hooks.lastErr)
	}
}
