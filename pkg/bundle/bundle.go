package bundle

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowc/pkg/config"
	"github.com/matzehuels/flowc/pkg/engine"
	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/paths"
	"github.com/matzehuels/flowc/pkg/resolve"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// ModulesIdentifier names the loader table in every bundle.
const ModulesIdentifier = "__BUNDLE_MODULES"

// Extension is appended to the flow alias to form the bundle file name.
const Extension = config.BundleExtension

// FileName returns the bundle file name for alias.
func FileName(alias string) string { return alias + Extension }

// Bundler renders bundles from a resolved module graph.
type Bundler struct {
	resources resolve.Resources
	require   string
	logger    *log.Logger
}

// New creates a bundler reading module sources from res. The require
// function name is taken from table; a nil table uses the default.
func New(res resolve.Resources, table *sdk.GateTable, logger *log.Logger) *Bundler {
	require := sdk.DefaultRequireFunction
	if table != nil {
		require = table.Require()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bundler{resources: res, require: require, logger: logger}
}

// Global is one injected metadata local.
type Global struct {
	Name  string
	Value string
}

// Globals returns the metadata injected for ref, in output order. Optional
// values are omitted when unset.
func Globals(ref config.FlowRef) []Global {
	out := []Global{
		{"FLOW_NAME", ref.Flow.Name},
		{"FLOW_ALIAS", ref.Flow.Alias},
		{"PLATFORM_NAME", ref.Platform.Name},
		{"PLATFORM_DESCRIPTION", ref.Platform.Description},
	}
	if ref.Flow.MinSdkVersion != "" {
		out = append(out, Global{"MIN_SDK_VERSION", ref.Flow.MinSdkVersion})
	}
	if len(ref.Flow.Retrieves) > 0 {
		out = append(out, Global{"RETRIEVES", strings.Join(ref.Flow.Retrieves, ", ")})
	}
	return out
}

// Bundle renders the bundle for ref. The flow's entry module must be part
// of g.
func (b *Bundler) Bundle(g *engine.ResolvedGraph, ref config.FlowRef) ([]byte, error) {
	entry := paths.Normalize(ref.Flow.Path)
	if m, ok := g.Module(entry); !ok || !m.Entry {
		return nil, errors.New(errors.ErrCodeNotFound, "flow %q: %s is not an entry point of the graph", ref.Flow.Alias, entry)
	}

	var buf bytes.Buffer
	for _, gl := range Globals(ref) {
		fmt.Fprintf(&buf, "local %s = %s\n", gl.Name, quote(gl.Value))
	}
	buf.WriteString(prelude)

	modules := g.Closure(entry)
	for _, path := range modules {
		m, _ := g.Module(path)
		src, err := b.resources.Read(path)
		if err != nil {
			return nil, fmt.Errorf("flow %q: %w", ref.Flow.Alias, err)
		}
		b.writeLoader(&buf, m, src)
	}
	fmt.Fprintf(&buf, "return %s.require(%s)\n", ModulesIdentifier, quote(entry))

	b.logger.Debug("bundled flow", "alias", ref.Flow.Alias, "modules", len(modules), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// prelude declares the loader table and its memoizing require. A module
// that returns nil is still loaded only once.
const prelude = `local ` + ModulesIdentifier + ` = { loaders = {}, loaded = {} }
function ` + ModulesIdentifier + `.require(path)
	local loaded = ` + ModulesIdentifier + `.loaded[path]
	if loaded == nil then
		local loader = ` + ModulesIdentifier + `.loaders[path]
		if loader == nil then
			error("module not bundled: " .. tostring(path), 2)
		end
		loaded = { value = loader() }
		` + ModulesIdentifier + `.loaded[path] = loaded
	end
	return loaded.value
end
`

func (b *Bundler) writeLoader(buf *bytes.Buffer, m *engine.Module, src []byte) {
	fmt.Fprintf(buf, "%s.loaders[%s] = function()\n", ModulesIdentifier, quote(m.Path))

	targets := make(map[string]string)
	for _, imp := range m.Imports {
		targets[imp.Raw] = imp.Path
	}
	raws := make([]string, 0, len(targets))
	for raw := range targets {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	if len(raws) > 0 {
		buf.WriteString("local __requires = {")
		for _, raw := range raws {
			fmt.Fprintf(buf, " [%s] = %s,", quote(raw), quote(targets[raw]))
		}
		buf.WriteString(" }\n")
		fmt.Fprintf(buf, "local function %s(name)\n", b.require)
		fmt.Fprintf(buf, "\treturn %s.require(__requires[name] or name)\n", ModulesIdentifier)
		buf.WriteString("end\n")
	}

	buf.Write(src)
	if len(src) > 0 && src[len(src)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("end\n")
}
