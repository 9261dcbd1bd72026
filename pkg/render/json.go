package render

import (
	"encoding/json"
	"sort"

	"github.com/matzehuels/flowc/pkg/engine"
	"github.com/matzehuels/flowc/pkg/sdk"
)

type jsonGraph struct {
	Modules []jsonModule `json:"modules"`
	Edges   []jsonEdge   `json:"edges"`
}

type jsonModule struct {
	Path     string       `json:"path"`
	Entry    bool         `json:"entry,omitempty"`
	Own      sdk.Interval `json:"own"`
	Final    sdk.Interval `json:"final"`
	Rewrites int          `json:"rewrites,omitempty"`
}

type jsonEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ToJSON encodes the graph as {"modules": [...], "edges": [...]}. Modules
// are sorted by path; edges run from importer to imported module.
func ToJSON(g *engine.ResolvedGraph) ([]byte, error) {
	mods := g.Modules()
	sort.Slice(mods, func(i, j int) bool { return mods[i].Path < mods[j].Path })

	out := jsonGraph{Modules: make([]jsonModule, 0, len(mods)), Edges: []jsonEdge{}}
	for _, m := range mods {
		out.Modules = append(out.Modules, jsonModule{
			Path:     m.Path,
			Entry:    m.Entry,
			Own:      m.Own,
			Final:    m.Final,
			Rewrites: len(m.Rewrites),
		})
		for _, dep := range m.Dependencies {
			out.Edges = append(out.Edges, jsonEdge{From: m.Path, To: dep})
		}
	}
	return json.MarshalIndent(out, "", "  ")
}
