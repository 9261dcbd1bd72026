package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/matzehuels/flowc/pkg/cache"
	"github.com/matzehuels/flowc/pkg/config"
	"github.com/matzehuels/flowc/pkg/engine"
	"github.com/matzehuels/flowc/pkg/resolve"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// graphEntry is a cached version computation. It is only valid while every
// module in Sources still has the recorded content hash and every require
// in Imports still resolves to the recorded path.
type graphEntry struct {
	Versions map[string]sdk.Interval `json:"versions"` // by entry path
	Sources  map[string]string       `json:"sources"`  // module path -> content hash
	Imports  []graphImport           `json:"imports"`
}

type graphImport struct {
	From    string `json:"from"`
	Literal string `json:"literal"`
	Path    string `json:"path"`
}

// graphKey identifies a computation of entries in the project at cfg under
// table. The project directory is part of the key because entry paths are
// relative to it.
func (r *Runner) graphKey(cfg *config.Config, entries []string, table *sdk.GateTable) string {
	return r.Keyer.GraphKey(entries, cache.Hash([]byte(cfg.Dir()+"\x00"+table.Fingerprint())))
}

// lookupGraph returns cached entry-point intervals when the entry at key is
// still valid for the sources visible through res.
func (r *Runner) lookupGraph(ctx context.Context, key string, res resolve.Resources) (map[string]sdk.Interval, bool) {
	var e graphEntry
	if err := cache.GetJSON(ctx, r.Cache, key, &e); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.Logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	for path, sum := range e.Sources {
		src, err := res.Read(path)
		if err != nil || cache.Hash(src) != sum {
			r.Logger.Debug("graph cache stale", "module", path)
			return nil, false
		}
	}
	locator := resolve.NewPathLocator(res, "")
	for _, imp := range e.Imports {
		if p, err := locator.Locate(imp.Literal, imp.From); err != nil || p != imp.Path {
			r.Logger.Debug("graph cache stale", "module", imp.From, "require", imp.Literal)
			return nil, false
		}
	}
	return e.Versions, true
}

// storeGraph caches the entry-point intervals of g together with the source
// hashes recorded while it was computed.
func (r *Runner) storeGraph(ctx context.Context, key string, g *engine.ResolvedGraph, sums map[string]string) {
	e := graphEntry{Versions: g.Versions(), Sources: make(map[string]string, len(sums))}
	for _, m := range g.Modules() {
		sum, ok := sums[m.Path]
		if !ok {
			return
		}
		e.Sources[m.Path] = sum
		for _, imp := range m.Imports {
			e.Imports = append(e.Imports, graphImport{From: m.Path, Literal: imp.Literal, Path: imp.Path})
		}
	}
	sort.Slice(e.Imports, func(i, j int) bool {
		a, b := e.Imports[i], e.Imports[j]
		if a.From != b.From {
			return a.From < b.From
		}
		return a.Literal < b.Literal
	})
	if err := cache.SetJSON(ctx, r.Cache, key, e, cache.TTLGraph); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// hashingResources records the content hash of every file read through it.
type hashingResources struct {
	resolve.Resources

	mu   sync.Mutex
	sums map[string]string
}

func newHashingResources(inner resolve.Resources) *hashingResources {
	return &hashingResources{Resources: inner, sums: map[string]string{}}
}

func (h *hashingResources) Read(path string) ([]byte, error) {
	data, err := h.Resources.Read(path)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.sums[path] = cache.Hash(data)
	h.mu.Unlock()
	return data, nil
}

func (h *hashingResources) snapshot() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(h.sums))
	for p, s := range h.sums {
		out[p] = s
	}
	return out
}
