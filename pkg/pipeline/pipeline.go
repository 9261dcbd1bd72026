// Package pipeline runs flowc's project-level operations: computing the
// SDK range of every flow, bundling every flow, and rendering the module
// graph.
//
// The CLI and the HTTP server both go through a [Runner] so that a project
// is resolved the same way everywhere:
//
//	cfg, err := config.Load("flowc.toml")
//	runner := pipeline.NewRunner(nil, nil, logger)
//	versions, err := runner.Versions(ctx, cfg)
//
// A Runner is safe for concurrent use. It holds no per-project state; the
// resources, lock store and cache are configured once and reused.
package pipeline

import (
	"time"

	"github.com/matzehuels/flowc/pkg/engine"
	"github.com/matzehuels/flowc/pkg/lockfile"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// Resolution is a resolved project graph together with the gate table it
// was computed under.
type Resolution struct {
	Graph *engine.ResolvedGraph
	Table *sdk.GateTable
	// Aliases maps entry paths to the flow aliases declared for them.
	Aliases map[string][]string
	Elapsed time.Duration
}

// Versions maps every flow alias of the project to its final range.
func (r *Resolution) Versions() lockfile.Versions {
	return aliasVersions(r.Graph.Versions(), r.Aliases)
}

// aliasVersions fans entry-path intervals out to the aliases declared for
// each path.
func aliasVersions(byPath map[string]sdk.Interval, aliases map[string][]string) lockfile.Versions {
	out := lockfile.Versions{}
	for path, iv := range byPath {
		for _, alias := range aliases[path] {
			out[alias] = iv
		}
	}
	return out
}

// BundleResult describes one Bundle run.
type BundleResult struct {
	// Bundles maps flow aliases to the bundle file written for them.
	Bundles map[string]string
	// Hashes holds the hashes.lock entries, keyed by bundle path relative
	// to the project directory.
	Hashes   lockfile.Hashes
	Versions lockfile.Versions
	Elapsed  time.Duration
}
