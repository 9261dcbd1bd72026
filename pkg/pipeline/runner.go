package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowc/pkg/bundle"
	"github.com/matzehuels/flowc/pkg/cache"
	"github.com/matzehuels/flowc/pkg/config"
	"github.com/matzehuels/flowc/pkg/engine"
	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/lockfile"
	"github.com/matzehuels/flowc/pkg/render"
	"github.com/matzehuels/flowc/pkg/resolve"
	"github.com/matzehuels/flowc/pkg/sdk"
)

// Runner executes project operations.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Resources overrides where module sources are read from. When nil,
	// sources are read from the project directory.
	Resources resolve.Resources
	// Store overrides where versions are saved. When nil, versions.lock
	// beside the project file is used.
	Store lockfile.Store
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses cache.DefaultKeyer and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// LoadTable reads the project's gate table.
func (r *Runner) LoadTable(cfg *config.Config) (*sdk.GateTable, error) {
	return sdk.LoadGateTable(cfg.VersionFilePath())
}

func (r *Runner) resources(cfg *config.Config) resolve.Resources {
	if r.Resources != nil {
		return r.Resources
	}
	return resolve.NewOSResources(cfg.Dir())
}

func (r *Runner) store(cfg *config.Config) lockfile.Store {
	if r.Store != nil {
		return r.Store
	}
	return lockfile.NewFileStore(cfg.LockPath(lockfile.VersionsFile))
}

// Resolve analyzes every flow of the project in one graph.
func (r *Runner) Resolve(ctx context.Context, cfg *config.Config) (*Resolution, error) {
	return r.ResolveFlows(ctx, cfg)
}

// ResolveFlows analyzes only the named flows. With no aliases every flow is
// analyzed.
func (r *Runner) ResolveFlows(ctx context.Context, cfg *config.Config, aliases ...string) (*Resolution, error) {
	entries := cfg.FlowPaths()
	if len(aliases) > 0 {
		entries = entries[:0:0]
		for _, alias := range aliases {
			ref, ok := cfg.Flow(alias)
			if !ok {
				return nil, errors.New(errors.ErrCodeNotFound, "no flow with alias %q", alias)
			}
			entries = append(entries, ref.Flow.Path)
		}
	}

	table, err := r.LoadTable(cfg)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, cfg, entries, table, r.resources(cfg))
}

func (r *Runner) resolve(ctx context.Context, cfg *config.Config, entries []string, table *sdk.GateTable, res resolve.Resources) (*Resolution, error) {
	start := time.Now()
	eng, err := engine.New(engine.Options{
		Resources: res,
		Table:     table,
		Logger:    r.Logger,
	})
	if err != nil {
		return nil, err
	}

	g, err := eng.Compute(ctx, entries)
	if err != nil {
		return nil, err
	}
	out := &Resolution{Graph: g, Table: table, Aliases: cfg.AliasesByPath(), Elapsed: time.Since(start)}
	r.Logger.Info("resolved module graph",
		"flows", len(entries),
		"modules", len(g.Modules()),
		"duration", out.Elapsed)
	return out, nil
}

// Versions computes the range of every flow and saves it through the lock
// store. A cached computation is reused while none of the modules it read
// have changed.
func (r *Runner) Versions(ctx context.Context, cfg *config.Config) (lockfile.Versions, error) {
	entries := cfg.FlowPaths()
	table, err := r.LoadTable(cfg)
	if err != nil {
		return nil, err
	}

	key := r.graphKey(cfg, entries, table)
	res := r.resources(cfg)
	if byPath, ok := r.lookupGraph(ctx, key, res); ok {
		r.Logger.Info("resolved module graph from cache", "flows", len(entries))
		return r.saveVersions(ctx, cfg, aliasVersions(byPath, cfg.AliasesByPath()))
	}

	hr := newHashingResources(res)
	resolution, err := r.resolve(ctx, cfg, entries, table, hr)
	if err != nil {
		return nil, err
	}
	r.storeGraph(ctx, key, resolution.Graph, hr.snapshot())
	return r.saveVersions(ctx, cfg, resolution.Versions())
}

func (r *Runner) saveVersions(ctx context.Context, cfg *config.Config, versions lockfile.Versions) (lockfile.Versions, error) {
	for alias, iv := range versions {
		if iv.Empty() {
			r.Logger.Warn("flow has no compatible SDK version", "alias", alias, "range", iv)
		}
	}
	if err := r.store(cfg).Save(ctx, versions); err != nil {
		return nil, fmt.Errorf("save versions: %w", err)
	}
	r.Logger.Debug("saved versions", "flows", len(versions))
	return versions, nil
}

// Bundle writes a bundle for every flow, records their hashes in
// hashes.lock and then saves versions computed from the same graph.
func (r *Runner) Bundle(ctx context.Context, cfg *config.Config) (*BundleResult, error) {
	start := time.Now()
	entries := cfg.FlowPaths()
	table, err := r.LoadTable(cfg)
	if err != nil {
		return nil, err
	}
	hr := newHashingResources(r.resources(cfg))
	res, err := r.resolve(ctx, cfg, entries, table, hr)
	if err != nil {
		return nil, err
	}
	r.storeGraph(ctx, r.graphKey(cfg, entries, table), res.Graph, hr.snapshot())

	if err := os.MkdirAll(cfg.OutputDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	b := bundle.New(r.resources(cfg), res.Table, r.Logger)
	out := &BundleResult{Bundles: map[string]string{}}
	var written []string
	for _, ref := range cfg.Flows() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := b.Bundle(res.Graph, ref)
		if err != nil {
			return nil, err
		}
		path := cfg.BundlePath(ref.Flow.Alias)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write bundle: %w", err)
		}
		out.Bundles[ref.Flow.Alias] = path
		written = append(written, path)
		r.Logger.Info("bundled flow", "platform", ref.Platform.Name, "alias", ref.Flow.Alias, "path", path)
	}

	hashes, err := lockfile.HashFiles(written)
	if err != nil {
		return nil, err
	}
	out.Hashes = relativeHashes(cfg.Dir(), hashes)
	if err := lockfile.WriteHashes(cfg.LockPath(lockfile.HashesFile), out.Hashes); err != nil {
		return nil, err
	}

	if out.Versions, err = r.saveVersions(ctx, cfg, res.Versions()); err != nil {
		return nil, err
	}
	out.Elapsed = time.Since(start)
	r.Logger.Info("bundled all flows", "flows", len(out.Bundles), "duration", out.Elapsed)
	return out, nil
}

// relativeHashes rewrites absolute bundle paths relative to dir so the lock
// file does not depend on where the project is checked out.
func relativeHashes(dir string, h lockfile.Hashes) lockfile.Hashes {
	out := make(lockfile.Hashes, len(h))
	for p, sum := range h {
		if rel, err := filepath.Rel(dir, p); err == nil {
			p = rel
		}
		out[filepath.ToSlash(p)] = sum
	}
	return out
}

// Render draws the resolved graph. SVG output is cached by the hash of its
// DOT source.
func (r *Runner) Render(ctx context.Context, res *Resolution, format render.Format, opts render.Options) ([]byte, error) {
	switch format {
	case render.FormatJSON:
		return render.ToJSON(res.Graph)
	case render.FormatDOT:
		return []byte(render.ToDOT(res.Graph, opts)), nil
	case render.FormatSVG:
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported graph format %q", format)
	}

	dot := render.ToDOT(res.Graph, opts)
	key := r.Keyer.RenderKey(cache.Hash([]byte(dot)), string(format))
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		r.Logger.Debug("render cache hit", "format", format)
		return data, nil
	}

	svg, err := render.RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	if err := r.Cache.Set(ctx, key, svg, cache.TTLRender); err != nil {
		r.Logger.Warn("cache write failed", "error", err)
	}
	return svg, nil
}

// Close releases the cache and the lock store.
func (r *Runner) Close() error {
	var firstErr error
	if r.Store != nil {
		firstErr = r.Store.Close()
	}
	if err := r.Cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
