// Package pkg holds the libraries behind the flowc command.
//
// # Overview
//
// flowc bundles Lua flows written against a versioned host SDK and infers
// the range of SDK versions each flow can run on. The packages fall into
// three groups:
//
//  1. Analysis: [sdk], [paths], [resolve], [analysis], [dag], [engine]
//  2. Outputs: [bundle], [lockfile], [render]
//  3. Plumbing: [config], [cache], [pipeline], [server], [session],
//     [observability], [errors], [buildinfo]
//
// # Architecture
//
//	flowc.toml + version_file.json
//	         ↓
//	    [config] + [sdk] (project and gate table)
//	         ↓
//	    [engine] (parse, collect requires, resolve own ranges, propagate)
//	         ↓
//	    [bundle] / [lockfile] / [render]
//	         ↓
//	    bundled/*.bundle.luau, versions.lock, hashes.lock, DOT/SVG/JSON
//
// [pipeline] wires these steps together for the CLI; [server] serves the
// resulting bundles over HTTP.
//
// # Quick Start
//
//	cfg, err := config.Load("flowc.toml")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(nil, nil, logger)
//	defer runner.Close()
//
//	versions, err := runner.Versions(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	for alias, iv := range versions {
//	    fmt.Println(alias, iv) // checkout 16..30
//	}
//
// [sdk]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/sdk
// [paths]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/paths
// [resolve]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/resolve
// [analysis]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/analysis
// [dag]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/dag
// [engine]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/engine
// [bundle]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/bundle
// [lockfile]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/lockfile
// [render]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/render
// [config]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/server
// [session]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/session
// [observability]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/flowc/pkg/buildinfo
package pkg
