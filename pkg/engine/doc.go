// Package engine computes the SDK compatibility interval of every flow.
//
// # Overview
//
// Starting from a set of entry-point files, the engine discovers every
// module reachable through require calls, computes each module's own
// interval with [analysis.Resolver], and folds intervals along the import
// graph so each entry point ends up with the requirement of everything it
// transitively loads.
//
// # State Machine
//
// Each module moves through three states, strictly forward:
//
//	unvisited → parsing → resolved
//
// Leaving unvisited reads and parses the file and collects its imports,
// creating new unvisited modules for paths not seen before. Leaving parsing
// runs the version resolver. Edges discovered during a pass are added after
// the pass ends, and every pass starts from a fresh topological order, so a
// cycle is reported as soon as it closes.
//
// Final intervals exist only on the frozen [ResolvedGraph], which can be
// built only once every module is resolved and the graph is acyclic.
//
// # Usage
//
//	eng, err := engine.New(engine.Options{Table: table, Resources: res})
//	graph, err := eng.Compute(ctx, []string{"flows/main.lua"})
//	for path, iv := range graph.Versions() {
//	    fmt.Println(path, iv)
//	}
//
// # Errors
//
// Unreadable or unparsable files abort with FILE_NOT_FOUND or
// PARSE_FAILURE, unresolvable imports with UNRESOLVABLE_IMPORT (every failure
// in the module joined into one error), and cycles with CYCLIC_DEPENDENCY
// wrapping a [*dag.CycleError]. No partial result is returned.
package engine
