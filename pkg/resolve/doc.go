// Package resolve maps require literals to canonical module paths.
//
// A [Locator] decides where a literal points; [PathLocator] implements the
// bundler's "path" mode, trying the literal as written and then with the
// ".luau" and ".lua" extensions and as a directory with an init file.
// [RequireResolver] wraps any locator and turns failures into
// UNRESOLVABLE_IMPORT errors.
//
// File access goes through [Resources] so the same resolution logic runs
// against the filesystem ([OSResources]) or an in-memory tree
// ([MemoryResources]).
//
//	res := resolve.NewMemoryResources(map[string]string{
//	    "flows/main.lua": `local util = require("./lib/util")`,
//	    "flows/lib/util.luau": `return {}`,
//	})
//	r := resolve.NewRequireResolver(resolve.NewPathLocator(res, ""))
//	path, _ := r.Resolve("./lib/util", "flows/main.lua") // "flows/lib/util.luau"
package resolve
