// Package analysis runs the per-module passes of the SDK compatibility
// engine over a parsed Lua chunk.
//
// Two passes exist:
//
//   - [Collector] finds require("...") calls and resolves each literal to a
//     canonical module path.
//   - [Resolver] computes a module's own [sdk.Interval] from the gated
//     functions it calls, tracking lexical scopes and local bindings so that
//     guarded calls such as pcall(gated) and probe conditionals such as
//
//     if get_sdk_version() >= 20 then new_api() else old_api() end
//
//     are measured the way they execute at runtime.
//
// Neither pass mutates the tree. The resolver reports the conditionals it
// neutralized as [Rewrite] instructions; [Result.Apply] builds a new tree
// with those conditionals replaced by "if true then end", sharing every
// untouched subtree with the input.
package analysis
