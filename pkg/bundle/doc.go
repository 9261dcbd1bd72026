// Package bundle concatenates a flow and every module it requires into one
// self-contained Lua script.
//
// The output has three parts:
//
//  1. Flow metadata injected as locals (FLOW_NAME, FLOW_ALIAS,
//     PLATFORM_NAME, PLATFORM_DESCRIPTION, and when configured
//     MIN_SDK_VERSION and RETRIEVES).
//  2. A __BUNDLE_MODULES table holding one loader function per module. Each
//     loader shadows the require function with a local that maps the
//     literals used by that module to canonical paths, so relative requires
//     keep working after bundling.
//  3. A final call that runs the entry module and returns its result.
//
// Module discovery is not repeated here: the bundler walks the closure of
// the entry point in an [engine.ResolvedGraph]. Module sources are copied
// verbatim; the neutralized trees the engine produces are for analysis only.
package bundle
