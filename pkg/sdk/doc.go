// Package sdk models host-SDK compatibility as version intervals.
//
// # Intervals
//
// An [Interval] reads "compatible from Min up to and including Max", where an
// absent Max means unbounded above. Intervals are immutable comparable
// values; they are combined only through two operations:
//
//   - [Intersect]: both constraints must hold (sequential code, a module and
//     its dependencies).
//   - [Union]: exactly one of two mutually exclusive branches runs, so the
//     looser guarantee applies.
//
// Both operations are commutative, associative and idempotent. [Any] is the
// identity element of [Intersect].
//
// # Gate Tables
//
// A [GateTable] maps fully-qualified function names to the interval that
// calling them implies, names the probe function whose result stands for the
// running SDK version, and supplies the default interval of a module that
// calls no gated function. Tables are loaded from JSON or TOML with
// [LoadGateTable]:
//
//	{
//	  "defaultVersion": 10,
//	  "functionMappings": {
//	    "http.fetch": {"minSdkVersion": 20},
//	    "legacy_fetch": {"minSdkVersion": 16, "maxSdkVersion": 19}
//	  },
//	  "sdkVersionFunction": "get_sdk_version"
//	}
package sdk
