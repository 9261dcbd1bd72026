package cache

import (
	"sort"
)

// Keyer builds cache keys for flowc artifacts.
type Keyer interface {
	// FlowKey identifies the served response for a flow alias at a given
	// content fingerprint. A rebundled flow gets a new key.
	FlowKey(alias, bundleHash string) string

	// GraphKey identifies a version computation over a set of entry points
	// under a gate table fingerprint.
	GraphKey(entries []string, tableHash string) string

	// RenderKey identifies a rendered artifact (DOT, SVG) of a graph.
	RenderKey(graphHash, format string) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// FlowKey returns "flow:<alias>:<hash>".
func (DefaultKeyer) FlowKey(alias, bundleHash string) string {
	return "flow:" + alias + ":" + bundleHash
}

// GraphKey hashes the entry set, so the order of entries does not matter.
func (DefaultKeyer) GraphKey(entries []string, tableHash string) string {
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)
	return hashKey("graph", sorted, tableHash)
}

// RenderKey hashes the graph fingerprint together with the output format.
func (DefaultKeyer) RenderKey(graphHash, format string) string {
	return hashKey("render", graphHash, format)
}

var _ Keyer = DefaultKeyer{}
