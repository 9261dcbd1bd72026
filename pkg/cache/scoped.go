package cache

// ScopedKeyer prefixes every key of an inner Keyer.
//
// Server replicas that share one Redis instance but serve different
// projects use a scope per project:
//
//	k := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "project:shop:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with prefix. A nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) FlowKey(alias, bundleHash string) string {
	return k.prefix + k.inner.FlowKey(alias, bundleHash)
}

func (k *ScopedKeyer) GraphKey(entries []string, tableHash string) string {
	return k.prefix + k.inner.GraphKey(entries, tableHash)
}

func (k *ScopedKeyer) RenderKey(graphHash, format string) string {
	return k.prefix + k.inner.RenderKey(graphHash, format)
}
