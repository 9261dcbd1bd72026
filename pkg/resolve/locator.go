package resolve

import (
	"fmt"
	"path"
	"strings"

	"github.com/matzehuels/flowc/pkg/errors"
	"github.com/matzehuels/flowc/pkg/paths"
)

// Locator turns a require literal, seen in the module at from, into the
// canonical path of the module it names.
type Locator interface {
	Locate(literal, from string) (string, error)
}

// LocatorFunc adapts a function to [Locator].
type LocatorFunc func(literal, from string) (string, error)

// Locate calls f.
func (f LocatorFunc) Locate(literal, from string) (string, error) { return f(literal, from) }

// Extensions tried, in order, when a literal does not exist as written.
var Extensions = []string{".luau", ".lua"}

// PathLocator resolves literals as file paths. Literals starting with "./"
// or "../" are relative to the importing module's directory; all others are
// relative to Root.
type PathLocator struct {
	Resources Resources
	Root      string
}

// NewPathLocator creates a locator over res rooted at root.
func NewPathLocator(res Resources, root string) *PathLocator {
	return &PathLocator{Resources: res, Root: root}
}

// Candidates lists the paths tried for literal, in order.
func (l *PathLocator) Candidates(literal, from string) []string {
	var base string
	if paths.IsRelative(literal) {
		base = paths.Join(paths.Dir(from), literal)
	} else {
		base = paths.Join(l.Root, literal)
	}

	var out []string
	if path.Ext(base) != "" {
		out = append(out, base)
	}
	for _, ext := range Extensions {
		out = append(out, base+ext)
	}
	for _, ext := range Extensions {
		out = append(out, base+"/init"+ext)
	}
	return out
}

// Locate implements [Locator].
func (l *PathLocator) Locate(literal, from string) (string, error) {
	if strings.TrimSpace(literal) == "" {
		return "", fmt.Errorf("empty require path")
	}
	tried := l.Candidates(literal, from)
	for _, c := range tried {
		if l.Resources.Exists(c) {
			return paths.Normalize(c), nil
		}
	}
	return "", fmt.Errorf("no file found (tried %s)", strings.Join(tried, ", "))
}

// RequireResolver resolves require literals through a [Locator].
type RequireResolver struct {
	locator Locator
}

// NewRequireResolver wraps locator.
func NewRequireResolver(locator Locator) *RequireResolver {
	return &RequireResolver{locator: locator}
}

// Resolve returns the canonical path for literal as required from the
// module at from. Failures carry code UNRESOLVABLE_IMPORT.
func (r *RequireResolver) Resolve(literal, from string) (string, error) {
	p, err := r.locator.Locate(literal, from)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnresolvableImport, err, "require(%q) in %s", literal, from)
	}
	return p, nil
}
