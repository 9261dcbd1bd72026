// Package paths normalizes module paths lexically.
//
// Module paths are compared as strings throughout flowc, so every path that
// becomes a graph key passes through [Normalize] first. Normalization never
// touches the filesystem: symlinks are not followed and ".." is collapsed
// purely by position.
//
//	paths.Normalize("./flows/../lib//util.lua")            // "lib/util.lua"
//	paths.NormalizeKeepCurrent("./flows/../lib/util.lua")   // "./lib/util.lua"
//	paths.Normalize("../shared/x.lua")                     // "../shared/x.lua"
package paths

import "strings"

const (
	current = "."
	parent  = ".."
)

// Normalize collapses "." and ".." segments and repeated separators, and
// drops a leading "./". The empty path stays empty; a path that collapses to
// nothing becomes ".".
func Normalize(p string) string {
	return normalize(p, false)
}

// NormalizeKeepCurrent is [Normalize] but keeps a single leading "./", which
// marks a require literal as relative to the importing file.
func NormalizeKeepCurrent(p string) string {
	return normalize(p, true)
}

// Join joins dir and rel with "/" and normalizes the result.
func Join(dir, rel string) string {
	if dir == "" || dir == current {
		return Normalize(rel)
	}
	if strings.HasPrefix(rel, "/") {
		return Normalize(rel)
	}
	return Normalize(dir + "/" + rel)
}

// Dir returns all but the last element of a normalized path, or "." when
// there is no directory part.
func Dir(p string) string {
	p = Normalize(p)
	i := strings.LastIndex(p, "/")
	switch {
	case i < 0:
		return current
	case i == 0:
		return "/"
	}
	return p[:i]
}

// IsRelative reports whether a require literal is relative to the importing
// file rather than to the project root.
func IsRelative(literal string) bool {
	return literal == current || literal == parent ||
		strings.HasPrefix(literal, "./") || strings.HasPrefix(literal, "../")
}

func normalize(p string, keepCurrent bool) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	rooted := strings.HasPrefix(p, "/")

	var out []string
	for i, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
		case current:
			if i == 0 && keepCurrent {
				out = append(out, current)
			}
		case parent:
			switch {
			case len(out) == 0:
				if !rooted {
					out = append(out, parent)
				}
			case out[len(out)-1] == current:
				out[len(out)-1] = parent
			case out[len(out)-1] == parent:
				out = append(out, parent)
			default:
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}

	joined := strings.Join(out, "/")
	if rooted {
		return "/" + joined
	}
	if joined == "" {
		return current
	}
	return joined
}
