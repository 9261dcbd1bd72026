package bundle

import (
	"strconv"
	"strings"
)

// quote renders s as a double-quoted Lua 5.1 string literal. Bytes outside
// printable ASCII are written as decimal escapes, which every Lua dialect
// accepts.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x7f {
				b.WriteByte('\\')
				// Pad to three digits so a following digit is not absorbed.
				d := strconv.Itoa(int(c))
				b.WriteString(strings.Repeat("0", 3-len(d)) + d)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
