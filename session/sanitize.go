package session

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sanitize makes backend-controlled text safe to print on a terminal. Control
// characters (ESC, BEL, C1 codes, ...) are rendered as visible escapes so the
// text cannot drive the terminal; newlines and tabs are kept.
func Sanitize(s string) string {
	if !needsSanitize(s) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&sb, `\x%02x`, s[i])
		case r == '\n' || r == '\t':
			sb.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r >= 0x80 && r < 0xa0:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			sb.WriteRune(r)
		}
		i += size
	}
	return sb.String()
}

// needsSanitize is the ASCII fast path; any non-ASCII byte takes the
// rune-level route.
func needsSanitize(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if (b < 0x20 && b != '\n' && b != '\t') || b >= 0x7f {
			return true
		}
	}
	return false
}
