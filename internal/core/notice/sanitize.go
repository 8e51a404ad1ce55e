package notice

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Sanitize drops bytes that must not reach the store: NUL, ASCII controls
// other than \n \r \t, DEL, C1 controls and invalid UTF-8. Clean input is
// returned as is.
func Sanitize(s string) string {
	n := len(s)
	i := 0
	for i < n {
		b := s[i]
		if b < 0x80 {
			if (b < 0x20 && b != '\n' && b != '\r' && b != '\t') || b == 0x7F {
				break
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if (r == utf8.RuneError && size == 1) || (r >= 0x80 && r <= 0x9F) {
			break
		}
		i += size
	}
	if i == n {
		return s
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(s[:i])
	for i < n {
		c := s[i]
		if c < 0x80 {
			if (c >= 0x20 || c == '\n' || c == '\r' || c == '\t') && c != 0x7F {
				b.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		if r < 0x80 || r > 0x9F {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// cleanText sanitizes and composes (NFC) a free-text field
func cleanText(s string) string {
	return norm.NFC.String(Sanitize(s))
}
