package classfile

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// encodeMUTF8 converts a Go string to the JVM's modified UTF-8: NUL is
// written as 0xC0 0x80 and supplementary characters as surrogate pairs.
func encodeMUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
		case r < 0x10000:
			out = append(out, 0xE0|byte(r>>12), 0x80|byte((r>>6)&0x3F), 0x80|byte(r&0x3F))
		default:
			hi, lo := utf16.EncodeRune(r)
			out = appendMUTF8Unit(out, hi)
			out = appendMUTF8Unit(out, lo)
		}
	}
	return out
}

func appendMUTF8Unit(out []byte, u rune) []byte {
	return append(out, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
}

// decodeMUTF8 is lenient: malformed sequences decode to U+FFFD rather than
// failing, because names are only compared, never re-encoded from the result.
func decodeMUTF8(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 || c == 0 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	var sb strings.Builder
	var pending rune = -1
	flush := func() {
		if pending >= 0 {
			sb.WriteRune(utf8.RuneError)
			pending = -1
		}
	}
	for i := 0; i < len(b); {
		c := b[i]
		var u rune
		switch {
		case c < 0x80:
			u = rune(c)
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			u = rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			u = rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			i += 3
		default:
			flush()
			sb.WriteRune(utf8.RuneError)
			i++
			continue
		}
		switch {
		case utf16.IsSurrogate(u) && u < 0xDC00:
			flush()
			pending = u
		case utf16.IsSurrogate(u):
			if pending >= 0 {
				sb.WriteRune(utf16.DecodeRune(pending, u))
				pending = -1
			} else {
				sb.WriteRune(utf8.RuneError)
			}
		default:
			flush()
			sb.WriteRune(u)
		}
	}
	flush()
	return sb.String()
}
