package request

import "unicode/utf8"

// decodeLossy returns b with every ill-formed sequence replaced by U+FFFD.
// a truncated but otherwise valid multi-byte prefix counts as one
// sequence; any other bad byte gets a replacement of its own.
func decodeLossy(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	out := make([]byte, 0, len(b)+8)
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
			i += invalidPrefixLen(b[i:])
			continue
		}
		out = append(out, b[i:i+size]...)
		i += size
	}
	return out
}

// invalidPrefixLen reports how many bytes at the start of b make up one
// ill-formed sequence: the lead byte plus the continuation bytes that were
// still acceptable before decoding broke off.
func invalidPrefixLen(b []byte) int {
	lead := b[0]
	var need int
	lo, hi := byte(0x80), byte(0xBF) // range for the first continuation byte
	switch {
	case lead >= 0xC2 && lead <= 0xDF:
		need = 1
	case lead == 0xE0:
		need, lo = 2, 0xA0
	case lead == 0xED:
		need, hi = 2, 0x9F
	case lead >= 0xE1 && lead <= 0xEF:
		need = 2
	case lead == 0xF0:
		need, lo = 3, 0x90
	case lead == 0xF4:
		need, hi = 3, 0x8F
	case lead >= 0xF1 && lead <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) {
		c := b[n]
		if c < lo || c > hi {
			break
		}
		lo, hi = 0x80, 0xBF
		n++
	}
	return n
}
