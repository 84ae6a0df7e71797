// Package phonenumber decides whether two phone numbers typed in arbitrary
// human formats dial the same party, and builds reversed dial keys for
// suffix lookups. Every function is pure and safe for concurrent use.
package phonenumber

// Wild is the wildcard digit some SIM phonebooks store in place of a digit.
const Wild = 'N'

// MinMatch is the length of the reversed key stored alongside numbers for
// indexed suffix lookups.
const MinMatch = 7

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// isDialable reports whether c may be sent to the network as part of a dial
// string.
func isDialable(c byte) bool {
	return isDigit(c) || c == '*' || c == '#' || c == '+' || c == Wild
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// isSeparator reports whether c is formatting noise: neither dialable nor a
// vanity letter.
func isSeparator(c byte) bool {
	return !isDialable(c) && !isLetter(c)
}

// isPause reports whether c is a pause or wait marker. Everything after one
// is a DTMF sequence, not part of the number.
func isPause(c byte) bool {
	return c == ',' || c == ';'
}

// dialPart returns s up to its first pause or wait marker.
func dialPart(s string) string {
	for i := 0; i < len(s); i++ {
		if isPause(s[i]) {
			return s[:i]
		}
	}
	return s
}

// StrippedReversedInto writes the dialable characters of s into dst in
// reverse order and returns how many were written. Scanning starts at the end
// of the dial part of s, so when dst is too small the characters nearest the
// end of the number are the ones kept. Only the last '+' of s is copied.
// It never writes past len(dst).
func StrippedReversedInto(dst []byte, s string) int {
	s = dialPart(s)
	n := 0
	seenPlus := false
	for i := len(s) - 1; i >= 0 && n < len(dst); i-- {
		c := s[i]
		if !isDialable(c) {
			continue
		}
		if c == '+' {
			if seenPlus {
				continue
			}
			seenPlus = true
		}
		dst[n] = c
		n++
	}
	return n
}

// StrippedReversed is StrippedReversedInto with a freshly allocated buffer of
// the given capacity. A capacity of zero or less yields "".
func StrippedReversed(s string, capacity int) string {
	if capacity <= 0 {
		return ""
	}
	buf := make([]byte, min(capacity, len(s)))
	n := StrippedReversedInto(buf, s)
	return string(buf[:n])
}

// MinMatchKey returns the reversed key used to index s for suffix lookups.
func MinMatchKey(s string) string {
	var buf [MinMatch]byte
	n := StrippedReversedInto(buf[:], s)
	return string(buf[:n])
}

// IndexKey returns the key s is stored and looked up under. It is
// MinMatchKey(s), except when s carries a country code and its national part
// has fewer than MinMatch dialable characters. The key is then that national
// part reversed, and being short it marks s as a candidate for every lookup.
func IndexKey(s string) string {
	s = dialPart(s)
	if _, national, ok := countryCode(s, true); ok {
		var buf [MinMatch]byte
		if n := StrippedReversedInto(buf[:], national); n < MinMatch {
			return string(buf[:n])
		}
	}
	return MinMatchKey(s)
}
