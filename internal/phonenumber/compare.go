package phonenumber

import "strings"

// minMatchDigits is the shortest common tail that lets two differently
// written numbers compare equal.
const minMatchDigits = 3

// exitCodes are the sequences dialed before a country calling code.
var exitCodes = []string{"+", "00", "011"}

// dialRule is how a country's numbers are written for domestic dialing.
type dialRule struct {
	// trunk is dialed in front of the national number from inside the
	// country. Empty when the country has no trunk prefix.
	trunk string
}

// callingCodes holds the one and two digit country calling codes, and the
// three digit ones with a known trunk prefix. Any other three digit code is
// accepted with no trunk prefix.
var callingCodes = map[int]dialRule{
	1: {"1"}, 7: {"8"},
	20: {"0"}, 27: {"0"},
	30: {}, 31: {"0"}, 32: {"0"}, 33: {"0"}, 34: {}, 36: {"06"}, 39: {},
	40: {"0"}, 41: {"0"}, 43: {"0"}, 44: {"0"}, 45: {}, 46: {"0"}, 47: {}, 48: {}, 49: {"0"},
	51: {"0"}, 52: {}, 53: {"0"}, 54: {"0"}, 55: {"0"}, 56: {}, 57: {}, 58: {"0"},
	60: {"0"}, 61: {"0"}, 62: {"0"}, 63: {"0"}, 64: {"0"}, 65: {}, 66: {"0"},
	81: {"0"}, 82: {"0"}, 84: {"0"}, 86: {"0"},
	90: {"0"}, 91: {"0"}, 92: {"0"}, 93: {"0"}, 94: {"0"}, 95: {"0"}, 98: {"0"},

	212: {"0"}, 213: {"0"}, 234: {"0"}, 254: {"0"}, 255: {"0"}, 256: {"0"},
	353: {"0"}, 358: {"0"}, 359: {"0"}, 370: {"8"}, 380: {"0"}, 385: {"0"}, 386: {"0"},
	421: {"0"}, 593: {"0"}, 880: {"0"}, 886: {"0"}, 966: {"0"}, 971: {"0"}, 972: {"0"},
}

// callerIDQuirks maps digit runs that broken caller ID puts in front of an
// international number, with no exit code, to the calling code they carry.
var callerIDQuirks = map[string]int{
	"166": 66, // Thailand, as delivered to US subscribers
}

type prefixKind int

const (
	prefixNone prefixKind = iota
	prefixPartial
	prefixExit
	prefixQuirk
)

// classifyPrefix tells whether p is an exit code, a caller ID quirk, the start
// of one, or neither.
func classifyPrefix(p string, quirks bool) prefixKind {
	kind := prefixNone
	for _, e := range exitCodes {
		if p == e {
			return prefixExit
		}
		if strings.HasPrefix(e, p) {
			kind = prefixPartial
		}
	}
	if !quirks {
		return kind
	}
	for q := range callerIDQuirks {
		if p == q {
			return prefixQuirk
		}
		if strings.HasPrefix(q, p) {
			kind = prefixPartial
		}
	}
	return kind
}

// countryCode reads a leading exit code and country calling code from s,
// ignoring separators. It returns the code and whatever follows it.
func countryCode(s string, quirks bool) (int, string, bool) {
	var prefix []byte
	inCode := false
	code := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isLetter(c) {
			return 0, s, false
		}
		if !isDialable(c) {
			continue
		}
		if !inCode {
			prefix = append(prefix, c)
			switch classifyPrefix(string(prefix), quirks) {
			case prefixExit:
				inCode = true
			case prefixQuirk:
				return callerIDQuirks[string(prefix)], s[i+1:], true
			case prefixNone:
				return 0, s, false
			}
			continue
		}
		if !isDigit(c) || (code == 0 && c == '0') {
			return 0, s, false
		}
		code = code*10 + int(c-'0')
		if _, known := callingCodes[code]; known || code >= 100 {
			return code, s[i+1:], true
		}
	}
	return 0, s, false
}

// matchTails compares a and b from their last characters, skipping
// separators, until one of them runs out. It returns the unmatched heads and
// the number of characters matched.
func matchTails(a, b string) (headA, headB string, matched int, ok bool) {
	i, j := len(a)-1, len(b)-1
	for i >= 0 && j >= 0 {
		sa, sb := isSeparator(a[i]), isSeparator(b[j])
		if sa || sb {
			if sa {
				i--
			}
			if sb {
				j--
			}
			continue
		}
		if a[i] != b[j] {
			return "", "", matched, false
		}
		i--
		j--
		matched++
	}
	return a[:i+1], b[:j+1], matched, true
}

// ignorableHead reports whether head, what is left of a number after its tail
// matched, can be discarded under rule: nothing at all, or exactly the trunk
// prefix.
func ignorableHead(head string, rule dialRule) bool {
	var digits []byte
	for i := 0; i < len(head); i++ {
		c := head[i]
		switch {
		case isDigit(c):
			digits = append(digits, c)
		case isDialable(c), isLetter(c):
			return false
		}
	}
	return len(digits) == 0 || string(digits) == rule.trunk
}

func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			return true
		}
	}
	return false
}

// sameRun reports whether a and b hold the same characters once separators
// are removed.
func sameRun(a, b string) bool {
	i, j := 0, 0
	for {
		for i < len(a) && isSeparator(a[i]) {
			i++
		}
		for j < len(b) && isSeparator(b[j]) {
			j++
		}
		if i == len(a) || j == len(b) {
			return i == len(a) && j == len(b)
		}
		if a[i] != b[j] {
			return false
		}
		i++
		j++
	}
}

// Equal reports whether a and b denote the same dialable number.
//
// Numbers are matched from their last digit. What is left over in front must
// be explained by dialing conventions: an exit code and country calling code
// on one side, that country's trunk prefix for the other, or NANP's optional
// leading 1. Japan-style trunk zeros are never optional between two national
// numbers. Vanity letters are compared as letters, and a leftover that holds
// letters is never ignored. An input without any digit, such as an
// alphanumeric SMS sender, only equals an identical string. Anything after a
// pause or wait marker is ignored.
func Equal(a, b string) bool {
	if !hasDigit(a) || !hasDigit(b) {
		return a == b
	}
	return equal(dialPart(a), dialPart(b), true)
}

func equal(a, b string, quirks bool) bool {
	ccA, restA, okA := countryCode(a, quirks)
	ccB, restB, okB := countryCode(b, quirks)
	if okA && okB && ccA != ccB {
		return false
	}

	headA, headB, matched, ok := matchTails(restA, restB)
	if !ok {
		return false
	}

	if okA != okB {
		rule := callingCodes[ccA]
		if okB {
			rule = callingCodes[ccB]
		}
		if !ignorableHead(headA, rule) || !ignorableHead(headB, rule) {
			// A quirk may have eaten digits that belong to the number itself,
			// e.g. "16610001234" is NANP 1 + 661 0001234.
			if quirks {
				return equal(a, b, false)
			}
			return false
		}
	} else {
		// Only NANP's leading 1 may be dropped, and only once. Between two
		// numbers that both carry a country code nothing may be dropped.
		optionalOne := !(okA && okB)
		for _, head := range [...]string{headA, headB} {
			for i := len(head) - 1; i >= 0; i-- {
				c := head[i]
				if isLetter(c) {
					return false
				}
				if !isDialable(c) {
					continue
				}
				if optionalOne && c == '1' {
					optionalOne = false
					continue
				}
				return false
			}
		}
	}

	return matched >= minMatchDigits || sameRun(a, b)
}
