package phonenumber

import "testing"

var equalCases = []struct {
	a, b string
	want bool
}{
	{"", "", true},
	{"999", "999", true},
	{"119", "119", true},

	{"123456789", "923456789", false},
	{"123456789", "123456781", false},
	{"123456789", "1234567890", false},
	{"123456789", "0123456789", false},

	// formatting only
	{"650-253-0000", "6502530000", true},
	{"650-253-0000", "650 253 0000", true},
	{"650 253 0000", "6502530000", true},

	// NANP trunk prefix
	{"650-253-0000", "1-650-253-0000", true},
	{"650-253-0000", "   1-650-253-0000", true},
	{"650-253-0000", "11-650-253-0000", false},
	{"650-253-0000", "0-650-253-0000", false},
	{"555-4141", "+1-700-555-4141", false},

	{"+1 650-253-0000", "6502530000", true},
	{"001 650-253-0000", "6502530000", true},
	{"0111 650-253-0000", "6502530000", true},

	{"+19012345678", "+819012345678", false},

	// Russia, France, Netherlands trunk digits
	{"+79161234567", "89161234567", true},
	{"+33123456789", "0123456789", true},
	{"+31771234567", "0771234567", true},
	{"+81 234567", "0234567", true},
	{"+44 (0)20 7946 0000", "20 7946 0000", true},
	{"+36 1 234 5678", "06 1 234 5678", true},
	{"+36 1 234 5678", "0 1 234 5678", false},

	// the leftover digit must be that country's trunk prefix
	{"+15551234567", "95551234567", false},
	{"+79161234567", "99161234567", false},
	{"+79161234567", "09161234567", false},
	{"+4930123456", "830123456", false},
	{"+3491234567", "091234567", false},

	// Japan
	{"090-1234-5678", "+819012345678", true},
	{"090(1234)5678", "+819012345678", true},
	{"090-1234-5678", "+81-90-1234-5678", true},
	{"090-1234-5678", "90-1234-5678", false},
	{"090-1234-5678", "080-1234-5678", false},
	{"090-1234-5678", "190-1234-5678", false},
	{"090-1234-5678", "890-1234-5678", false},
	{"+81-90-1234-5678", "+81-090-1234-5678", false},
	{"080-1234-5678", "+819012345678", false},

	{"+593(800)123-1234", "8001231234", true},
	{"008001231234", "8001231234", false},

	// broken caller ID from Thailand
	{"+66811234567", "166811234567", true},
	// NANP 1 + area code 661, not Thailand
	{"16610001234", "6610001234", true},

	{"650-000-3456", "16500003456", true},
	{"011 1 7005554141", "+17005554141", true},
	{"011 11 7005554141", "+17005554141", false},
	{"+44 207 792 3490", "00 207 792 3490", false},

	// alphanumeric senders and vanity numbers
	{"abcd", "bcde", false},
	{"abcd", "abcd", true},
	{"1-800-flowers", "800-flowers", true},
	{"1-800-flowers", "1-800-abcdefg", false},
	{"1-800-flowers", "1-800-FLOWERS", false},
	{"1-800-flowers", "1-800-356-9377", false},
	{"abc1-650-253-0000", "650-253-0000", false},
	{"abc+1 650-253-0000", "6502530000", false},
	{"x 650-253-0000", "+1 650-253-0000", false},
	{"abc", "abc", true},

	// DTMF after a pause is not part of the number
	{"650-253-0000;1234", "6502530000", true},
	{"650-253-0000,1", "1-650-253-0000,2", true},

	// empty against anything
	{"", "650-253-0000", false},
	{"", "1", false},

	// common tail too short to mean anything
	{"+1 22", "22", false},
	{"12", "2", false},
	{"911", "1911", true},
}

func TestEqual(t *testing.T) {
	for _, tc := range equalCases {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Errorf("Equal(%q, %q) = %v, expected %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestEqualIsSymmetric(t *testing.T) {
	var inputs []string
	for _, tc := range equalCases {
		inputs = append(inputs, tc.a, tc.b)
	}
	for _, a := range inputs {
		for _, b := range inputs {
			if Equal(a, b) != Equal(b, a) {
				t.Errorf("Equal(%q, %q) = %v but Equal(%q, %q) = %v", a, b, Equal(a, b), b, a, Equal(b, a))
			}
		}
	}
}

func TestEqualIsReflexive(t *testing.T) {
	for _, tc := range equalCases {
		for _, s := range []string{tc.a, tc.b} {
			if !Equal(s, s) {
				t.Errorf("Equal(%q, %q) = false, expected true", s, s)
			}
		}
	}
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		in     string
		quirks bool
		code   int
		rest   string
		ok     bool
	}{
		{"+1 650", true, 1, " 650", true},
		{"0111 650", true, 1, " 650", true},
		{"00 44 20", true, 44, " 20", true},
		{"+593(800)", true, 593, "(800)", true},
		{"+20 2 123", true, 20, " 2 123", true},
		{"166811234567", true, 66, "811234567", true},
		{"166811234567", false, 0, "166811234567", false},
		{"6502530000", true, 0, "6502530000", false},
		{"0123456789", true, 0, "0123456789", false},
		{"+0123", true, 0, "+0123", false},
		{"+", true, 0, "+", false},
		{"abc+1 650", true, 0, "abc+1 650", false},
		{"+370 5 123", true, 370, " 5 123", true},
	}

	for _, tc := range tests {
		code, rest, ok := countryCode(tc.in, tc.quirks)
		if code != tc.code || rest != tc.rest || ok != tc.ok {
			t.Errorf("countryCode(%q, %v) = (%d, %q, %v), expected (%d, %q, %v)",
				tc.in, tc.quirks, code, rest, ok, tc.code, tc.rest, tc.ok)
		}
	}
}
