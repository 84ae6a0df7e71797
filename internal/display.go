package internal

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// FormatForDisplay renders a stored number in international format for the
// UI, interpreting numbers without a country code in region. Alphanumeric
// senders, short codes and anything the formatter cannot parse are returned
// unchanged. Display formatting never feeds back into matching.
func FormatForDisplay(number, region string) string {
	if number == "" || strings.Contains(number, ",") {
		return number
	}

	parsed, err := phonenumbers.Parse(number, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return number
	}
	return phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL)
}

// knownRegion reports whether region is a CLDR region the formatter has
// metadata for
func knownRegion(region string) bool {
	return phonenumbers.GetCountryCodeForRegion(strings.ToUpper(region)) != 0
}

func applyDisplayAddresses(conversations []Conversation, region string) {
	for i := range conversations {
		conversations[i].DisplayAddress = FormatForDisplay(conversations[i].Address, region)
	}
}
