package caserec

import "github.com/nyaruka/phonenumbers"

// DefaultRegion is the region used to interpret phone numbers entered
// without a country prefix.
const DefaultRegion = "US"

// ValidPhone reports whether s parses as a valid number under the default
// region.
func ValidPhone(s string) bool {
	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// NormalizePhone converts a phone number to E.164 when it parses as valid
// under the default region. Invalid or unparseable input is returned
// verbatim so users can still fix it by hand. Normalizing an already
// canonical number returns it unchanged.
func NormalizePhone(s string) string {
	if s == "" {
		return s
	}
	num, err := phonenumbers.Parse(s, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return s
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
