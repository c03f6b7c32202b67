package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// SanitizePhone formats phone as E.164, reading national numbers in region.
// Input that cannot be parsed is returned trimmed so the e164 rule rejects it.
func SanitizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return phone
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
