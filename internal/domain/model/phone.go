package model

import "strings"

const msisdnPrefix = "254"

// NormalizeMSISDN canonicalizes a payer phone number to the fixed-prefix form
// 2547XXXXXXXX: strip every non-digit, keep the last 9 significant digits and
// prepend the country code. Both "0712345678" and "254712345678" map to the
// same value, and normalizing an already-normalized number is a no-op.
// Returns "" when fewer than 9 digits remain.
func NormalizeMSISDN(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 9 {
		return ""
	}
	return msisdnPrefix + digits[len(digits)-9:]
}
