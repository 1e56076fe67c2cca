package validate

import (
	"strings"
)

// countryPrefix is the international prefix phones are normalized to.
// Canonical form: prefix + 9 subscriber digits, 13 characters total.
const countryPrefix = "+380"

// Phone validates a phone number in international or leading-zero
// national form and normalizes it to the international canonical form.
// Spaces, hyphens and parentheses are stripped before matching, so the
// normalizer is a fixed point on its own output.
func Phone(input string) Result {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	switch {
	case strings.HasPrefix(stripped, countryPrefix):
		if len(stripped) != len(countryPrefix)+9 || !allDigits(stripped[1:]) {
			return fail(ReasonBadFormat)
		}
		return ok(stripped)
	case strings.HasPrefix(stripped, countryPrefix[1:]):
		// International form without the plus.
		if len(stripped) != len(countryPrefix)+8 || !allDigits(stripped) {
			return fail(ReasonBadFormat)
		}
		return ok("+" + stripped)
	case strings.HasPrefix(stripped, "0"):
		// National form: leading zero plus 9 subscriber digits.
		if len(stripped) != 10 || !allDigits(stripped) {
			return fail(ReasonBadFormat)
		}
		return ok(countryPrefix + stripped[1:])
	default:
		return fail(ReasonBadFormat)
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
