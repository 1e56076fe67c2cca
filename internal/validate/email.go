package validate

import (
	"regexp"
	"strings"
)

const (
	emailMaxLen       = 254
	emailDomainMaxLen = 253
)

// emailPattern is deliberately RFC-light: one @, a dot somewhere in
// the domain, no whitespace. Deliverability is the sink's problem.
var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// disposableDomains are throwaway mail providers we refuse outright.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"yopmail.com":       true,
	"trashmail.com":     true,
	"sharklasers.com":   true,
	"getnada.com":       true,
	"dispostable.com":   true,
}

// localDenySubstrings mark addresses nobody answers.
var localDenySubstrings = []string{
	"test", "spam", "fake", "noreply", "no-reply",
}

// Email validates an address and normalizes it to lower case. The
// deny-lists are checked after lowering, so case games do not help.
func Email(input string) Result {
	normalized := strings.ToLower(strings.TrimSpace(input))

	if len(normalized) > emailMaxLen {
		return fail(ReasonTooLong)
	}
	if !emailPattern.MatchString(normalized) {
		return fail(ReasonBadFormat)
	}

	at := strings.LastIndex(normalized, "@")
	local, dom := normalized[:at], normalized[at+1:]
	if len(dom) > emailDomainMaxLen {
		return fail(ReasonTooLong)
	}
	if disposableDomains[dom] {
		return fail(ReasonDenied)
	}
	for _, sub := range localDenySubstrings {
		if strings.Contains(local, sub) {
			return fail(ReasonDenied)
		}
	}
	if strings.HasPrefix(normalized, "admin@admin") {
		return fail(ReasonDenied)
	}

	return ok(normalized)
}
