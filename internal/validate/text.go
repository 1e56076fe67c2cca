package validate

import (
	"regexp"
	"strings"
)

// textDefaultMaxLen bounds free-text fields that set no explicit max.
const textDefaultMaxLen = 1000

var (
	urlPattern      = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
	currencyPattern = regexp.MustCompile(`(?i)(?:[$€₴£]\s?\d|\d\s?(?:usd|eur|uah|грн|\$|€|₴))`)
	markupPattern   = regexp.MustCompile(`(?i)(?:<\s*script|javascript:|onerror\s*=|onload\s*=|<\s*iframe)`)
)

// promoKeywords are the usual unsolicited-offer vocabulary.
var promoKeywords = []string{
	"viagra", "casino", "lottery", "jackpot", "bitcoin",
	"crypto", "forex", "click here", "earn money", "free money",
	"work from home", "limited offer", "guaranteed income",
}

// Text validates a free-text answer against length bounds and spam
// heuristics. minLen of 0 means no lower bound beyond non-empty;
// maxLen of 0 applies the default bound.
func Text(input string, minLen, maxLen int) Result {
	if maxLen <= 0 {
		maxLen = textDefaultMaxLen
	}

	normalized := strings.TrimSpace(input)
	runes := []rune(normalized)
	if len(runes) == 0 || len(runes) < minLen {
		return fail(ReasonTooShort)
	}
	if len(runes) > maxLen {
		return fail(ReasonTooLong)
	}

	if longestRun(runes) >= 10 {
		return fail(ReasonSpam)
	}
	if len(urlPattern.FindAllStringIndex(normalized, -1)) >= 3 {
		return fail(ReasonSpam)
	}
	if currencyPattern.MatchString(normalized) {
		return fail(ReasonSpam)
	}
	if markupPattern.MatchString(normalized) {
		return fail(ReasonSpam)
	}
	lower := strings.ToLower(normalized)
	for _, kw := range promoKeywords {
		if strings.Contains(lower, kw) {
			return fail(ReasonSpam)
		}
	}

	return ok(normalized)
}
