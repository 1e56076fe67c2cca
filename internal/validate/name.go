package validate

import (
	"strings"
	"unicode"
)

const (
	nameMinLen = 2
	nameMaxLen = 50
)

// nameDenyTokens are whole-word tokens that mark throwaway input.
var nameDenyTokens = map[string]bool{
	"test":  true,
	"admin": true,
	"bot":   true,
	"spam":  true,
	"fake":  true,
}

// keyboardRuns are row fragments typed by mashing; matched as
// substrings of the lowercased input.
var keyboardRuns = []string{
	"qwert", "werty", "asdf", "sdfg", "zxcv", "xcvb",
	"йцуке", "цукен", "фыва", "ывап", "ячсм",
}

// Name validates a personal name: 2-50 runes of Unicode letters,
// spaces and hyphens. Rejects digits, deny-listed tokens, keyboard
// mash, long repeated-rune runs, and single-case vowel-free strings.
// Normalizes interior whitespace to single spaces.
func Name(input string) Result {
	trimmed := strings.TrimSpace(input)
	normalized := strings.Join(strings.Fields(trimmed), " ")

	runes := []rune(normalized)
	if len(runes) < nameMinLen {
		return fail(ReasonTooShort)
	}
	if len(runes) > nameMaxLen {
		return fail(ReasonTooLong)
	}

	for _, r := range runes {
		if unicode.IsDigit(r) {
			return fail(ReasonBadCharacters)
		}
		if !unicode.IsLetter(r) && r != ' ' && r != '-' {
			return fail(ReasonBadCharacters)
		}
	}

	lower := strings.ToLower(normalized)
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool { return r == ' ' || r == '-' }) {
		if nameDenyTokens[word] {
			return fail(ReasonDenied)
		}
	}
	for _, run := range keyboardRuns {
		if strings.Contains(lower, run) {
			return fail(ReasonDenied)
		}
	}
	if longestRun(runes) >= 4 {
		return fail(ReasonDenied)
	}
	if singleCaseNoStructure(normalized) {
		return fail(ReasonDenied)
	}

	return ok(normalized)
}

// longestRun returns the length of the longest run of one repeated
// rune, case-insensitively.
func longestRun(runes []rune) int {
	longest, current := 0, 0
	var prev rune
	for i, r := range runes {
		r = unicode.ToLower(r)
		if i > 0 && r == prev {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
		prev = r
	}
	return longest
}

var nameVowels = map[rune]bool{
	'a': true, 'e': true, 'i': true, 'o': true, 'u': true, 'y': true,
	'а': true, 'е': true, 'є': true, 'и': true, 'і': true, 'ї': true,
	'о': true, 'у': true, 'ю': true, 'я': true, 'э': true, 'ы': true, 'ё': true,
}

// singleCaseNoStructure flags letter soup: a single word, all one
// case, with no vowel anywhere. Real names in the supported scripts
// carry at least one vowel.
func singleCaseNoStructure(s string) bool {
	if strings.ContainsAny(s, " -") {
		return false
	}
	if s != strings.ToLower(s) && s != strings.ToUpper(s) {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if nameVowels[r] {
			return false
		}
	}
	return true
}
