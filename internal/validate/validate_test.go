package validate

import (
	"strings"
	"testing"

	"github.com/reliefline/intake/internal/domain"
)

func TestNameAccepts(t *testing.T) {
	valid := []string{
		"Anna",
		"Olena Kovalenko",
		"Jean-Pierre",
		"Марія Шевченко",
		"de la Cruz",
	}
	for _, input := range valid {
		res := Name(input)
		if !res.OK {
			t.Errorf("Name(%q) rejected with %s, want accept", input, res.Reason)
		}
	}
}

func TestNameRejects(t *testing.T) {
	cases := []struct {
		input  string
		reason Reason
	}{
		{"A", ReasonTooShort},
		{strings.Repeat("Anna ", 11), ReasonTooLong},
		{"Anna2", ReasonBadCharacters},
		{"Anna_K", ReasonBadCharacters},
		{"test", ReasonDenied},
		{"Admin", ReasonDenied},
		{"spam bot", ReasonDenied},
		{"qwerty", ReasonDenied},
		{"aaaa", ReasonDenied},
		{"Annnna", ReasonDenied},
		{"xkcdfgh", ReasonDenied},
	}
	for _, tc := range cases {
		res := Name(tc.input)
		if res.OK {
			t.Errorf("Name(%q) accepted, want reject", tc.input)
			continue
		}
		if res.Reason != tc.reason {
			t.Errorf("Name(%q) reason = %s, want %s", tc.input, res.Reason, tc.reason)
		}
	}
}

func TestNameNormalizesWhitespace(t *testing.T) {
	res := Name("  Olena   Kovalenko ")
	if !res.OK {
		t.Fatalf("rejected with %s", res.Reason)
	}
	if res.Normalized != "Olena Kovalenko" {
		t.Errorf("Normalized = %q, want %q", res.Normalized, "Olena Kovalenko")
	}
}

func TestPhoneCanonicalForms(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"0501234567", "+380501234567"},
		{"+380501234567", "+380501234567"},
		{"380501234567", "+380501234567"},
		{"050 123 45 67", "+380501234567"},
		{"+38 (050) 123-45-67", "+380501234567"},
	}
	for _, tc := range cases {
		res := Phone(tc.input)
		if !res.OK {
			t.Errorf("Phone(%q) rejected with %s", tc.input, res.Reason)
			continue
		}
		if res.Normalized != tc.want {
			t.Errorf("Phone(%q) = %q, want %q", tc.input, res.Normalized, tc.want)
		}
	}
}

func TestPhoneNormalizeIdempotent(t *testing.T) {
	first := Phone("0501234567")
	if !first.OK {
		t.Fatalf("rejected with %s", first.Reason)
	}
	second := Phone(first.Normalized)
	if !second.OK {
		t.Fatalf("canonical form rejected with %s", second.Reason)
	}
	if second.Normalized != first.Normalized {
		t.Errorf("normalize not idempotent: %q -> %q", first.Normalized, second.Normalized)
	}
}

func TestPhoneRejects(t *testing.T) {
	invalid := []string{
		"",
		"12345",
		"+38050123456",    // one digit short
		"+3805012345678",  // one digit long
		"050123456",       // short national
		"05012345678",     // long national
		"+490501234567",   // wrong country
		"05O1234567",      // letter O
	}
	for _, input := range invalid {
		if res := Phone(input); res.OK {
			t.Errorf("Phone(%q) accepted as %q, want reject", input, res.Normalized)
		}
	}
}

func TestEmailAccepts(t *testing.T) {
	res := Email("Olena.Kovalenko@Example.COM")
	if !res.OK {
		t.Fatalf("rejected with %s", res.Reason)
	}
	if res.Normalized != "olena.kovalenko@example.com" {
		t.Errorf("Normalized = %q", res.Normalized)
	}
}

func TestEmailRejects(t *testing.T) {
	cases := []struct {
		input  string
		reason Reason
	}{
		{"TEST@EXAMPLE.com", ReasonDenied},
		{"spam.account@example.com", ReasonDenied},
		{"noreply@example.com", ReasonDenied},
		{"no-reply@example.com", ReasonDenied},
		{"admin@admin.com", ReasonDenied},
		{"someone@mailinator.com", ReasonDenied},
		{"not-an-email", ReasonBadFormat},
		{"two@@example.com", ReasonBadFormat},
		{strings.Repeat("a", 250) + "@example.com", ReasonTooLong},
	}
	for _, tc := range cases {
		res := Email(tc.input)
		if res.OK {
			t.Errorf("Email(%q) accepted, want reject", tc.input)
			continue
		}
		if res.Reason != tc.reason {
			t.Errorf("Email(%q) reason = %s, want %s", tc.input, res.Reason, tc.reason)
		}
	}
}

func TestTextLengthBounds(t *testing.T) {
	if res := Text("short", 10, 1000); res.OK {
		t.Error("below-minimum text accepted")
	}
	if res := Text(strings.Repeat("a word ", 200), 10, 100); res.OK {
		t.Error("above-maximum text accepted")
	}
	res := Text("The elevator in building 4 has been broken for two weeks.", 10, 1000)
	if !res.OK {
		t.Errorf("reasonable complaint rejected with %s", res.Reason)
	}
}

func TestTextSpamHeuristics(t *testing.T) {
	spam := []string{
		"aaaaaaaaaaaa help",
		"see http://a.example www.b.example http://c.example for details",
		"send me $100 now",
		"pay 500 грн to resolve",
		"<script>alert(1)</script>",
		"best casino bonuses, click here",
	}
	for _, input := range spam {
		res := Text(input, 0, 2000)
		if res.OK {
			t.Errorf("Text(%q) accepted, want spam rejection", input)
		} else if res.Reason != ReasonSpam {
			t.Errorf("Text(%q) reason = %s, want %s", input, res.Reason, ReasonSpam)
		}
	}
}

func TestTextNormalizeIdempotent(t *testing.T) {
	res := Text("  padded complaint text here  ", 0, 0)
	if !res.OK {
		t.Fatalf("rejected with %s", res.Reason)
	}
	again := Text(res.Normalized, 0, 0)
	if !again.OK || again.Normalized != res.Normalized {
		t.Errorf("normalize not idempotent: %q -> %q", res.Normalized, again.Normalized)
	}
}

func TestCheckDispatch(t *testing.T) {
	step := domain.FieldStep{Field: "phone", Validator: domain.ValidatePhone}
	if res := Check(step, "0501234567"); !res.OK || res.Normalized != "+380501234567" {
		t.Errorf("Check dispatch failed: %+v", res)
	}
	unknown := domain.FieldStep{Field: "x", Validator: domain.ValidatorKind("nope")}
	if res := Check(unknown, "anything"); res.OK {
		t.Error("unknown validator kind accepted input")
	}
}
