// Package validate holds the pure field validators and normalizers.
// Validators never return errors; they report the outcome and leave
// retry/lockout decisions to the flow engine.
package validate

import (
	"github.com/reliefline/intake/internal/domain"
)

// Reason explains a rejection in machine-readable form. The flow
// engine maps reasons to user-facing reply text.
type Reason string

const (
	ReasonTooShort      Reason = "too_short"
	ReasonTooLong       Reason = "too_long"
	ReasonBadCharacters Reason = "bad_characters"
	ReasonDenied        Reason = "denied"
	ReasonBadFormat     Reason = "bad_format"
	ReasonSpam          Reason = "spam"
)

// Result is the outcome of validating a single field value.
type Result struct {
	OK         bool
	Normalized string
	Reason     Reason
}

func ok(normalized string) Result {
	return Result{OK: true, Normalized: normalized}
}

func fail(reason Reason) Result {
	return Result{OK: false, Reason: reason}
}

// Check runs the validator for the step against the raw input.
func Check(step domain.FieldStep, input string) Result {
	switch step.Validator {
	case domain.ValidateName:
		return Name(input)
	case domain.ValidatePhone:
		return Phone(input)
	case domain.ValidateEmail:
		return Email(input)
	case domain.ValidateText:
		return Text(input, step.MinLen, step.MaxLen)
	default:
		// Unknown kinds are rejected at form construction; reaching
		// this is a programming error, but validators never panic.
		return fail(ReasonBadFormat)
	}
}
