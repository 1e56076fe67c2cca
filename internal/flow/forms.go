package flow

import (
	"fmt"

	"github.com/reliefline/intake/internal/domain"
)

// Command tokens recognized by the engine. Cancel is global and is
// checked before any validator runs; skip only applies to steps that
// declare themselves skippable.
const (
	CmdStart    = "/start"
	CmdApply    = "/apply"
	CmdComplain = "/complain"
	CmdStatus   = "/status"
	CancelToken = "/cancel"
	SkipToken   = "/skip"
)

// applicationForm collects a job application.
func applicationForm() *domain.FormDefinition {
	return &domain.FormDefinition{
		Kind: domain.FormApplication,
		Steps: []domain.FieldStep{
			{
				Field:     "full_name",
				Prompt:    "What is your full name?",
				Validator: domain.ValidateName,
			},
			{
				Field:     "phone",
				Prompt:    "Your phone number? You can share a contact or type it, e.g. 0501234567.",
				Validator: domain.ValidatePhone,
			},
			{
				Field:     "email",
				Prompt:    "Your email address?",
				Validator: domain.ValidateEmail,
			},
			{
				Field:     "position",
				Prompt:    "Which position are you applying for?",
				Validator: domain.ValidateText,
				MinLen:    2,
				MaxLen:    100,
			},
			{
				Field:     "experience",
				Prompt:    "Briefly describe your relevant experience, or send " + SkipToken + " to leave it out.",
				Validator: domain.ValidateText,
				MaxLen:    2000,
				Skippable: true,
			},
		},
	}
}

// complaintForm collects a grievance report. Delivery failures are
// masked from the reporter so a flaky sink never discourages a
// sensitive report; the journal keeps the real outcome.
func complaintForm() *domain.FormDefinition {
	return &domain.FormDefinition{
		Kind: domain.FormComplaint,
		Steps: []domain.FieldStep{
			{
				Field:     "full_name",
				Prompt:    "What is your name?",
				Validator: domain.ValidateName,
			},
			{
				Field:     "message",
				Prompt:    "Describe your complaint (at least 10 characters).",
				Validator: domain.ValidateText,
				MinLen:    10,
				MaxLen:    1000,
			},
			{
				Field:     "phone",
				Prompt:    "A phone number we may reach you at, or " + SkipToken + " to stay unreachable.",
				Validator: domain.ValidatePhone,
				Skippable: true,
			},
		},
		MaskDeliveryFailure: true,
	}
}

// Forms builds and validates the static form registry. A validation
// failure is a programming error and aborts startup.
func Forms() (map[domain.FormKind]*domain.FormDefinition, error) {
	forms := map[domain.FormKind]*domain.FormDefinition{
		domain.FormApplication: applicationForm(),
		domain.FormComplaint:   complaintForm(),
	}
	for kind, def := range forms {
		if def.Kind != kind {
			return nil, fmt.Errorf("form registry: key %s holds definition for %s", kind, def.Kind)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("form registry: %w", err)
		}
	}
	return forms, nil
}
