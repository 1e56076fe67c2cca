package domain

import (
	"fmt"
)

// ValidatorKind names the validator applied to a field step.
type ValidatorKind string

const (
	ValidateName  ValidatorKind = "name"
	ValidatePhone ValidatorKind = "phone"
	ValidateEmail ValidatorKind = "email"
	ValidateText  ValidatorKind = "text"
)

// DefaultMaxAttempts is the per-field retry limit used when a step does
// not set its own.
const DefaultMaxAttempts = 3

// FieldStep is one step of a form flow: which field to collect, how to
// prompt for it, and how to validate the answer.
type FieldStep struct {
	Field       string
	Prompt      string
	Validator   ValidatorKind
	MaxAttempts int
	// Skippable fields accept the skip command and store no value.
	Skippable bool
	// MinLen/MaxLen bound text fields; ignored by other validators.
	MinLen int
	MaxLen int
}

// FormDefinition is a static, ordered list of field steps for one
// record kind. Definitions are validated at construction and never
// mutated at runtime.
type FormDefinition struct {
	Kind  FormKind
	Steps []FieldStep
	// MaskDeliveryFailure makes delivery failures look like success to
	// the user. Failures stay visible in the journal and logs.
	MaskDeliveryFailure bool
}

// Validate checks the definition for internal consistency. Called once
// at startup; a failure here is a programming error.
func (d *FormDefinition) Validate() error {
	if d.Kind == FormNone || d.Kind == "" {
		return fmt.Errorf("form definition has no kind")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("form %s has no steps", d.Kind)
	}
	seen := make(map[string]bool, len(d.Steps))
	for i, step := range d.Steps {
		if step.Field == "" {
			return fmt.Errorf("form %s: step %d has no field name", d.Kind, i)
		}
		if seen[step.Field] {
			return fmt.Errorf("form %s: duplicate field %q", d.Kind, step.Field)
		}
		seen[step.Field] = true
		if step.Prompt == "" {
			return fmt.Errorf("form %s: field %q has no prompt", d.Kind, step.Field)
		}
		switch step.Validator {
		case ValidateName, ValidatePhone, ValidateEmail, ValidateText:
		default:
			return fmt.Errorf("form %s: field %q has unknown validator %q", d.Kind, step.Field, step.Validator)
		}
		if step.MaxAttempts < 0 {
			return fmt.Errorf("form %s: field %q has negative attempt limit", d.Kind, step.Field)
		}
	}
	return nil
}

// StepAt returns the step collecting the given field.
func (d *FormDefinition) StepAt(field string) (FieldStep, bool) {
	for _, step := range d.Steps {
		if step.Field == field {
			return step, true
		}
	}
	return FieldStep{}, false
}

// StepForState returns the step whose awaiting state matches.
func (d *FormDefinition) StepForState(state State) (FieldStep, bool) {
	for _, step := range d.Steps {
		if AwaitingState(step.Field) == state {
			return step, true
		}
	}
	return FieldStep{}, false
}

// Successor returns the state that follows the given field: the next
// field's awaiting state, or submitting after the last field.
func (d *FormDefinition) Successor(field string) State {
	for i, step := range d.Steps {
		if step.Field == field {
			if i+1 < len(d.Steps) {
				return AwaitingState(d.Steps[i+1].Field)
			}
			return StateSubmitting
		}
	}
	return StateIdle
}

// First returns the opening step of the flow.
func (d *FormDefinition) First() FieldStep {
	return d.Steps[0]
}

// Attempts returns the effective attempt limit for a step.
func (s FieldStep) Attempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxAttempts
}
