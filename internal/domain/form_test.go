package domain

import (
	"strings"
	"testing"
)

func validDefinition() FormDefinition {
	return FormDefinition{
		Kind: FormComplaint,
		Steps: []FieldStep{
			{Field: "full_name", Prompt: "Your name?", Validator: ValidateName},
			{Field: "message", Prompt: "What happened?", Validator: ValidateText},
		},
	}
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FormDefinition)
		wantErr string
	}{
		{"valid", func(d *FormDefinition) {}, ""},
		{"no kind", func(d *FormDefinition) { d.Kind = FormNone }, "no kind"},
		{"no steps", func(d *FormDefinition) { d.Steps = nil }, "no steps"},
		{"duplicate field", func(d *FormDefinition) {
			d.Steps = append(d.Steps, FieldStep{Field: "message", Prompt: "again?", Validator: ValidateText})
		}, "duplicate field"},
		{"missing prompt", func(d *FormDefinition) { d.Steps[0].Prompt = "" }, "no prompt"},
		{"unknown validator", func(d *FormDefinition) { d.Steps[1].Validator = "regex" }, "unknown validator"},
		{"negative attempts", func(d *FormDefinition) { d.Steps[0].MaxAttempts = -1 }, "negative attempt limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)
			err := def.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSuccessor(t *testing.T) {
	def := validDefinition()

	if got := def.Successor("full_name"); got != AwaitingState("message") {
		t.Errorf("Successor(full_name) = %s", got)
	}
	if got := def.Successor("message"); got != StateSubmitting {
		t.Errorf("Successor(message) = %s, want submitting", got)
	}
	if got := def.Successor("unknown"); got != StateIdle {
		t.Errorf("Successor(unknown) = %s, want idle", got)
	}
}

func TestStepForState(t *testing.T) {
	def := validDefinition()

	step, ok := def.StepForState(AwaitingState("message"))
	if !ok || step.Field != "message" {
		t.Errorf("StepForState = %+v, %v", step, ok)
	}
	if _, ok := def.StepForState(StateIdle); ok {
		t.Error("StepForState matched the idle state")
	}
}

func TestAttemptsDefault(t *testing.T) {
	if got := (FieldStep{}).Attempts(); got != DefaultMaxAttempts {
		t.Errorf("Attempts = %d, want %d", got, DefaultMaxAttempts)
	}
	if got := (FieldStep{MaxAttempts: 5}).Attempts(); got != 5 {
		t.Errorf("Attempts = %d, want 5", got)
	}
}
