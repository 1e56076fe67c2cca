package flow

import (
	"fmt"
	"time"

	"github.com/reliefline/intake/internal/domain"
	"github.com/reliefline/intake/internal/validate"
)

// Reply text lives here so the state machine stays free of wording.
// Localization is the transport's concern; the engine speaks one
// language and the front end may map these strings.

func msgHelp() domain.Prompt {
	return domain.Prompt{
		Text:    "Hi! Send " + CmdApply + " to submit a job application or " + CmdComplain + " to file a complaint. " + CancelToken + " aborts at any point.",
		Choices: []string{CmdApply, CmdComplain},
	}
}

func msgIdleStatus() domain.Prompt {
	return domain.Prompt{Text: "Nothing in progress. Send " + CmdApply + " or " + CmdComplain + " to begin."}
}

func msgStatus(sess *domain.Session, total int) domain.Prompt {
	return domain.Prompt{Text: fmt.Sprintf("Form %s in progress: %d of %d answers collected. %s aborts.",
		sess.FormKind, len(sess.Fields), total, CancelToken)}
}

func msgCancelled() domain.Prompt {
	return domain.Prompt{Text: "Cancelled. Your answers were discarded. Send " + CmdApply + " or " + CmdComplain + " to start over."}
}

func msgNothingToCancel() domain.Prompt {
	return domain.Prompt{Text: "Nothing to cancel. Send " + CmdApply + " or " + CmdComplain + " to begin."}
}

func msgAttemptsExhausted() domain.Prompt {
	return domain.Prompt{Text: "Too many attempts for that answer, so the form was cancelled. Send " + CmdApply + " or " + CmdComplain + " to try again."}
}

func msgBlocked(remaining time.Duration) domain.Prompt {
	minutes := int(remaining.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return domain.Prompt{Text: fmt.Sprintf("You are temporarily blocked. Try again in %d minutes.", minutes)}
}

func msgInternalFault() domain.Prompt {
	return domain.Prompt{Text: "Sorry, something went wrong on our side. Your answers are safe; please resend your last message or " + CancelToken + " to start over."}
}

func msgSubmitted(kind domain.FormKind, externalID string) domain.Prompt {
	var text string
	switch kind {
	case domain.FormComplaint:
		text = "Thank you. Your complaint has been registered."
	default:
		text = "Thank you! Your application has been submitted."
	}
	if externalID != "" {
		text += " Reference: " + externalID + "."
	}
	return domain.Prompt{Text: text}
}

func msgSubmitFailed() domain.Prompt {
	return domain.Prompt{Text: "We could not deliver your application right now. Please try again later with " + CmdApply + "."}
}

func msgRetry(step domain.FieldStep, reason validate.Reason, attemptsLeft int) domain.Prompt {
	return domain.Prompt{Text: fmt.Sprintf("%s %s (%d attempts left, %s aborts)",
		rejectionText(step, reason), step.Prompt, attemptsLeft, CancelToken)}
}

func rejectionText(step domain.FieldStep, reason validate.Reason) string {
	switch reason {
	case validate.ReasonTooShort:
		if step.MinLen > 0 {
			return fmt.Sprintf("That looks too short, at least %d characters are needed.", step.MinLen)
		}
		return "That looks too short."
	case validate.ReasonTooLong:
		return "That is too long."
	case validate.ReasonBadCharacters:
		return "Please use letters only."
	case validate.ReasonBadFormat:
		switch step.Validator {
		case domain.ValidatePhone:
			return "That does not look like a valid phone number."
		case domain.ValidateEmail:
			return "That does not look like a valid email address."
		}
		return "That does not look right."
	case validate.ReasonDenied, validate.ReasonSpam:
		return "That answer was not accepted."
	default:
		return "That answer was not accepted."
	}
}
