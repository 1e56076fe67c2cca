// Package flow implements the per-user conversation state machine that
// sequences field collection, gates transitions through the validators,
// and hands completed records to the submission pipeline.
package flow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/reliefline/intake/internal/domain"
	"github.com/reliefline/intake/internal/risk"
	"github.com/reliefline/intake/internal/store"
	"github.com/reliefline/intake/internal/validate"
)

// Submitter delivers a completed record to the external sink. The
// pipeline package provides the production implementation.
type Submitter interface {
	Submit(ctx context.Context, record domain.SubmissionRecord) domain.SubmissionResult
}

// Engine drives every user's intake conversation. It owns no state of
// its own beyond the injected stores; all session mutation happens
// under the per-user lock, so one user's events are strictly serial.
type Engine struct {
	sessions store.SessionStore
	locks    *store.KeyLock
	risk     *risk.Engine
	submit   Submitter
	forms    map[domain.FormKind]*domain.FormDefinition
	now      func() time.Time
	newID    func() string
}

// New creates the engine. The forms map must come from Forms() so the
// definitions are validated before any event arrives.
func New(sessions store.SessionStore, locks *store.KeyLock, riskEngine *risk.Engine, submitter Submitter, forms map[domain.FormKind]*domain.FormDefinition) *Engine {
	return &Engine{
		sessions: sessions,
		locks:    locks,
		risk:     riskEngine,
		submit:   submitter,
		forms:    forms,
		now:      time.Now,
		newID:    func() string { return ksuid.New().String() },
	}
}

// WithClock replaces the engine's clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// HandleEvent processes one inbound event and returns the reply to
// show the user. It never returns an error: expected bad input becomes
// a re-prompt, and unexpected faults are recovered here, logged, and
// turned into a generic apology. This is the outermost per-event
// boundary required to keep one user's panic away from the store.
func (e *Engine) HandleEvent(ctx context.Context, ev domain.Event) (reply domain.Prompt) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic handling event",
				"user_id", ev.UserID,
				"event_id", ev.ID,
				"panic", r)
			reply = msgInternalFault()
		}
	}()

	// Blocked users are refused before the state machine runs.
	allowed, remaining := e.risk.Gate(ev.UserID)
	if !allowed {
		slog.Info("Event refused, user blocked", "user_id", ev.UserID, "remaining", remaining)
		return msgBlocked(remaining)
	}

	e.locks.Lock(ev.UserID)
	defer e.locks.Unlock(ev.UserID)

	sess := e.sessions.Get(ev.UserID)
	if sess == nil {
		sess = domain.NewSession(ev.UserID, e.now())
		e.sessions.Put(sess)
	}
	// Activity goes through the store: the sweeper's expiry scan reads
	// LastActivityAt under the shard lock, not the per-user lock.
	e.sessions.Touch(ev.UserID, e.now())

	reply = e.step(ctx, sess, ev)

	if e.risk.Suspicious(ev.UserID) {
		slog.Warn("Suspicious activity",
			"user_id", ev.UserID,
			"score", e.risk.Score(ev.UserID))
	}
	return reply
}

// step runs one transition. Caller holds the user's lock.
func (e *Engine) step(ctx context.Context, sess *domain.Session, ev domain.Event) domain.Prompt {
	input := strings.TrimSpace(ev.Payload)

	// The cancel token is global: it wins over validators and over
	// whatever state the session is in.
	if input == CancelToken {
		e.risk.Observe(sess.UserID, domain.ActionCancel)
		if sess.Idle() {
			return msgNothingToCancel()
		}
		sess.Reset()
		slog.Info("Session cancelled", "user_id", sess.UserID)
		return msgCancelled()
	}

	switch input {
	case CmdApply:
		return e.start(sess, domain.FormApplication)
	case CmdComplain:
		return e.start(sess, domain.FormComplaint)
	case CmdStatus:
		e.risk.Observe(sess.UserID, domain.ActionMessage)
		if sess.Idle() {
			return msgIdleStatus()
		}
		return msgStatus(sess, len(e.forms[sess.FormKind].Steps))
	case CmdStart:
		e.risk.Observe(sess.UserID, domain.ActionMessage)
		return msgHelp()
	}

	e.risk.Observe(sess.UserID, domain.ActionMessage)

	if sess.Idle() {
		return msgHelp()
	}
	if sess.State == domain.StateSubmitting {
		// Submission runs synchronously under the user's lock, so this
		// state is never observable from another event of the same
		// user. Left as a guard for store corruption.
		return msgInternalFault()
	}

	def := e.forms[sess.FormKind]
	step, found := def.StepForState(sess.State)
	if !found {
		slog.Error("Session in unknown state, resetting",
			"user_id", sess.UserID,
			"state", sess.State,
			"form", sess.FormKind)
		sess.Reset()
		return msgInternalFault()
	}

	return e.collect(ctx, sess, def, step, input)
}

// start begins a form flow. An in-progress flow is silently discarded:
// the fresh start is the acknowledgement.
func (e *Engine) start(sess *domain.Session, kind domain.FormKind) domain.Prompt {
	e.risk.Observe(sess.UserID, domain.ActionStart)

	if !sess.Idle() {
		slog.Info("Discarding in-progress session on restart",
			"user_id", sess.UserID,
			"previous_form", sess.FormKind,
			"previous_state", sess.State)
	}
	sess.Reset()

	def := e.forms[kind]
	sess.FormKind = kind
	sess.State = domain.AwaitingState(def.First().Field)
	slog.Info("Form started", "user_id", sess.UserID, "form", kind)
	return domain.Prompt{Text: def.First().Prompt}
}

// collect handles one answer for the awaited field.
func (e *Engine) collect(ctx context.Context, sess *domain.Session, def *domain.FormDefinition, step domain.FieldStep, input string) domain.Prompt {
	if step.Skippable && input == SkipToken {
		return e.advance(ctx, sess, def, step)
	}

	res := validate.Check(step, input)
	if !res.OK {
		e.risk.Observe(sess.UserID, domain.ActionValidationFailed)
		sess.AttemptCount++
		slog.Info("Validation failed",
			"user_id", sess.UserID,
			"form", sess.FormKind,
			"field", step.Field,
			"reason", res.Reason,
			"attempt", sess.AttemptCount)

		if sess.AttemptCount >= step.Attempts() {
			sess.Reset()
			slog.Info("Attempts exhausted, session reset",
				"user_id", sess.UserID,
				"field", step.Field)
			return msgAttemptsExhausted()
		}
		return msgRetry(step, res.Reason, step.Attempts()-sess.AttemptCount)
	}

	sess.SetField(step.Field, res.Normalized)
	return e.advance(ctx, sess, def, step)
}

// advance moves past the given step: next field, or submission if this
// was the last one. Resets the per-field attempt counter either way.
func (e *Engine) advance(ctx context.Context, sess *domain.Session, def *domain.FormDefinition, step domain.FieldStep) domain.Prompt {
	sess.AttemptCount = 0
	next := def.Successor(step.Field)
	sess.State = next

	if next != domain.StateSubmitting {
		nextStep, _ := def.StepForState(next)
		return domain.Prompt{Text: nextStep.Prompt}
	}
	return e.finish(ctx, sess, def)
}

// deliveryDeadline caps the whole retry loop once submitting starts.
// Generous against the worst case of all attempts timing out.
const deliveryDeadline = 2 * time.Minute

// finish snapshots the session into a record, runs the pipeline to its
// terminal outcome, and resets the session. Both outcomes reset: the
// user gets exactly one terminal acknowledgement per attempt, and any
// redelivery happens inside the pipeline before that acknowledgement.
func (e *Engine) finish(ctx context.Context, sess *domain.Session, def *domain.FormDefinition) domain.Prompt {
	e.risk.Observe(sess.UserID, domain.ActionSubmitAttempt)

	record := domain.SubmissionRecord{
		ID:          e.newID(),
		FormKind:    sess.FormKind,
		UserID:      sess.UserID,
		Fields:      append([]domain.FieldValue(nil), sess.Fields...),
		SubmittedAt: e.now(),
	}

	// Once submitting starts, delivery runs to its own terminal
	// outcome: a dropped chat connection must not cancel the retries.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryDeadline)
	defer cancel()

	result := e.submit.Submit(dctx, record)
	sess.Reset()

	if result.Success {
		slog.Info("Submission delivered",
			"user_id", record.UserID,
			"form", record.FormKind,
			"record_id", record.ID,
			"external_id", result.ExternalID)
		return msgSubmitted(record.FormKind, result.ExternalID)
	}

	slog.Error("Submission failed",
		"user_id", record.UserID,
		"form", record.FormKind,
		"record_id", record.ID,
		"error", result.Error,
		"masked", def.MaskDeliveryFailure)

	if def.MaskDeliveryFailure {
		// Named policy: a failed complaint delivery still reads as
		// success to the reporter. The journal and the log above keep
		// the true outcome.
		return msgSubmitted(record.FormKind, "")
	}
	return msgSubmitFailed()
}
