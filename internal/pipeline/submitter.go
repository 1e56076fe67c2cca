package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/reliefline/intake/internal/domain"
)

const (
	// maxAttempts bounds the retry loop: 3 total attempts, not 3
	// retries after the first.
	maxAttempts = 3
	// baseDelay scales linearly with the attempt index: 2s after the
	// first failure, 4s after the second.
	baseDelay = 2 * time.Second
)

// AttemptRecorder persists the outcome of each delivery attempt for
// server-side observability. The journal package implements it; a nil
// recorder disables journaling.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a DeliveryAttempt) error
}

// DeliveryAttempt is one journal row.
type DeliveryAttempt struct {
	RecordID   string
	FormKind   domain.FormKind
	UserID     string
	Attempt    int
	Delivered  bool
	Terminal   bool
	ExternalID string
	Error      string
	At         time.Time
}

// Notifier sends the best-effort activity notification that accompanies
// a submission. Failures never affect the submission's own result.
type Notifier interface {
	Notify(record domain.SubmissionRecord, result domain.SubmissionResult)
}

// Submitter runs the bounded-retry delivery loop. The retry schedule
// is an explicit loop carrying the attempt index, so it is testable in
// isolation and can never recurse.
type Submitter struct {
	sink     Sink
	journal  AttemptRecorder
	notifier Notifier
	sleep    func(ctx context.Context, d time.Duration) bool
	now      func() time.Time
}

// NewSubmitter creates a submitter. journal and notifier may be nil.
func NewSubmitter(sink Sink, journal AttemptRecorder, notifier Notifier) *Submitter {
	return &Submitter{
		sink:     sink,
		journal:  journal,
		notifier: notifier,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// WithSleep replaces the backoff sleep. Test hook.
func (s *Submitter) WithSleep(sleep func(ctx context.Context, d time.Duration) bool) *Submitter {
	s.sleep = sleep
	return s
}

// sleepCtx waits for d or until ctx is done. Returns false when the
// context won.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Submit delivers the record, retrying transport-level failures up to
// the attempt bound with linearly increasing delay. Terminal sink
// rejections stop immediately. The returned result hides all retry
// internals from the caller.
func (s *Submitter) Submit(ctx context.Context, record domain.SubmissionRecord) domain.SubmissionResult {
	var result domain.SubmissionResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		externalID, err := s.sink.Deliver(ctx, record)

		if err == nil {
			result = domain.SubmissionResult{Success: true, ExternalID: externalID}
			s.record(ctx, record, attempt, true, false, externalID, "")
			break
		}

		terminal := IsTerminal(err)
		s.record(ctx, record, attempt, false, terminal, "", err.Error())
		slog.Warn("Delivery attempt failed",
			"record_id", record.ID,
			"form", record.FormKind,
			"attempt", attempt,
			"terminal", terminal,
			"error", err)

		result = domain.SubmissionResult{Success: false, Error: failureText(err)}
		if terminal {
			break
		}
		if attempt < maxAttempts {
			if !s.sleep(ctx, time.Duration(attempt)*baseDelay) {
				result = domain.SubmissionResult{Success: false, Error: "delivery cancelled"}
				break
			}
		}
	}

	if s.notifier != nil {
		// Fire and forget: the notification must never delay or fail
		// the submission.
		go s.notifier.Notify(record, result)
	}
	return result
}

func (s *Submitter) record(ctx context.Context, record domain.SubmissionRecord, attempt int, delivered, terminal bool, externalID, errText string) {
	if s.journal == nil {
		return
	}
	err := s.journal.RecordAttempt(ctx, DeliveryAttempt{
		RecordID:   record.ID,
		FormKind:   record.FormKind,
		UserID:     record.UserID,
		Attempt:    attempt,
		Delivered:  delivered,
		Terminal:   terminal,
		ExternalID: externalID,
		Error:      errText,
		At:         s.now(),
	})
	if err != nil {
		slog.Error("Failed to journal delivery attempt",
			"record_id", record.ID,
			"attempt", attempt,
			"error", err)
	}
}

// failureText trims the user-facing error down to a stable summary.
func failureText(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// HTTPNotifier posts a small activity notification to a webhook.
type HTTPNotifier struct {
	url    string
	client *http.Client
}

// NewHTTPNotifier creates a notifier, or nil when no URL is set.
func NewHTTPNotifier(url string, timeout time.Duration) *HTTPNotifier {
	if url == "" {
		return nil
	}
	return &HTTPNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

// Notify posts the outcome. Errors are logged at debug and dropped.
func (n *HTTPNotifier) Notify(record domain.SubmissionRecord, result domain.SubmissionResult) {
	body := strings.NewReader(`{"record_id":"` + record.ID +
		`","form_kind":"` + string(record.FormKind) +
		`","delivered":` + boolJSON(result.Success) + `}`)
	resp, err := n.client.Post(n.url, "application/json", body)
	if err != nil {
		slog.Debug("Activity notification failed", "record_id", record.ID, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Debug("Activity notification rejected", "record_id", record.ID, "status", resp.StatusCode)
	}
}

func boolJSON(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
