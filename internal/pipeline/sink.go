// Package pipeline delivers completed records to the external record
// sink with bounded retries and records every attempt in the journal.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/reliefline/intake/internal/domain"
)

// Sink is the external record-keeping system. Any non-2xx response is
// a delivery failure; the submitter decides whether it is retryable.
type Sink interface {
	// Deliver posts one record. It returns the sink-assigned ID on
	// success, or an error classified by IsTerminal.
	Deliver(ctx context.Context, record domain.SubmissionRecord) (externalID string, err error)

	// Healthy probes the sink's health endpoint.
	Healthy(ctx context.Context) error
}

// DeliveryError is a sink response that did not succeed. Terminal
// errors (4xx-class rejections) must not be retried.
type DeliveryError struct {
	Status   int
	Terminal bool
	Message  string
}

func (e *DeliveryError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sink returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("sink returned %d", e.Status)
}

// IsTerminal reports whether the delivery error must not be retried.
// Transport-level failures (timeouts, connection errors) are never
// terminal.
func IsTerminal(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Terminal
	}
	return false
}

// HTTPSink talks to the record sink over HTTP/JSON:
// POST {base}/records and GET {base}/health.
type HTTPSink struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSink creates a sink client with the per-attempt timeout.
func NewHTTPSink(baseURL string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type sinkRequest struct {
	FormKind    domain.FormKind     `json:"form_kind"`
	Fields      []domain.FieldValue `json:"fields"`
	UserID      string              `json:"user_id"`
	SubmittedAt time.Time           `json:"submitted_at"`
}

type sinkResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

// Deliver posts the record. 2xx yields the sink's ID, 4xx a terminal
// DeliveryError, anything else a retryable one.
func (s *HTTPSink) Deliver(ctx context.Context, record domain.SubmissionRecord) (string, error) {
	body, err := json.Marshal(sinkRequest{
		FormKind:    record.FormKind,
		Fields:      record.Fields,
		UserID:      record.UserID,
		SubmittedAt: record.SubmittedAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/records", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deliver record: %w", err)
	}
	defer resp.Body.Close()

	var parsed sinkResponse
	// A 2xx with an unparsable body still counts as delivered; the
	// sink accepted the record even if we lost its ID.
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decodeErr == nil && !parsed.Success && parsed.Error != "" {
			return "", &DeliveryError{Status: resp.StatusCode, Terminal: true, Message: parsed.Error}
		}
		return parsed.ID, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &DeliveryError{Status: resp.StatusCode, Terminal: true, Message: parsed.Error}
	default:
		return "", &DeliveryError{Status: resp.StatusCode, Terminal: false, Message: parsed.Error}
	}
}

// Healthy probes GET /health.
func (s *HTTPSink) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink health probe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{Status: resp.StatusCode}
	}
	return nil
}
