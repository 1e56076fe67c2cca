//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reliefline/intake/internal/domain"
	"github.com/reliefline/intake/internal/flow"
	"github.com/reliefline/intake/internal/risk"
	"github.com/reliefline/intake/internal/store"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, "bad input")

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["error"] != "bad input" {
		t.Errorf("Expected error=bad input, got %v", got["error"])
	}
}

type stubSubmitter struct{}

func (stubSubmitter) Submit(_ context.Context, _ domain.SubmissionRecord) domain.SubmissionResult {
	return domain.SubmissionResult{Success: true, ExternalID: "ext-1"}
}

func newTestRouter(t *testing.T) (chi.Router, *risk.Engine) {
	t.Helper()
	forms, err := flow.Forms()
	if err != nil {
		t.Fatalf("Forms: %v", err)
	}
	riskEngine := risk.New()
	engine := flow.New(store.NewSessions(), store.NewKeyLock(), riskEngine, stubSubmitter{}, forms)

	r := chi.NewRouter()
	NewHandler(engine).RegisterRoutes(r)
	NewAdminHandler(riskEngine, nil).RegisterRoutes(r)
	return r, riskEngine
}

func TestHandleEvent(t *testing.T) {
	r, _ := newTestRouter(t)

	body := strings.NewReader(`{"user_id":"u1","kind":"text","payload":"/apply"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/events", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		EventID string        `json:"event_id"`
		Prompt  domain.Prompt `json:"prompt"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.EventID == "" {
		t.Error("missing event_id")
	}
	if !strings.Contains(resp.Prompt.Text, "full name") {
		t.Errorf("prompt = %q, want the first form question", resp.Prompt.Text)
	}
}

func TestHandleEventRejectsBadKind(t *testing.T) {
	r, _ := newTestRouter(t)

	body := strings.NewReader(`{"user_id":"u1","kind":"sticker","payload":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/events", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleEventRequiresIdentity(t *testing.T) {
	r, _ := newTestRouter(t)

	// No identity middleware in this router and no user_id in the
	// payload: the event has no owner.
	body := strings.NewReader(`{"kind":"text","payload":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/events", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAdminBlockFlow(t *testing.T) {
	r, riskEngine := newTestRouter(t)

	body := strings.NewReader(`{"reason":"spamming forms","duration_minutes":30}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/u1/block", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("block status = %d, want 200", w.Code)
	}

	if allowed, remaining := riskEngine.Gate("u1"); allowed || remaining <= 0 {
		t.Errorf("Gate after block = %v, %v", allowed, remaining)
	}

	// A blocked user's event is refused with the remaining minutes.
	evBody := strings.NewReader(`{"user_id":"u1","kind":"text","payload":"/apply"}`)
	evReq := httptest.NewRequest(http.MethodPost, "/api/events", evBody)
	evW := httptest.NewRecorder()
	r.ServeHTTP(evW, evReq)

	var resp struct {
		Prompt domain.Prompt `json:"prompt"`
	}
	if err := json.NewDecoder(evW.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Prompt.Text, "blocked") {
		t.Errorf("prompt = %q, want block notice", resp.Prompt.Text)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/admin/users/u1/block", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("unblock status = %d, want 200", w.Code)
	}
	if allowed, _ := riskEngine.Gate("u1"); !allowed {
		t.Error("user still gated after unblock")
	}
}

func TestAdminBlockValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	body := strings.NewReader(`{"reason":"x","duration_minutes":0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/u1/block", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAdminRiskProfile(t *testing.T) {
	r, riskEngine := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users/ghost/risk", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unseen user status = %d, want 404", w.Code)
	}

	riskEngine.Observe("u1", domain.ActionStart)
	req = httptest.NewRequest(http.MethodGet, "/api/admin/users/u1/risk", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Profile domain.RiskProfile `json:"profile"`
		Score   int                `json:"score"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Profile.UserID != "u1" {
		t.Errorf("profile user = %q", resp.Profile.UserID)
	}
}

func TestAdminDeliveriesWithoutJournal(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/deliveries", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

type fakeJournalProbe struct {
	pingErr error
	failed  int64
}

func (f *fakeJournalProbe) Ping(_ context.Context) error { return f.pingErr }

func (f *fakeJournalProbe) FailedSince(_ context.Context, _ time.Time) (int64, error) {
	return f.failed, nil
}

func TestHealthReportsRecentFailures(t *testing.T) {
	r := chi.NewRouter()
	NewHealthHandler(&fakeJournalProbe{failed: 3}, nil).RegisterHealth(r)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Checks         map[string]string `json:"checks"`
		FailedLastHour int64             `json:"failed_deliveries_last_1h"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Checks["journal"] != "ok" {
		t.Errorf("journal check = %q, want ok", resp.Checks["journal"])
	}
	if resp.FailedLastHour != 3 {
		t.Errorf("failed_deliveries_last_1h = %d, want 3", resp.FailedLastHour)
	}
}

func TestHealthFailsWhenJournalUnreachable(t *testing.T) {
	r := chi.NewRouter()
	NewHealthHandler(&fakeJournalProbe{pingErr: errors.New("disk gone")}, nil).RegisterHealth(r)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
