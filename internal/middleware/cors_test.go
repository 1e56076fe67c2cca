package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const frontend = "https://intake.example.org"

func serve(t *testing.T, allowAll bool, method, origin string) (*httptest.ResponseRecorder, *bool) {
	t.Helper()
	reached := false
	handler := CORS(frontend, allowAll)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(method, "/api/events", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, &reached
}

func TestCORSFrontendOriginGetsCredentials(t *testing.T) {
	w, reached := serve(t, false, http.MethodPost, frontend)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != frontend {
		t.Errorf("Allow-Origin = %q, want %q", got, frontend)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
	if !*reached {
		t.Error("request never reached the handler")
	}
}

func TestCORSUnknownOriginGetsNothing(t *testing.T) {
	w, _ := serve(t, false, http.MethodPost, "https://evil.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want unset", got)
	}
}

func TestCORSDevEchoesWithoutCredentials(t *testing.T) {
	origin := "http://localhost:5173"
	w, _ := serve(t, true, http.MethodPost, origin)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != origin {
		t.Errorf("Allow-Origin = %q, want %q", got, origin)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want unset on wildcard match", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	w, reached := serve(t, false, http.MethodOptions, frontend)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if *reached {
		t.Error("preflight reached the handler")
	}
}
