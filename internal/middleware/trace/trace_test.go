package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledgerly/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
	m := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.7" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/wallets", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want generated id", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q does not match %q", rr.Header().Get(HeaderRequestID), seen)
	}

	out := buf.String()
	if !strings.Contains(out, "inside handler") || !strings.Contains(out, "request_id="+seen) {
		t.Fatalf("handler log missing request id:\n%s", out)
	}
	if !strings.Contains(out, "status_code=201") || !strings.Contains(out, "client_ip=203.0.113.7") {
		t.Fatalf("access log incomplete:\n%s", out)
	}
	if m.TotalRequests() != 1 {
		t.Fatalf("TotalRequests = %d", m.TotalRequests())
	}
}

func TestMiddleware_RequestIDHeader(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "valid id is kept", incoming: "abc-123", keep: true},
		{name: "garbage is replaced", incoming: "bad id\nwith newline", keep: false},
		{name: "missing is generated", incoming: "", keep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			got := rr.Header().Get(HeaderRequestID)
			if tt.keep && got != tt.incoming {
				t.Fatalf("got %q, want %q", got, tt.incoming)
			}
			if !tt.keep && !strings.HasPrefix(got, "req_") {
				t.Fatalf("got %q, want generated id", got)
			}
		})
	}
}
