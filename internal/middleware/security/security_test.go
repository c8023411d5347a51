package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetector_Detect(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name       string
		method     string
		target     string
		userAgent  string
		suspicious bool
	}{
		{name: "api call", method: http.MethodGet, target: "/api/wallets", suspicious: false},
		{name: "search query", method: http.MethodGet, target: "/api/transactions?q=groceries", suspicious: false},
		{name: "path traversal", method: http.MethodGet, target: "/api/../../etc/passwd", suspicious: true},
		{name: "dotenv probe", method: http.MethodGet, target: "/.env", suspicious: true},
		{name: "sql injection in query", method: http.MethodGet, target: "/api/transactions?q=1%20union%20select", suspicious: true},
		{name: "scanner agent", method: http.MethodGet, target: "/", userAgent: "sqlmap/1.7", suspicious: true},
		{name: "trace method", method: "TRACE", target: "/", suspicious: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.userAgent != "" {
				r.Header.Set("User-Agent", tt.userAgent)
			}
			if got := d.Detect(r) != ""; got != tt.suspicious {
				t.Fatalf("Detect() suspicious = %v, want %v", got, tt.suspicious)
			}
		})
	}
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{name: "direct", remoteAddr: "203.0.113.7:5000", want: "203.0.113.7"},
		{name: "untrusted proxy headers ignored", remoteAddr: "203.0.113.7:5000", xff: "198.51.100.1", want: "203.0.113.7"},
		{name: "trusted proxy xff", remoteAddr: "10.0.0.2:5000", xff: "198.51.100.1, 10.0.0.2", want: "198.51.100.1"},
		{name: "trusted proxy real ip", remoteAddr: "127.0.0.1:5000", xri: "198.51.100.9", want: "198.51.100.9"},
		{name: "trusted proxy garbage", remoteAddr: "192.168.1.1:5000", xff: "not-an-ip", want: "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Fatalf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetector_MiddlewareCounts(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/wallets", nil))

	if got := d.SuspiciousRequests(); got != 1 {
		t.Fatalf("SuspiciousRequests() = %d, want 1", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/wallets", nil))
	for name, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rr.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/wallets", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Errorf("unexpected HSTS header %q", rr.Header().Get("Strict-Transport-Security"))
	}
}
