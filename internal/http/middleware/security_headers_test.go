package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medira/clinic-server/internal/config"
)

func TestSecurityHeaders(t *testing.T) {
	cfg := config.SecurityHeadersConfig{
		Enabled:            true,
		CSP:                "default-src 'none'",
		HSTSMaxAge:         31536000,
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}

	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Content-Security-Policy"); got != cfg.CSP {
		t.Errorf("CSP header = %v, want %v", got, cfg.CSP)
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS header = %v, want max-age=31536000; includeSubDomains", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != cfg.FrameOptions {
		t.Errorf("Frame Options header = %v, want %v", got, cfg.FrameOptions)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != cfg.ContentTypeOptions {
		t.Errorf("Content Type Options header = %v, want %v", got, cfg.ContentTypeOptions)
	}
	if got := w.Header().Get("Referrer-Policy"); got != cfg.ReferrerPolicy {
		t.Errorf("Referrer Policy header = %v, want %v", got, cfg.ReferrerPolicy)
	}
}

func TestSecurityHeadersDisabled(t *testing.T) {
	cfg := config.SecurityHeadersConfig{
		Enabled: false,
		CSP:     "default-src 'none'",
	}

	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Content-Security-Policy"); got != "" {
		t.Errorf("CSP header = %v, want empty when disabled", got)
	}
}

func TestSecurityHeadersNoHSTSWhenZero(t *testing.T) {
	cfg := config.SecurityHeadersConfig{
		Enabled:    true,
		HSTSMaxAge: 0,
	}

	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS header = %v, want empty for plain HTTP deployments", got)
	}
}
