package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func secured(opt SecurityOptions, req *http.Request) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(opt))
	r.GET("/api/podcasts", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders(t *testing.T) {
	plain := func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/podcasts", nil) }

	h := secured(SecurityOptions{}, plain())
	for k, v := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if h.Get(k) != v {
			t.Fatalf("%s=%q want %q", k, h.Get(k), v)
		}
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security"} {
		if h.Get(k) != "" {
			t.Fatalf("%s set without opting in", k)
		}
	}

	h = secured(SecurityOptions{EnablePolicy: true, NoStore: true}, plain())
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %v", h)
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" {
		t.Fatalf("no-store headers missing: %v", h)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	tlsReq := httptest.NewRequest(http.MethodGet, "/api/podcasts", nil)
	tlsReq.TLS = &tls.ConnectionState{}

	proxied := httptest.NewRequest(http.MethodGet, "/api/podcasts", nil)
	proxied.Header.Set("X-Forwarded-Proto", "HTTPS, http")

	cases := []struct {
		name string
		opt  SecurityOptions
		req  *http.Request
		want string
	}{
		{"plain http", SecurityOptions{EnableHSTS: true}, httptest.NewRequest(http.MethodGet, "/api/podcasts", nil), ""},
		{"tls default age", SecurityOptions{EnableHSTS: true}, tlsReq, "max-age=15552000; includeSubDomains"},
		{"proxy custom age", SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}, proxied, "max-age=3600; includeSubDomains"},
		{"disabled", SecurityOptions{}, tlsReq, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := secured(tc.opt, tc.req).Get("Strict-Transport-Security"); got != tc.want {
				t.Fatalf("HSTS=%q want %q", got, tc.want)
			}
		})
	}
}
