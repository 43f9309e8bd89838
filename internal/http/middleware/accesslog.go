package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// loggerKey holds the request-scoped *zerolog.Logger in the Gin context.
	loggerKey = "logger"

	maxQueryLogLength = 2048
)

// Logger writes one structured access log line per request and attaches a
// request-scoped logger (request_id, method, route and, on podcast routes,
// the raw code) to both the Gin context and the request context.
//
// Level follows the outcome: error for 5xx or recorded gin errors, warn for
// 4xx, info otherwise. Use RedactingLogger instead when query strings or
// headers may carry personal data.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := attachScopedLogger(c)

		c.Next()

		ev := l.WithLevel(levelFor(c)).
			Str("path", c.Request.URL.Path).
			Str("query", clip(c.Request.URL.RawQuery, maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int64("bytes_in", c.Request.ContentLength)
		finish(c, ev, start)
	}
}

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are replaced with "[REDACTED]" in addition to Authorization,
	// Proxy-Authorization, Cookie and Set-Cookie. Matching ignores case.
	MaskHeaders []string
}

// RedactingLogger is Logger with scrubbing: it never logs bodies, masks
// credential headers, and rewrites e-mail addresses, phone numbers, UUIDs and
// secret-looking query parameters in whatever it does log.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()
		l := attachScopedLogger(c)

		// Scrub before c.Next so handlers cannot mutate what is logged.
		query := rd.query(c.Request.URL.RawQuery)
		headers := rd.headers(c.Request.Header)

		c.Next()

		ev := l.WithLevel(levelFor(c)).
			Str("path", c.Request.URL.Path).
			Str("query", clip(query, maxQueryLogLength)).
			Interface("headers", headers)
		finish(c, ev, start)
	}
}

// LoggerFrom returns the logger attached by Logger or RedactingLogger, or
// the global logger when neither ran. The result is never nil. Code below the
// handler layer should use sysutil.Logger(ctx), which sees the same logger
// through the request context.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	return &log.Logger
}

func attachScopedLogger(c *gin.Context) *zerolog.Logger {
	ctx := log.With().
		Str("request_id", RequestIDFrom(c)).
		Str("method", c.Request.Method).
		Str("route", routeLabel(c))
	if code := c.Param("code"); code != "" {
		ctx = ctx.Str("podcast_code", clip(code, 32))
	}
	l := ctx.Logger()
	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
	return &l
}

func finish(c *gin.Context, ev *zerolog.Event, start time.Time) {
	if len(c.Errors) > 0 {
		ev = ev.Str("errors", c.Errors.String())
	}
	if IsReplay(c) {
		ev = ev.Bool("idempotent_replay", true)
	}
	ev.Int("status", c.Writer.Status()).
		Int("bytes_out", c.Writer.Size()).
		Dur("latency", time.Since(start)).
		Msg("request")
}

func levelFor(c *gin.Context) zerolog.Level {
	status := c.Writer.Status()
	switch {
	case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// routeLabel is the matched route template, or UnmatchedRoute.
func routeLabel(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return UnmatchedRoute
}

// clip cuts s to limit bytes and marks the cut. limit <= 0 disables it.
func clip(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}

// redactor scrubs personal data and secrets out of log fields.
type redactor struct {
	masked map[string]struct{}
}

var (
	// UUIDs go first so the phone pattern cannot eat their digit runs.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	// secretParamRE matches token=..., api_key=..., etc. in raw query strings.
	secretParamRE = regexp.MustCompile(`(?i)\b((?:access_|api_|callback_)?(?:token|key|secret|password|signature))=[^&]*`)
)

func newRedactor(extra []string) *redactor {
	r := &redactor{masked: map[string]struct{}{
		"authorization":       {},
		"proxy-authorization": {},
		"cookie":              {},
		"set-cookie":          {},
	}}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

func (r *redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func (r *redactor) query(raw string) string {
	return r.scrub(secretParamRE.ReplaceAllString(raw, "$1=[REDACTED]"))
}

func (r *redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}
