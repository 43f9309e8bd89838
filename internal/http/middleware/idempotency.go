package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets a client retry POST /generate-podcast without
// creating a second job: the same key from the same client maps to the code
// issued the first time.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdempotency = "idempotency"

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~:\-]+$`)

// idemState is what IdempotencyValidator leaves in the Gin context.
type idemState struct {
	key    string
	replay bool
}

func idemFrom(c *gin.Context) idemState {
	if v, ok := c.Get(ctxKeyIdempotency); ok {
		if st, ok := v.(idemState); ok {
			return st
		}
	}
	return idemState{}
}

// GetIdempotencyKey returns the validated Idempotency-Key of the request.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	st := idemFrom(c)
	return st.key, st.key != ""
}

// IsReplay reports whether the request repeats a submission that is already
// recorded for this client.
func IsReplay(c *gin.Context) bool {
	return idemFrom(c).replay
}

// IdempotencyOptions tunes header validation.
type IdempotencyOptions struct {
	MaxLen  int            // default 200
	Pattern *regexp.Regexp // default ^[A-Za-z0-9._~:\-]+$
}

// IdempotencyLookup reports whether a live record exists for (clientKey, key)
// at now. Expiry is the lookup's business.
type IdempotencyLookup func(ctx context.Context, clientKey, key string, now time.Time) (bool, error)

// IdempotencyValidator checks the Idempotency-Key header on POST requests.
// A missing header passes through untouched; a malformed one is rejected with
// 400. A well-formed key is stored for GetIdempotencyKey and, if lookup finds
// an existing record, the request is flagged as a replay, which also exempts
// it from rate limiting. Lookup failures are logged and treated as a miss so
// the store cannot block submissions. Other methods ignore the header.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pattern := opts.Pattern
	if pattern == nil {
		pattern = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pattern.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success":    false,
				"error":      "Invalid Idempotency-Key header",
				"code":       "bad_request",
				"request_id": RequestIDFrom(c),
			})
			return
		}

		st := idemState{key: key}
		if lookup != nil {
			found, err := lookup(c.Request.Context(), ClientKey(c), key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			st.replay = err == nil && found
		}
		c.Set(ctxKeyIdempotency, st)
		c.Next()
	}
}

// ClientKey scopes idempotency records and rate-limit buckets. The API is
// anonymous, so the client IP is all there is.
func ClientKey(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}
