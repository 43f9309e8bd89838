// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a static bearer-token check for machine callers such
// as the external podcast generator. It is not a user authentication scheme.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireBearer returns a middleware that admits only requests carrying
// "Authorization: Bearer <token>". An empty token rejects everything.
//
// Rejections respond 401 with the standard error envelope and a
// WWW-Authenticate challenge.
func RequireBearer(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if len(want) == 0 || !found || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="podcast-callback"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":    false,
				"error":      "Unauthorized",
				"code":       "unauthorized",
				"request_id": RequestIDFrom(c),
			})
			return
		}
		c.Next()
	}
}
