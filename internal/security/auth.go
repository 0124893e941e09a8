package security

import (
	"crypto/subtle"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// AdminKeyHeader is the header carrying the admin credential on
// privileged routes.
const AdminKeyHeader = "X-OM-Key"

// KeyVerifier validates an admin credential. The static shared key is one
// implementation; signed-token schemes can replace it without touching
// the middleware or routes.
type KeyVerifier interface {
	Verify(key string) bool
}

// StaticKeyVerifier compares against a single configured secret.
type StaticKeyVerifier struct {
	secret string
}

// NewStaticKeyVerifier creates a verifier for the given shared secret.
// An empty secret never verifies, so a misconfigured server fails closed.
func NewStaticKeyVerifier(secret string) *StaticKeyVerifier {
	return &StaticKeyVerifier{secret: secret}
}

// Verify reports whether key matches the configured secret. Constant-time
// compare; a static shared secret is already a brute-force target and the
// comparison should not leak anything more.
func (v *StaticKeyVerifier) Verify(key string) bool {
	if v.secret == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.secret), []byte(key)) == 1
}

// AdminKeyMiddleware returns a gin middleware guarding privileged routes.
// A missing key and a wrong key are rejected with distinct codes so
// clients can tell "prompt for a key" apart from "this key is wrong".
func AdminKeyMiddleware(verifier KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			log.Info("Auth rejected: missing admin key", "method", c.Request.Method, "path", c.Request.URL.Path)
			AuthFailuresTotal("missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":   false,
				"err":  "missing " + AdminKeyHeader + " header",
				"code": "auth_missing",
			})
			return
		}
		if !verifier.Verify(key) {
			log.Info("Auth rejected: invalid admin key", "method", c.Request.Method, "path", c.Request.URL.Path)
			AuthFailuresTotal("invalid")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"ok":   false,
				"err":  "invalid admin key",
				"code": "auth_invalid",
			})
			return
		}
		c.Next()
	}
}
