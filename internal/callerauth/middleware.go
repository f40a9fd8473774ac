package callerauth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// contextKey is the gin.Context key the verified caller claims are stored under.
const contextKey = "anp_caller_claims"

// Middleware verifies the Authorization bearer token (when present) and
// attaches the resulting CallerClaims to the gin context. Unlike a
// traditional RequireToken middleware, it never aborts the request: an
// anonymous caller is a valid RequestContext whose callerDID is empty, and
// individual routes decide whether that's acceptable.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := v.Verify(tokenStr)
		if err != nil {
			c.Next()
			return
		}
		c.Set(contextKey, claims)
		c.Next()
	}
}

// FromContext extracts the verified caller DID from a gin context, or ""
// if no valid bearer token was presented.
func FromContext(c *gin.Context) string {
	v, ok := c.Get(contextKey)
	if !ok {
		return ""
	}
	claims, ok := v.(*CallerClaims)
	if !ok {
		return ""
	}
	return claims.CallerDID
}

// RequireScope aborts with 403 unless the caller's token grants scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(contextKey)
		claims, _ := v.(*CallerClaims)
		if !ok || !HasScope(claims, scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "message": "missing required scope: " + scope})
			return
		}
		c.Next()
	}
}
