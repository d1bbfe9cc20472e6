package middleware

import (
	"net/http"
	"strings"

	"github.com/ErlanBelekov/hdnotes/internal/reqctx"
	"github.com/ErlanBelekov/hdnotes/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Unauthorized access"

	// SessionCookie carries the access token for browser clients.
	SessionCookie = "token"
)

type TokenVerifier interface {
	Verify(raw string) (*session.Identity, error)
}

// Auth accepts the access token as a Bearer header or the session cookie,
// and sets "userID" and "email" in the gin context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw, _ = c.Cookie(SessionCookie)
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		id, err := verifier.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), id.UserID))
		c.Set("userID", id.UserID)
		c.Set("email", id.Email)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
