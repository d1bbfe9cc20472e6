package handler

import (
	"net/http"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/session"
	"github.com/ErlanBelekov/hdnotes/internal/transport/http/middleware"
	"github.com/ErlanBelekov/hdnotes/internal/usecase"
	"github.com/gin-gonic/gin"
)

const (
	refreshCookie = "refresh_token"
	stateCookie   = "oauth_state"

	stateTTL = 10 * time.Minute
)

// Cookies sets the http-only session cookies. Secure is off only for local
// development over plain http.
type Cookies struct {
	Secure bool
}

func (k Cookies) setSession(c *gin.Context, s *usecase.Session) {
	k.set(c, middleware.SessionCookie, s.AccessToken, "/", session.AccessTTL)
	k.set(c, refreshCookie, s.RefreshToken, "/", session.RefreshTTL)
}

func (k Cookies) clearSession(c *gin.Context) {
	k.set(c, middleware.SessionCookie, "", "/", -1)
	k.set(c, refreshCookie, "", "/", -1)
}

func (k Cookies) setState(c *gin.Context, state string) {
	k.set(c, stateCookie, state, "/oauth", stateTTL)
}

func (k Cookies) clearState(c *gin.Context) {
	k.set(c, stateCookie, "", "/oauth", -1)
}

func (k Cookies) set(c *gin.Context, name, value, path string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
