package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ErlanBelekov/hdnotes/internal/oauth"
	"github.com/ErlanBelekov/hdnotes/internal/usecase"
	"github.com/gin-gonic/gin"
)

// Error tags the front end understands, in addition to the usecase ones.
const (
	tagProviderError = "google_oauth_failed"
	tagNoCode        = "no_code"
	tagInvalidState  = "invalid_state"
)

type consentURLer interface {
	AuthCodeURL(state string) string
}

type oauthUsecaser interface {
	HandleCallback(ctx context.Context, code string) (*usecase.Session, error)
}

type OAuthHandler struct {
	provider      consentURLer
	oauthUsecase  oauthUsecaser
	cookies       Cookies
	publicBaseURL string
	logger        *slog.Logger
}

func NewOAuthHandler(provider consentURLer, oauthUsecase oauthUsecaser, cookies Cookies, publicBaseURL string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		provider:      provider,
		oauthUsecase:  oauthUsecase,
		cookies:       cookies,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With("component", "oauth_handler"),
	}
}

// GET /oauth/start
func (h *OAuthHandler) Start(c *gin.Context) {
	state, err := oauth.NewState()
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "oauth start", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.cookies.setState(c, state)
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// GET /oauth/callback?code=&state=&error=
// Always ends in a redirect to the front end: the dashboard with the session
// token on success, the landing page with an error tag otherwise.
func (h *OAuthHandler) Callback(c *gin.Context) {
	wantState, _ := c.Cookie(stateCookie)
	h.cookies.clearState(c)

	if providerErr := c.Query("error"); providerErr != "" {
		h.logger.WarnContext(c.Request.Context(), "provider returned error", "error", providerErr)
		h.fail(c, tagProviderError)
		return
	}
	code := c.Query("code")
	if code == "" {
		h.fail(c, tagNoCode)
		return
	}
	gotState := c.Query("state")
	if wantState == "" || subtle.ConstantTimeCompare([]byte(wantState), []byte(gotState)) != 1 {
		h.fail(c, tagInvalidState)
		return
	}

	s, err := h.oauthUsecase.HandleCallback(c.Request.Context(), code)
	if err != nil {
		tag := usecase.TagCallbackFailed
		var cbErr *usecase.CallbackError
		if errors.As(err, &cbErr) {
			tag = cbErr.Tag
		}
		h.logger.ErrorContext(c.Request.Context(), "oauth callback", "tag", tag, "error", err)
		h.fail(c, tag)
		return
	}

	h.cookies.setSession(c, s)
	c.Redirect(http.StatusFound, h.publicBaseURL+"/dashboard?token="+url.QueryEscape(s.AccessToken))
}

func (h *OAuthHandler) fail(c *gin.Context, tag string) {
	c.Redirect(http.StatusFound, h.publicBaseURL+"/?error="+url.QueryEscape(tag))
}
