package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/metrics"
	"github.com/ErlanBelekov/hdnotes/internal/oauth"
	"github.com/ErlanBelekov/hdnotes/internal/repository"
	"golang.org/x/oauth2"
)

// Error tags carried back to the front end on a failed callback.
const (
	TagTokenExchangeFailed = "token_exchange_failed"
	TagUserInfoFailed      = "user_info_failed"
	TagCallbackFailed      = "oauth_callback_failed"
)

const fallbackDisplayName = "User"

type OAuthProvider interface {
	Name() string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, tok *oauth2.Token) (*oauth.Profile, error)
}

// CallbackError is a failed callback. Tag is safe to show to the client.
type CallbackError struct {
	Tag string
	Err error
}

func (e *CallbackError) Error() string { return e.Tag + ": " + e.Err.Error() }

func (e *CallbackError) Unwrap() error { return e.Err }

type OAuthUsecase struct {
	provider OAuthProvider
	users    repository.UserRepository
	sessions SessionIssuer
	logger   *slog.Logger
	now      func() time.Time
}

func NewOAuthUsecase(provider OAuthProvider, users repository.UserRepository, sessions SessionIssuer, logger *slog.Logger) *OAuthUsecase {
	return &OAuthUsecase{
		provider: provider,
		users:    users,
		sessions: sessions,
		logger:   logger.With("component", "oauth"),
		now:      time.Now,
	}
}

// HandleCallback exchanges the authorization code, links the provider
// identity to the user with the same email (creating it if needed) and
// mints a session. Errors are *CallbackError.
func (u *OAuthUsecase) HandleCallback(ctx context.Context, code string) (*Session, error) {
	s, err := u.handleCallback(ctx, code)

	outcome := "success"
	var cbErr *CallbackError
	if errors.As(err, &cbErr) {
		outcome = cbErr.Tag
	}
	metrics.OAuthCallbacksTotal.WithLabelValues(u.provider.Name(), outcome).Inc()

	return s, err
}

func (u *OAuthUsecase) handleCallback(ctx context.Context, code string) (*Session, error) {
	tok, err := u.provider.Exchange(ctx, code)
	if err != nil {
		return nil, &CallbackError{Tag: TagTokenExchangeFailed, Err: fmt.Errorf("%w: %w", domain.ErrOAuthProvider, err)}
	}

	profile, err := u.provider.FetchProfile(ctx, tok)
	if err != nil {
		return nil, &CallbackError{Tag: TagUserInfoFailed, Err: fmt.Errorf("%w: %w", domain.ErrOAuthProvider, err)}
	}

	emailAddr := domain.NormalizeEmail(profile.Email)
	if err := domain.ValidateEmail(emailAddr); err != nil {
		return nil, &CallbackError{Tag: TagUserInfoFailed, Err: fmt.Errorf("%w: %w", domain.ErrOAuthProvider, err)}
	}

	user, err := u.users.LinkOAuth(ctx, domain.OAuthIdentity{
		ExternalID:  profile.ID,
		Email:       emailAddr,
		DisplayName: DisplayNameFromProfile(profile),
		AvatarURL:   profile.Picture,
		Provider:    domain.AuthProvider(u.provider.Name()),
		LoginAt:     u.now(),
	})
	if err != nil {
		return nil, &CallbackError{Tag: TagCallbackFailed, Err: err}
	}

	s, err := mintSession(u.sessions, user, "oauth")
	if err != nil {
		return nil, &CallbackError{Tag: TagCallbackFailed, Err: err}
	}
	return s, nil
}

// DisplayNameFromProfile prefers the full name, then given plus family name.
func DisplayNameFromProfile(p *oauth.Profile) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(p.GivenName + " " + p.FamilyName); name != "" {
		return name
	}
	return fallbackDisplayName
}
