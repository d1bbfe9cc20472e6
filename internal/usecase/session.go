package usecase

import (
	"fmt"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/metrics"
	"github.com/ErlanBelekov/hdnotes/internal/session"
)

type SessionIssuer interface {
	MintPair(userID, email string) (*session.Pair, error)
	VerifyRefresh(raw string) (string, error)
}

// Session is the result of every successful sign-in.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *domain.User
}

func mintSession(issuer SessionIssuer, user *domain.User, method string) (*Session, error) {
	pair, err := issuer.MintPair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("mint session: %w", err)
	}
	metrics.SessionsIssuedTotal.WithLabelValues(method).Inc()
	return &Session{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		User:             user,
	}, nil
}
