package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
)

// UserRepository is the credential store. Challenge mutations are single
// conditional writes so concurrent requests cannot consume one code twice.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindVerifiedByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpsertPending creates an unverified user or refreshes an unverified one.
	// Returns domain.ErrConflict when a verified user owns the email.
	UpsertPending(ctx context.Context, p domain.PendingUser) (*domain.User, error)
	SetChallenge(ctx context.Context, userID, codeHash string, expiresAt time.Time) error
	// ClearChallenge removes the challenge only if codeHash is still the stored one.
	ClearChallenge(ctx context.Context, userID, codeHash string) error
	// ConsumeChallenge verifies the user and clears the challenge in one step.
	// Any mismatch returns domain.ErrOTPInvalid.
	ConsumeChallenge(ctx context.Context, email, codeHash string, now time.Time) (*domain.User, error)

	LinkOAuth(ctx context.Context, id domain.OAuthIdentity) (*domain.User, error)
	PurgeExpiredChallenges(ctx context.Context, now time.Time) (int, error)
}
