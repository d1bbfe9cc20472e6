// Package session mints and verifies the signed bearer tokens handed to
// clients after OTP or OAuth sign-in. Tokens are stateless.
package session

import (
	"fmt"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTTL  = 7 * 24 * time.Hour
	RefreshTTL = 30 * 24 * time.Hour

	typeRefresh = "refresh"
)

type Claims struct {
	Email string `json:"email,omitempty"`
	Type  string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// Identity is what a verified access token asserts.
type Identity struct {
	UserID string
	Email  string
}

type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type Issuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Issuer)

// WithClock replaces time.Now for minting and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(accessKey, refreshKey []byte, opts ...Option) *Issuer {
	i := &Issuer{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  AccessTTL,
		refreshTTL: RefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Mint signs an access token for the user.
func (i *Issuer) Mint(userID, email string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.accessTTL)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// MintPair signs an access token and a refresh token. The refresh token
// carries only the user id and is signed with the refresh key.
func (i *Issuer) MintPair(userID, email string) (*Pair, error) {
	access, accessExp, err := i.Mint(userID, email)
	if err != nil {
		return nil, err
	}

	now := i.now()
	refreshExp := now.Add(i.refreshTTL)
	claims := Claims{
		Type: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshKey)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks an access token. Every failure is domain.ErrTokenInvalid.
func (i *Issuer) Verify(raw string) (*Identity, error) {
	claims, err := i.parse(raw, i.accessKey)
	if err != nil || claims.Type != "" {
		return nil, domain.ErrTokenInvalid
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// VerifyRefresh checks a refresh token and returns the user id it was minted for.
func (i *Issuer) VerifyRefresh(raw string) (string, error) {
	claims, err := i.parse(raw, i.refreshKey)
	if err != nil || claims.Type != typeRefresh {
		return "", domain.ErrTokenInvalid
	}
	return claims.Subject, nil
}

func (i *Issuer) parse(raw string, key []byte) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
