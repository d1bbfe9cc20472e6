package domain

import (
	"strings"
	"time"
)

type AuthProvider string

const (
	ProviderEmail  AuthProvider = "email"
	ProviderGoogle AuthProvider = "google"
)

type User struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarURL    string
	IsVerified   bool
	AuthProvider AuthProvider
	ExternalID   *string // provider subject, set once the account used OAuth

	// OTPCodeHash and OTPExpiresAt are set and cleared together.
	OTPCodeHash  *string
	OTPExpiresAt *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPendingChallenge reports whether an OTP challenge is stored and still valid at now.
func (u *User) HasPendingChallenge(now time.Time) bool {
	return u.OTPCodeHash != nil && u.OTPExpiresAt != nil && u.OTPExpiresAt.After(now)
}

// PendingUser is the input of a signup: the record is created unverified,
// or an existing unverified record is refreshed.
type PendingUser struct {
	Email       string
	DisplayName string
	ExternalID  *string
	CodeHash    string
	ExpiresAt   time.Time
}

// Provider returns the auth provider implied by the signup input.
func (p PendingUser) Provider() AuthProvider {
	if p.ExternalID != nil {
		return ProviderGoogle
	}
	return ProviderEmail
}

// OAuthIdentity is what the provider vouched for after a successful callback.
type OAuthIdentity struct {
	ExternalID  string
	Email       string
	DisplayName string
	AvatarURL   string
	Provider    AuthProvider
	LoginAt     time.Time
}

// Profile is the client-facing view of a user. OTP state never leaves the service.
type Profile struct {
	ID           string       `json:"_id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Avatar       string       `json:"avatar"`
	IsVerified   bool         `json:"isVerified"`
	AuthProvider AuthProvider `json:"authProvider"`
	CreatedAt    time.Time    `json:"createdAt"`
}

func (u *User) Sanitized() Profile {
	return Profile{
		ID:           u.ID,
		Name:         u.DisplayName,
		Email:        u.Email,
		Avatar:       u.AvatarURL,
		IsVerified:   u.IsVerified,
		AuthProvider: u.AuthProvider,
		CreatedAt:    u.CreatedAt,
	}
}

// FirstName is the greeting name used in emails.
func FirstName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
