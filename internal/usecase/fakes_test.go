package usecase_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
)

// memUsers mirrors the conditional-write semantics of the real stores.
type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	seq     int

	linkErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: make(map[string]*domain.User)}
}

func (r *memUsers) put(u domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if u.ID == "" {
		u.ID = "user-" + strconv.Itoa(r.seq)
	}
	r.byEmail[u.Email] = &u
	return clone(&u)
}

func (r *memUsers) get(email string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byEmail[email]; ok {
		return clone(u)
	}
	return nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			return clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) FindVerifiedByEmail(_ context.Context, email string) (*domain.User, error) {
	if u := r.get(email); u != nil && u.IsVerified {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) UpsertPending(_ context.Context, p domain.PendingUser) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hash, exp := p.CodeHash, p.ExpiresAt
	u, ok := r.byEmail[p.Email]
	if ok {
		if u.IsVerified {
			return nil, domain.ErrConflict
		}
		u.DisplayName = p.DisplayName
		if p.ExternalID != nil {
			u.ExternalID = p.ExternalID
			u.AuthProvider = domain.ProviderGoogle
		}
		u.OTPCodeHash, u.OTPExpiresAt = &hash, &exp
		return clone(u), nil
	}

	r.seq++
	u = &domain.User{
		ID:           "user-" + strconv.Itoa(r.seq),
		Email:        p.Email,
		DisplayName:  p.DisplayName,
		AuthProvider: p.Provider(),
		ExternalID:   p.ExternalID,
		OTPCodeHash:  &hash,
		OTPExpiresAt: &exp,
		CreatedAt:    time.Now(),
	}
	r.byEmail[p.Email] = u
	return clone(u), nil
}

func (r *memUsers) SetChallenge(_ context.Context, userID, codeHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == userID {
			u.OTPCodeHash, u.OTPExpiresAt = &codeHash, &expiresAt
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (r *memUsers) ClearChallenge(_ context.Context, userID, codeHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == userID && u.OTPCodeHash != nil && *u.OTPCodeHash == codeHash {
			u.OTPCodeHash, u.OTPExpiresAt = nil, nil
		}
	}
	return nil
}

func (r *memUsers) ConsumeChallenge(_ context.Context, email, codeHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok || u.OTPCodeHash == nil || *u.OTPCodeHash != codeHash || !u.OTPExpiresAt.After(now) {
		return nil, domain.ErrOTPInvalid
	}
	u.IsVerified = true
	u.OTPCodeHash, u.OTPExpiresAt = nil, nil
	u.LastLoginAt = &now
	return clone(u), nil
}

func (r *memUsers) LinkOAuth(_ context.Context, id domain.OAuthIdentity) (*domain.User, error) {
	if r.linkErr != nil {
		return nil, r.linkErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ext, login := id.ExternalID, id.LoginAt
	u, ok := r.byEmail[id.Email]
	if !ok {
		r.seq++
		u = &domain.User{
			ID:          "user-" + strconv.Itoa(r.seq),
			Email:       id.Email,
			DisplayName: id.DisplayName,
			CreatedAt:   login,
		}
		r.byEmail[id.Email] = u
	}
	u.ExternalID = &ext
	u.AuthProvider = id.Provider
	u.IsVerified = true
	if id.AvatarURL != "" {
		u.AvatarURL = id.AvatarURL
	}
	u.OTPCodeHash, u.OTPExpiresAt = nil, nil
	u.LastLoginAt = &login
	return clone(u), nil
}

func (r *memUsers) PurgeExpiredChallenges(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byEmail {
		if u.OTPExpiresAt != nil && !u.OTPExpiresAt.After(now) {
			u.OTPCodeHash, u.OTPExpiresAt = nil, nil
			n++
		}
	}
	return n, nil
}

type sentOTP struct {
	to, code, firstName string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (n *fakeNotifier) SendOTP(_ context.Context, to, code, firstName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentOTP{to: to, code: code, firstName: firstName})
	return nil
}

func (n *fakeNotifier) last() sentOTP {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentOTP{}
	}
	return n.sent[len(n.sent)-1]
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// codeSeq hands out fixed codes in order.
func codeSeq(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}
