package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/metrics"
	"github.com/ErlanBelekov/hdnotes/internal/repository"
)

const (
	defaultOTPTTL = 10 * time.Minute

	otpMin   = 100000
	otpRange = 900000
)

// Notifier delivers an OTP to an email address.
type Notifier interface {
	SendOTP(ctx context.Context, to, code, firstName string) error
}

type AuthUsecase struct {
	users    repository.UserRepository
	notifier Notifier
	sessions SessionIssuer
	logger   *slog.Logger
	otpTTL   time.Duration
	now      func() time.Time
	newCode  func() (string, error)
}

type AuthOption func(*AuthUsecase)

func WithClock(now func() time.Time) AuthOption {
	return func(u *AuthUsecase) { u.now = now }
}

func WithCodeGenerator(gen func() (string, error)) AuthOption {
	return func(u *AuthUsecase) { u.newCode = gen }
}

func NewAuthUsecase(users repository.UserRepository, notifier Notifier, sessions SessionIssuer, logger *slog.Logger, opts ...AuthOption) *AuthUsecase {
	u := &AuthUsecase{
		users:    users,
		notifier: notifier,
		sessions: sessions,
		logger:   logger.With("component", "auth"),
		otpTTL:   defaultOTPTTL,
		now:      time.Now,
		newCode:  GenerateOTP,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type SignupInput struct {
	Name     string
	Email    string
	GoogleID string
}

// Signup creates an unverified user, or refreshes an existing unverified one,
// and emails it a fresh code. Returns the normalized email.
func (u *AuthUsecase) Signup(ctx context.Context, in SignupInput) (string, error) {
	emailAddr := domain.NormalizeEmail(in.Email)
	if err := domain.ValidateName(in.Name); err != nil {
		return "", err
	}
	if err := domain.ValidateEmail(emailAddr); err != nil {
		return "", err
	}

	code, codeHash, err := u.challenge()
	if err != nil {
		return "", err
	}

	pending := domain.PendingUser{
		Email:       emailAddr,
		DisplayName: strings.TrimSpace(in.Name),
		CodeHash:    codeHash,
		ExpiresAt:   u.now().Add(u.otpTTL),
	}
	if id := strings.TrimSpace(in.GoogleID); id != "" {
		pending.ExternalID = &id
	}

	user, err := u.users.UpsertPending(ctx, pending)
	if err != nil {
		return "", fmt.Errorf("upsert pending user: %w", err)
	}

	if err := u.deliver(ctx, "signup", user, code, codeHash); err != nil {
		return "", err
	}
	return emailAddr, nil
}

// Signin emails a code to an existing verified user.
func (u *AuthUsecase) Signin(ctx context.Context, emailAddr string) (string, error) {
	emailAddr = domain.NormalizeEmail(emailAddr)
	if err := domain.ValidateEmail(emailAddr); err != nil {
		return "", err
	}

	user, err := u.users.FindVerifiedByEmail(ctx, emailAddr)
	if err != nil {
		return "", fmt.Errorf("find verified user: %w", err)
	}

	code, codeHash, err := u.challenge()
	if err != nil {
		return "", err
	}
	if err := u.users.SetChallenge(ctx, user.ID, codeHash, u.now().Add(u.otpTTL)); err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}

	if err := u.deliver(ctx, "signin", user, code, codeHash); err != nil {
		return "", err
	}
	return emailAddr, nil
}

// VerifyOTP consumes the pending challenge and mints a session. Wrong, expired
// and missing codes all fail with domain.ErrOTPInvalid.
func (u *AuthUsecase) VerifyOTP(ctx context.Context, emailAddr, code string) (*Session, error) {
	emailAddr = domain.NormalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" || code == "" {
		metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrOTPInvalid
	}

	user, err := u.users.ConsumeChallenge(ctx, emailAddr, HashOTP(code), u.now())
	if err != nil {
		if errors.Is(err, domain.ErrOTPInvalid) {
			metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
			return nil, domain.ErrOTPInvalid
		}
		metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	metrics.OTPVerificationsTotal.WithLabelValues("success").Inc()

	return mintSession(u.sessions, user, "otp")
}

// Refresh trades a refresh token for a new pair. A token for a user that no
// longer exists is invalid.
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := u.sessions.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return mintSession(u.sessions, user, "refresh")
}

func (u *AuthUsecase) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (u *AuthUsecase) challenge() (code, codeHash string, err error) {
	code, err = u.newCode()
	if err != nil {
		return "", "", fmt.Errorf("generate otp: %w", err)
	}
	return code, HashOTP(code), nil
}

// deliver sends the code. On failure the challenge it issued is withdrawn so
// no undelivered code stays valid; the user record itself is kept.
func (u *AuthUsecase) deliver(ctx context.Context, flow string, user *domain.User, code, codeHash string) error {
	err := u.notifier.SendOTP(ctx, user.Email, code, domain.FirstName(user.DisplayName))
	if err == nil {
		metrics.OTPIssuedTotal.WithLabelValues(flow, "sent").Inc()
		return nil
	}
	metrics.OTPIssuedTotal.WithLabelValues(flow, "failed").Inc()

	if cerr := u.users.ClearChallenge(context.WithoutCancel(ctx), user.ID, codeHash); cerr != nil {
		u.logger.ErrorContext(ctx, "failed to withdraw undelivered otp", "user_id", user.ID, "error", cerr)
	}

	if !errors.Is(err, domain.ErrNotifier) {
		err = fmt.Errorf("%w: %w", domain.ErrNotifier, err)
	}
	return fmt.Errorf("send otp: %w", err)
}

// GenerateOTP draws a 6-digit code uniformly from [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// HashOTP is the stored form of a code; stores match on it, never on the code.
func HashOTP(code string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(code)))
}
