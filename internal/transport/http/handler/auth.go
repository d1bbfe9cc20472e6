package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Signup(ctx context.Context, in usecase.SignupInput) (string, error)
	Signin(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (*usecase.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*usecase.Session, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	cookies     Cookies
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, cookies Cookies, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		cookies:     cookies,
		logger:      logger.With("component", "auth_handler"),
	}
}

type signupRequest struct {
	Name        string `json:"name"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	DateOfBirth string `json:"dateOfBirth"`
	GoogleID    string `json:"googleId"`
}

type signinRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp"   binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	Message      string         `json:"message"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token"`
	User         domain.Profile `json:"user"`
}

// POST /signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(req.FirstName + " " + req.LastName)
	}

	addr, err := h.authUsecase.Signup(c.Request.Context(), usecase.SignupInput{
		Name:     name,
		Email:    req.Email,
		GoogleID: req.GoogleID,
	})
	if err != nil {
		h.otpError(c, "signup", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent successfully to your email",
		"email":   addr,
	})
}

// POST /signin
func (h *AuthHandler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	addr, err := h.authUsecase.Signin(c.Request.Context(), req.Email)
	if err != nil {
		h.otpError(c, "signin", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP sent successfully to your email",
		"email":   addr,
	})
}

func (h *AuthHandler) otpError(c *gin.Context, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errNoVerifiedUser})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": errUserExists})
	case errors.Is(err, domain.ErrNotifier):
		h.logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errEmailNotSent})
	default:
		h.logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}

// POST /verify-otp
// Returns the session in the body and as http-only cookies.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEmailAndOTP})
		return
	}

	s, err := h.authUsecase.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		if errors.Is(err, domain.ErrOTPInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errOTPInvalid})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "verify otp", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.cookies.setSession(c, s)
	c.JSON(http.StatusOK, sessionResponse{
		Message:      "Email verified successfully",
		Token:        s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         s.User.Sanitized(),
	})
}

// POST /refresh
// The refresh token is read from the body, falling back to the cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(refreshCookie)
	}
	if req.RefreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errRefreshTokenMiss})
		return
	}

	s, err := h.authUsecase.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "refresh session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.cookies.setSession(c, s)
	c.JSON(http.StatusOK, sessionResponse{
		Message:      "Session refreshed",
		Token:        s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         s.User.Sanitized(),
	})
}

// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookies.clearSession(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
