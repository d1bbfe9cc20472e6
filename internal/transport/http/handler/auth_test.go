package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/transport/http/handler"
	"github.com/ErlanBelekov/hdnotes/internal/usecase"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// ---- fakes ----

type fakeAuthUsecase struct {
	signup    func(ctx context.Context, in usecase.SignupInput) (string, error)
	signin    func(ctx context.Context, email string) (string, error)
	verifyOTP func(ctx context.Context, email, code string) (*usecase.Session, error)
	refresh   func(ctx context.Context, refreshToken string) (*usecase.Session, error)
}

func (f *fakeAuthUsecase) Signup(ctx context.Context, in usecase.SignupInput) (string, error) {
	return f.signup(ctx, in)
}

func (f *fakeAuthUsecase) Signin(ctx context.Context, email string) (string, error) {
	return f.signin(ctx, email)
}

func (f *fakeAuthUsecase) VerifyOTP(ctx context.Context, email, code string) (*usecase.Session, error) {
	return f.verifyOTP(ctx, email, code)
}

func (f *fakeAuthUsecase) Refresh(ctx context.Context, refreshToken string) (*usecase.Session, error) {
	return f.refresh(ctx, refreshToken)
}

// ---- helpers ----

func newAuthEngine(uc *fakeAuthUsecase) *gin.Engine {
	h := handler.NewAuthHandler(uc, handler.Cookies{Secure: true}, discard)
	r := gin.New()
	r.POST("/signup", h.Signup)
	r.POST("/signin", h.Signin)
	r.POST("/verify-otp", h.VerifyOTP)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", h.Logout)
	return r
}

func do(r *gin.Engine, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&m); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return m
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

var testSession = &usecase.Session{
	AccessToken:  "access.jwt",
	RefreshToken: "refresh.jwt",
	User: &domain.User{
		ID:           "user-1",
		Email:        "a@x.com",
		DisplayName:  "Ada",
		IsVerified:   true,
		AuthProvider: domain.ProviderEmail,
		OTPCodeHash:  strPtr("secret-hash"),
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	},
}

func strPtr(s string) *string { return &s }

// ---- Signup ----

func TestSignup_Success(t *testing.T) {
	var got usecase.SignupInput
	uc := &fakeAuthUsecase{signup: func(_ context.Context, in usecase.SignupInput) (string, error) {
		got = in
		return "a@x.com", nil
	}}

	w := do(newAuthEngine(uc), http.MethodPost, "/signup", `{"name":"Ada Lovelace","email":"A@x.com","dateOfBirth":"1815-12-10","googleId":"g-1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	body := decode(t, w)
	if body["success"] != true || body["email"] != "a@x.com" {
		t.Errorf("body = %v", body)
	}
	if got.Name != "Ada Lovelace" || got.Email != "A@x.com" || got.GoogleID != "g-1" {
		t.Errorf("usecase input = %+v", got)
	}
}

func TestSignup_FirstAndLastNameFallback(t *testing.T) {
	var got usecase.SignupInput
	uc := &fakeAuthUsecase{signup: func(_ context.Context, in usecase.SignupInput) (string, error) {
		got = in
		return in.Email, nil
	}}

	do(newAuthEngine(uc), http.MethodPost, "/signup", `{"firstName":"Ada","lastName":"King","email":"a@x.com"}`)

	if got.Name != "Ada King" {
		t.Errorf("name = %q, want Ada King", got.Name)
	}
}

func TestSignup_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation", &domain.ValidationError{Field: "email", Message: "Please enter a valid email address"}, http.StatusBadRequest, "Please enter a valid email address"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "User already exists with this email"},
		{"notifier", errors.Join(domain.ErrNotifier, errors.New("resend 500")), http.StatusInternalServerError, "Failed to send verification email. Please try again."},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error. Please try again."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			uc := &fakeAuthUsecase{signup: func(context.Context, usecase.SignupInput) (string, error) { return "", tc.err }}

			w := do(newAuthEngine(uc), http.MethodPost, "/signup", `{"name":"Ada","email":"a@x.com"}`)

			if w.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tc.wantCode)
			}
			if got := decode(t, w)["error"]; got != tc.wantMsg {
				t.Errorf("error = %q, want %q", got, tc.wantMsg)
			}
		})
	}
}

func TestSignup_MalformedJSON_Returns400(t *testing.T) {
	uc := &fakeAuthUsecase{}
	if w := do(newAuthEngine(uc), http.MethodPost, "/signup", `{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---- Signin ----

func TestSignin(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"success", nil, http.StatusOK},
		{"not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"invalid email", &domain.ValidationError{Field: "email", Message: "Email is required"}, http.StatusBadRequest},
		{"notifier", domain.ErrNotifier, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			uc := &fakeAuthUsecase{signin: func(_ context.Context, email string) (string, error) {
				return email, tc.err
			}}

			w := do(newAuthEngine(uc), http.MethodPost, "/signin", `{"email":"a@x.com"}`)

			if w.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tc.wantCode)
			}
		})
	}
}

// ---- VerifyOTP ----

func TestVerifyOTP_Success_SetsCookiesAndHidesOTPState(t *testing.T) {
	uc := &fakeAuthUsecase{verifyOTP: func(_ context.Context, email, code string) (*usecase.Session, error) {
		if email != "a@x.com" || code != "482913" {
			t.Errorf("got %q %q", email, code)
		}
		return testSession, nil
	}}

	w := do(newAuthEngine(uc), http.MethodPost, "/verify-otp", `{"email":"a@x.com","otp":"482913"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	body := decode(t, w)
	if body["token"] != "access.jwt" || body["refresh_token"] != "refresh.jwt" {
		t.Errorf("body = %v", body)
	}
	user, _ := body["user"].(map[string]any)
	if user["_id"] != "user-1" || user["isVerified"] != true {
		t.Errorf("user = %v", user)
	}
	if strings.Contains(w.Body.String(), "secret-hash") || strings.Contains(w.Body.String(), "otp") {
		t.Error("response must not expose OTP state")
	}

	tok := cookieByName(w, "token")
	if tok == nil || tok.Value != "access.jwt" || !tok.HttpOnly || !tok.Secure {
		t.Errorf("token cookie = %+v", tok)
	}
	if tok != nil && tok.MaxAge != 7*24*60*60 {
		t.Errorf("token cookie MaxAge = %d", tok.MaxAge)
	}
	if ref := cookieByName(w, "refresh_token"); ref == nil || ref.Value != "refresh.jwt" {
		t.Errorf("refresh cookie = %+v", ref)
	}
}

func TestVerifyOTP_Invalid_Returns400(t *testing.T) {
	uc := &fakeAuthUsecase{verifyOTP: func(context.Context, string, string) (*usecase.Session, error) {
		return nil, domain.ErrOTPInvalid
	}}

	w := do(newAuthEngine(uc), http.MethodPost, "/verify-otp", `{"email":"a@x.com","otp":"000000"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if cookieByName(w, "token") != nil {
		t.Error("no cookie on failure")
	}
}

func TestVerifyOTP_MissingFields_Returns400(t *testing.T) {
	w := do(newAuthEngine(&fakeAuthUsecase{}), http.MethodPost, "/verify-otp", `{"email":"a@x.com"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := decode(t, w)["error"]; got != "Email and OTP are required" {
		t.Errorf("error = %q", got)
	}
}

// ---- Refresh / Logout ----

func TestRefresh_FromCookie(t *testing.T) {
	uc := &fakeAuthUsecase{refresh: func(_ context.Context, tok string) (*usecase.Session, error) {
		if tok != "old-refresh" {
			return nil, domain.ErrTokenInvalid
		}
		return testSession, nil
	}}

	w := do(newAuthEngine(uc), http.MethodPost, "/refresh", "", &http.Cookie{Name: "refresh_token", Value: "old-refresh"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if ck := cookieByName(w, "token"); ck == nil || ck.Value != "access.jwt" {
		t.Errorf("token cookie = %+v", ck)
	}
}

func TestRefresh_FromBody_Invalid(t *testing.T) {
	uc := &fakeAuthUsecase{refresh: func(context.Context, string) (*usecase.Session, error) {
		return nil, domain.ErrTokenInvalid
	}}

	w := do(newAuthEngine(uc), http.MethodPost, "/refresh", `{"refresh_token":"forged"}`)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRefresh_Missing_Returns401(t *testing.T) {
	if w := do(newAuthEngine(&fakeAuthUsecase{}), http.MethodPost, "/refresh", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLogout_ClearsCookies(t *testing.T) {
	w := do(newAuthEngine(&fakeAuthUsecase{}), http.MethodPost, "/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	for _, name := range []string{"token", "refresh_token"} {
		ck := cookieByName(w, name)
		if ck == nil || ck.Value != "" || ck.MaxAge >= 0 {
			t.Errorf("%s cookie not cleared: %+v", name, ck)
		}
	}
}
