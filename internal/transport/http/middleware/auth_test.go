package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/reqctx"
	"github.com/ErlanBelekov/hdnotes/internal/session"
	"github.com/ErlanBelekov/hdnotes/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKey        = "middleware-test-secret-32-chars!!"
	testRefreshKey = "middleware-refresh-secret-32-chr!"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newIssuer() *session.Issuer {
	return session.NewIssuer([]byte(testKey), []byte(testRefreshKey))
}

// newEngine builds a minimal gin engine with the Auth middleware protecting GET /protected.
// The handler writes the userID from context so we can assert it was set.
func newEngine() *gin.Engine {
	r := gin.New()
	r.GET("/protected", middleware.Auth(newIssuer()), func(c *gin.Context) {
		userID, _ := c.Get("userID")
		if reqctx.UserID(c.Request.Context()) != userID {
			c.String(http.StatusInternalServerError, "user id missing from request context")
			return
		}
		c.String(http.StatusOK, "%v", userID)
	})
	return r
}

func makeJWT(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return s
}

func serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	newEngine().ServeHTTP(w, req)
	return w
}

func TestAuth_MissingCredentials_Returns401(t *testing.T) {
	w := serve(httptest.NewRequest(http.MethodGet, "/protected", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_NonBearerScheme_Returns401(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	if w := serve(req); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_InvalidToken_Returns401(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")

	if w := serve(req); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ExpiredToken_Returns401(t *testing.T) {
	tok := makeJWT(t, []byte(testKey), jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	if w := serve(req); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_WrongSigningKey_Returns401(t *testing.T) {
	tok := makeJWT(t, []byte("different-key-that-is-32-chars!!"), jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	if w := serve(req); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_RefreshTokenRejected(t *testing.T) {
	pair, err := newIssuer().MintPair("user-1", "a@x.com")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)

	if w := serve(req); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ValidBearer_PassesAndSetsUserID(t *testing.T) {
	const userID = "user-abc"
	tok, _, err := newIssuer().Mint(userID, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := serve(req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != fmt.Sprintf("%v", userID) {
		t.Errorf("body = %q, want %q", got, userID)
	}
}

func TestAuth_ValidCookie_Passes(t *testing.T) {
	tok, _, err := newIssuer().Mint("user-cookie", "a@x.com")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tok})
	w := serve(req)

	if w.Code != http.StatusOK || w.Body.String() != "user-cookie" {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}

// ---- EnsureUser ----

type fakeUsers struct {
	findByID func(ctx context.Context, id string) (*domain.User, error)
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return f.findByID(ctx, id)
}

func ensureUserEngine(users *fakeUsers) *gin.Engine {
	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Next()
	}, middleware.EnsureUser(users, discardLogger()), func(c *gin.Context) {
		u, ok := middleware.CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, u.Email)
	})
	return r
}

func TestEnsureUser(t *testing.T) {
	tests := []struct {
		name     string
		find     func(context.Context, string) (*domain.User, error)
		wantCode int
	}{
		{
			name: "found",
			find: func(_ context.Context, id string) (*domain.User, error) {
				return &domain.User{ID: id, Email: "a@x.com"}, nil
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "vanished",
			find:     func(context.Context, string) (*domain.User, error) { return nil, domain.ErrUserNotFound },
			wantCode: http.StatusNotFound,
		},
		{
			name:     "store error",
			find:     func(context.Context, string) (*domain.User, error) { return nil, errors.New("db down") },
			wantCode: http.StatusInternalServerError,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ensureUserEngine(&fakeUsers{findByID: tc.find}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
			if w.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tc.wantCode)
			}
		})
	}
}
