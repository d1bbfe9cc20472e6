package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ErlanBelekov/hdnotes/internal/transport/http/handler"
	"github.com/gin-gonic/gin"
)

func TestMe_ReturnsSanitizedProfile(t *testing.T) {
	r := gin.New()
	r.GET("/user", func(c *gin.Context) {
		c.Set("user", testSession.User)
		c.Next()
	}, handler.NewUserHandler().Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["_id"] != "user-1" || body["email"] != "a@x.com" || body["authProvider"] != "email" {
		t.Errorf("body = %v", body)
	}
	if strings.Contains(w.Body.String(), "secret-hash") {
		t.Error("OTP hash leaked")
	}
}

func TestMe_WithoutUser_Returns401(t *testing.T) {
	r := gin.New()
	r.GET("/user", handler.NewUserHandler().Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
