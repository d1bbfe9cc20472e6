package handler

import (
	"net/http"

	"github.com/ErlanBelekov/hdnotes/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// GET /user
// The user is loaded by middleware.EnsureUser; OTP state is never exposed.
func (h *UserHandler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
		return
	}
	c.JSON(http.StatusOK, u.Sanitized())
}
