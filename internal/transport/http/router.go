package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/hdnotes/internal/transport/http/handler"
	"github.com/ErlanBelekov/hdnotes/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Auth  *handler.AuthHandler
	OAuth *handler.OAuthHandler
	User  *handler.UserHandler
	Note  *handler.NoteHandler
}

type Options struct {
	// AllowedOrigin is the front end allowed to call the API with credentials.
	AllowedOrigin string
	Verifier      middleware.TokenVerifier
	Users         middleware.UserFinder
}

func NewRouter(logger *slog.Logger, h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(sloggin.New(logger))
	// Ahead of CORS so rejected origins are still counted.
	r.Use(middleware.Metrics())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(opts.AllowedOrigin))

	// Public auth routes
	r.POST("/signup", h.Auth.Signup)
	r.POST("/signin", h.Auth.Signin)
	r.POST("/verify-otp", h.Auth.VerifyOTP)
	r.POST("/refresh", h.Auth.Refresh)
	r.POST("/logout", h.Auth.Logout)

	r.GET("/oauth/start", h.OAuth.Start)
	r.GET("/oauth/callback", h.OAuth.Callback)

	authMW := middleware.Auth(opts.Verifier)
	ensureUser := middleware.EnsureUser(opts.Users, logger)

	r.GET("/user", authMW, ensureUser, h.User.Me)

	// Protected note routes
	notes := r.Group("/notes", authMW, ensureUser)
	notes.GET("", h.Note.List)
	notes.POST("", h.Note.Create)
	notes.GET("/:id", h.Note.GetByID)
	notes.PUT("/:id", h.Note.Update)
	notes.DELETE("/:id", h.Note.Delete)

	return r
}
