package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/hdnotes/config"
	"github.com/ErlanBelekov/hdnotes/internal/email"
	"github.com/ErlanBelekov/hdnotes/internal/health"
	"github.com/ErlanBelekov/hdnotes/internal/infrastructure/store"
	ctxlog "github.com/ErlanBelekov/hdnotes/internal/log"
	"github.com/ErlanBelekov/hdnotes/internal/metrics"
	"github.com/ErlanBelekov/hdnotes/internal/oauth"
	"github.com/ErlanBelekov/hdnotes/internal/session"
	httptransport "github.com/ErlanBelekov/hdnotes/internal/transport/http"
	"github.com/ErlanBelekov/hdnotes/internal/transport/http/handler"
	"github.com/ErlanBelekov/hdnotes/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, logger)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer st.Close()

	issuer := session.NewIssuer([]byte(cfg.JWTSecret), []byte(cfg.JWTRefreshSecret))
	cookies := handler.Cookies{Secure: cfg.SecureCookies()}

	// Auth
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	notifier := email.NewOTPNotifier(sender, 10*time.Minute, logger)
	authUsecase := usecase.NewAuthUsecase(st.Users, notifier, issuer, logger)
	authHandler := handler.NewAuthHandler(authUsecase, cookies, logger)

	// OAuth
	google := oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	oauthUsecase := usecase.NewOAuthUsecase(google, st.Users, issuer, logger)
	oauthHandler := handler.NewOAuthHandler(google, oauthUsecase, cookies, cfg.PublicBaseURL, logger)

	// Notes
	noteUsecase := usecase.NewNoteUsecase(st.Notes)
	noteHandler := handler.NewNoteHandler(noteUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{st.Driver: st}, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.Handlers{
			Auth:  authHandler,
			OAuth: oauthHandler,
			User:  handler.NewUserHandler(),
			Note:  noteHandler,
		}, httptransport.Options{
			AllowedOrigin: cfg.PublicBaseURL,
			Verifier:      issuer,
			Users:         st.Users,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "store", st.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
