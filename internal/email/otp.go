package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/metrics"
)

const (
	otpSubject     = "Your HD Notes verification code"
	defaultTimeout = 10 * time.Second
)

var otpHTML = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="text-align: center;">HD Notes</h1>
  <h2>Email Verification</h2>
  <p>Hello{{if .FirstName}} {{.FirstName}}{{end}},</p>
  <p>Your verification code is:</p>
  <p style="font-size: 2.5rem; letter-spacing: 0.2em; font-weight: bold; text-align: center;">{{.Code}}</p>
  <p>This code will expire in {{.TTLMinutes}} minutes.</p>
  <p>If you didn't request this verification, please ignore this email.</p>
</div>`))

const otpText = `HD Notes Verification

Hello%s,

Your verification code is: %s

This code will expire in %d minutes.

If you didn't request this verification, please ignore this email.

--
HD Notes Team`

// OTPNotifier delivers one-time passcodes by email.
type OTPNotifier struct {
	sender  Sender
	logger  *slog.Logger
	ttl     time.Duration
	timeout time.Duration
}

// NewOTPNotifier wraps sender. ttl is only quoted in the email body.
func NewOTPNotifier(sender Sender, ttl time.Duration, logger *slog.Logger) *OTPNotifier {
	return &OTPNotifier{
		sender:  sender,
		logger:  logger.With("component", "otp_notifier"),
		ttl:     ttl,
		timeout: defaultTimeout,
	}
}

// SendOTP emails code to the address. Every failure wraps domain.ErrNotifier.
func (n *OTPNotifier) SendOTP(ctx context.Context, to, code, firstName string) error {
	msg, err := n.render(to, code, firstName)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotifier, err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	err = n.sender.Send(ctx, msg)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EmailSendDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err != nil {
		n.logger.ErrorContext(ctx, "otp email failed", "to", to, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrNotifier, err)
	}
	return nil
}

func (n *OTPNotifier) render(to, code, firstName string) (Message, error) {
	minutes := int(n.ttl / time.Minute)

	var html bytes.Buffer
	err := otpHTML.Execute(&html, struct {
		FirstName  string
		Code       string
		TTLMinutes int
	}{firstName, code, minutes})
	if err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}

	greeting := ""
	if firstName != "" {
		greeting = " " + firstName
	}

	return Message{
		To:      to,
		Subject: otpSubject,
		HTML:    html.String(),
		Text:    fmt.Sprintf(otpText, greeting, code, minutes),
	}, nil
}
