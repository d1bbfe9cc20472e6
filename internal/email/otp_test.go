package email_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/email"
)

type fakeSender struct {
	send func(ctx context.Context, msg email.Message) error
}

func (s *fakeSender) Send(ctx context.Context, msg email.Message) error {
	return s.send(ctx, msg)
}

func newNotifier(s email.Sender) *email.OTPNotifier {
	return email.NewOTPNotifier(s, 10*time.Minute, slog.Default())
}

func TestSendOTP_RendersCodeAndName(t *testing.T) {
	var got email.Message
	s := &fakeSender{send: func(_ context.Context, msg email.Message) error {
		got = msg
		return nil
	}}

	if err := newNotifier(s).SendOTP(context.Background(), "a@x.com", "482913", "Ada"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.To != "a@x.com" {
		t.Errorf("to = %q, want a@x.com", got.To)
	}
	for _, body := range []string{got.HTML, got.Text} {
		if !strings.Contains(body, "482913") {
			t.Errorf("body missing code: %q", body)
		}
		if !strings.Contains(body, "Hello Ada") {
			t.Errorf("body missing greeting: %q", body)
		}
		if !strings.Contains(body, "10 minutes") {
			t.Errorf("body missing expiry: %q", body)
		}
	}
}

func TestSendOTP_EscapesNameInHTML(t *testing.T) {
	var got email.Message
	s := &fakeSender{send: func(_ context.Context, msg email.Message) error {
		got = msg
		return nil
	}}

	if err := newNotifier(s).SendOTP(context.Background(), "a@x.com", "111111", "<b>x</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got.HTML, "<b>x</b>") {
		t.Errorf("html contains unescaped name: %q", got.HTML)
	}
}

func TestSendOTP_BoundsSendWithDeadline(t *testing.T) {
	s := &fakeSender{send: func(ctx context.Context, _ email.Message) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("send context has no deadline")
		}
		return nil
	}}

	if err := newNotifier(s).SendOTP(context.Background(), "a@x.com", "111111", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendOTP_SenderError_WrapsErrNotifier(t *testing.T) {
	sendErr := errors.New("resend unavailable")
	s := &fakeSender{send: func(_ context.Context, _ email.Message) error { return sendErr }}

	err := newNotifier(s).SendOTP(context.Background(), "a@x.com", "111111", "")
	if !errors.Is(err, domain.ErrNotifier) {
		t.Errorf("want ErrNotifier, got %v", err)
	}
	if !errors.Is(err, sendErr) {
		t.Errorf("want wrapped sendErr, got %v", err)
	}
}
