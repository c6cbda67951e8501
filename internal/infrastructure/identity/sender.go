package identity

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/ports"
)

// LogSender writes verification links to the log instead of sending mail.
type LogSender struct {
	baseURL string
}

var _ ports.VerificationSender = (*LogSender)(nil)

func NewLogSender(baseURL string) *LogSender {
	return &LogSender{baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LogSender) SendVerification(ctx context.Context, email string, token string) error {
	link := s.baseURL + "/api/v1/auth/verify?token=" + url.QueryEscape(token)
	logging.Info(ctx, "email verification link",
		slog.String("component", "identity"),
		slog.String("email", email),
		slog.String("link", link),
	)
	return nil
}
