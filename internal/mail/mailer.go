package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"personahub/api/internal/config"
)

// Mailer is the delivery collaborator. Actual transport lives outside
// this service; deployments plug in their provider of choice.
type Mailer interface {
	SendVerification(ctx context.Context, to string, token string) error
	SendPasswordReset(ctx context.Context, to string, token string) error
}

// LogMailer writes the would-be emails to the log. It is the
// development implementation and the fallback when no provider is
// configured.
type LogMailer struct {
	cfg config.MailConfig
	log zerolog.Logger
}

func NewLogMailer(cfg config.MailConfig, log zerolog.Logger) *LogMailer {
	return &LogMailer{cfg: cfg, log: log}
}

func (m *LogMailer) SendVerification(ctx context.Context, to string, token string) error {
	link := fmt.Sprintf("%s/api/v1/auth/verify?token=%s", m.cfg.BaseURL, token)
	m.log.Info().
		Str("from", m.cfg.FromAddress).
		Str("to", to).
		Str("link", link).
		Msg("verification email")
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to string, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.cfg.BaseURL, token)
	m.log.Info().
		Str("from", m.cfg.FromAddress).
		Str("to", to).
		Str("link", link).
		Msg("password reset email")
	return nil
}
