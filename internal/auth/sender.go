package auth

import (
	"context"

	"github.com/rs/zerolog"
)

// Sender delivers verification and reset tokens to the user. Actual
// SMTP lives behind this boundary; the default implementation just logs
// the token, which is what development and tests want.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) SendVerificationEmail(_ context.Context, to, token string) error {
	s.Logger.Info().Str("to", to).Str("token", token).Msg("verification email")
	return nil
}

func (s LogSender) SendPasswordResetEmail(_ context.Context, to, token string) error {
	s.Logger.Info().Str("to", to).Str("token", token).Msg("password reset email")
	return nil
}
