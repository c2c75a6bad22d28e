package models

import "time"

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	GoogleID      string    `json:"-"`
	Name          string    `json:"name,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Verification token kinds.
const (
	TokenKindEmailVerification = "email_verification"
	TokenKindPasswordReset     = "password_reset"
)

// VerificationToken is single-use: UsedAt is set exactly once by the
// store; ExpiresAt is checked by the consumer, not enforced here.
type VerificationToken struct {
	Token     string     `json:"token"`
	UserID    string     `json:"userId"`
	Kind      string     `json:"kind"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
