package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"animehub/pkg/database"
	"animehub/pkg/models"
)

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenUsed    = errors.New("auth: token already used")
)

// CreateToken stores a verification token. The token value itself is
// generated by the caller (uuid).
func (r *Repo) CreateToken(ctx context.Context, t models.VerificationToken) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO verification_tokens (token, user_id, kind, expires_at)
		VALUES (?, ?, ?, ?)
	`, t.Token, t.UserID, t.Kind, t.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("create token: %w", database.MapError(err))
	}
	return nil
}

func (r *Repo) GetToken(ctx context.Context, token string) (*models.VerificationToken, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT token, user_id, kind, expires_at, used_at, created_at
		FROM verification_tokens
		WHERE token = ?
	`, token)

	var (
		t      models.VerificationToken
		usedAt sql.NullTime
	)
	if err := row.Scan(&t.Token, &t.UserID, &t.Kind, &t.ExpiresAt, &usedAt, &t.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	if usedAt.Valid {
		u := usedAt.Time
		t.UsedAt = &u
	}
	return &t, nil
}

// ConsumeToken marks a token used, exactly once. The guarded update is
// what makes two concurrent consumers safe: only one sees a row flip
// from unused to used, the other gets ErrTokenUsed. Expired tokens are
// rejected without being consumed.
func (r *Repo) ConsumeToken(ctx context.Context, token, kind string, now time.Time) (*models.VerificationToken, error) {
	t, err := r.GetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Kind != kind {
		return nil, fmt.Errorf("consume token: %w", database.ErrNotFound)
	}
	if t.UsedAt != nil {
		return nil, ErrTokenUsed
	}
	if now.After(t.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE verification_tokens
		SET used_at = ?
		WHERE token = ? AND used_at IS NULL
	`, now.UTC(), token)
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// lost the race to another consumer
		return nil, ErrTokenUsed
	}

	used := now.UTC()
	t.UsedAt = &used
	return t, nil
}

// DeleteExpiredTokens clears tokens past their expiry, used or not.
// Called from the maintenance sweep.
func (r *Repo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM verification_tokens WHERE expires_at < ?
	`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
