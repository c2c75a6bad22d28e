package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"animehub/pkg/database"
	"animehub/pkg/models"
)

// Repo is the identity store over users. Token persistence lives in
// tokens.go on the same Repo.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) CreateUser(ctx context.Context, u models.User) error {
	var googleID any
	if u.GoogleID != "" {
		googleID = u.GoogleID
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, google_id, name, avatar, password_hash, email_verified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, googleID, u.Name, u.Avatar, u.PasswordHash, u.EmailVerified)
	if err != nil {
		return fmt.Errorf("create user: %w", database.MapError(err))
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	return r.getUser(ctx, `WHERE LOWER(email) = ?`, email)
}

func (r *Repo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getUser(ctx, `WHERE google_id = ?`, googleID)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `WHERE id = ?`, id)
}

func (r *Repo) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, email, google_id, name, avatar, password_hash, email_verified, created_at
		FROM users
	`+where, arg)

	var (
		u                            models.User
		googleID, name, avatar, hash sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &googleID, &name, &avatar, &hash,
		&u.EmailVerified, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.GoogleID = googleID.String
	u.Name = name.String
	u.Avatar = avatar.String
	u.PasswordHash = hash.String
	return &u, nil
}

// LinkGoogleID attaches a google identity to an existing account, so a
// password user logging in with Google keeps one account.
func (r *Repo) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET google_id = ? WHERE id = ?
	`, googleID, userID)
	if err != nil {
		return fmt.Errorf("link google id: %w", database.MapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("link google id: %w", database.ErrNotFound)
	}
	return nil
}

func (r *Repo) MarkEmailVerified(ctx context.Context, userID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET email_verified = 1 WHERE id = ?
	`, userID)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark email verified: %w", database.ErrNotFound)
	}
	return nil
}

func (r *Repo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET password_hash = ? WHERE id = ?
	`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update password: %w", database.ErrNotFound)
	}
	return nil
}

// DeleteUser removes the account. Verification tokens, history,
// favorites and subscriptions go with it via ON DELETE CASCADE.
func (r *Repo) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM users WHERE id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
