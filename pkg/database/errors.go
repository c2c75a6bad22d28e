package database

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Typed storage failures. Repos return these so callers can branch on the
// violation kind without parsing driver messages.
var (
	// ErrNotFound is a lookup miss. Most Get* methods return (nil, nil)
	// instead; this is for operations where the caller asked for a row
	// that must exist (token consumption, guarded updates).
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is a natural-key collision that is not a legitimate
	// idempotent retry (e.g. an episode URL already owned by a different
	// anime).
	ErrDuplicateKey = errors.New("duplicate key conflict")

	// ErrForeignKey is a reference to a parent row that does not exist.
	ErrForeignKey = errors.New("foreign key violation")
)

// MapError translates driver-level constraint violations into the typed
// sentinels above. Errors that are not constraint violations pass through
// unchanged so the usual %w-wrapping still applies.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ErrDuplicateKey
		case sqlite3.ErrConstraintForeignKey:
			return ErrForeignKey
		}
	}
	return err
}
