package repository

import (
	"errors"

	"user_management/internal/repository/db"
)

var (
	// ErrNotFound reports a lookup or delete of an id that has no row.
	ErrNotFound = errors.New("user not found")
	// ErrConflict reports a create that would overwrite an existing user,
	// or a write rejected by a unique key.
	ErrConflict = errors.New("user exists with different credentials")
)

func isUniqueViolation(err error) bool {
	return db.IsUniqueViolation(err)
}
