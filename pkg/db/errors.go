package db

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when the addressed row does not exist
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound is returned when an invite email matches no profile
	ErrUserNotFound = errors.New("no user with that email")
	// ErrOwnerRole is returned when a change would remove, demote or add a list owner
	ErrOwnerRole = errors.New("the owner role cannot be changed")
	// ErrInvalidVote is returned for vote values other than +1 and -1
	ErrInvalidVote = errors.New("vote value must be 1 or -1")
	// ErrInvalidRole is returned for role names outside owner, editor and viewer
	ErrInvalidRole = errors.New("unknown collaborator role")
	// ErrConflict is returned on a uniqueness violation
	ErrConflict = errors.New("already exists")
	// ErrProfileRequired is returned when the caller has no profile row yet
	ErrProfileRequired = errors.New("profile required")
)

const (
	// uniqueViolation is the SQLSTATE for unique constraint violations.
	uniqueViolation = "23505"
	// foreignKeyViolation is the SQLSTATE for a missing referenced row.
	foreignKeyViolation = "23503"
)

// translate maps driver errors onto the package sentinels; other errors
// are returned unchanged.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolation:
		return ErrConflict
	case foreignKeyViolation:
		return ErrNotFound
	}
	return err
}
