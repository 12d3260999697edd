package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Unique constraint names, as declared in the migrations.
const (
	ConstraintUsername = "users_username_key"
	ConstraintEmail    = "users_email_key"
	ConstraintFilename = "files_user_id_filename_key"
	ConstraintLinkKey  = "files_link_key_key"
)

type UniqueViolationError struct {
	Constraint string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint %q violated", e.Constraint)
}

func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrDuplicate
}

// ViolatedConstraint returns the constraint behind a duplicate error, or "".
func ViolatedConstraint(err error) string {
	var uv *UniqueViolationError
	if errors.As(err, &uv) {
		return uv.Constraint
	}
	return ""
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return &UniqueViolationError{Constraint: pqErr.Constraint}
	}
	return err
}
