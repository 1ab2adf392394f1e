package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/kailas-cloud/vecspace/internal/domain"
)

// Op names for error context.
const (
	OpBegin  = "BEGIN"
	OpCommit = "COMMIT"
	OpExec   = "EXEC"
	OpQuery  = "QUERY"
	OpScan   = "SCAN"
)

// Error wraps an underlying driver error with the operation name.
// It matches domain.ErrStorageFailure under errors.Is.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "sqlite " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Is makes every store error a storage failure.
func (e *Error) Is(target error) bool { return target == domain.ErrStorageFailure }

// Wrap returns nil for nil and an *Error otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsUniqueViolation reports a PRIMARY KEY or UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// IsForeignKeyViolation reports a FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
