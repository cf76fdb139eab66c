package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrStorage matches every StorageError via errors.Is.
	ErrStorage = errors.New("storage unavailable")
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on a unique constraint violation.
	ErrConflict = errors.New("record already exists")
)

// Postgres SQLSTATE codes.
const (
	pgUndefinedTable  = "42P01"
	pgUniqueViolation = "23505"
)

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
	// Missing is set when the underlying table does not exist yet.
	Missing bool
}

func (e *StorageError) Error() string {
	if e.Missing {
		return fmt.Sprintf("storage: %s: table missing: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// IsMissingTable reports whether err comes from a query against a table that was never migrated.
func IsMissingTable(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Missing
}

// wrap classifies a gorm error. Not-found and unique violations keep their sentinel
// so callers can map them, everything else becomes a StorageError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return &StorageError{Op: op, Err: err, Missing: isUndefinedTable(err)}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	return strings.Contains(err.Error(), "no such table")
}
