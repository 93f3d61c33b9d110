package engagement

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Failure classes. Every error returned by the engine wraps exactly one of
// these, except internal failures which wrap none.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrTransient  = errors.New("store temporarily unavailable")
)

var (
	ErrMissionNotFound = fmt.Errorf("mission: %w", ErrNotFound)
	ErrEntryNotFound   = fmt.Errorf("challenge entry: %w", ErrNotFound)

	ErrAlreadyClaimed = fmt.Errorf("mission already claimed: %w", ErrConflict)
	ErrNotYetEligible = fmt.Errorf("mission not yet complete: %w", ErrConflict)
	ErrAlreadyVoted   = fmt.Errorf("already voted for entry: %w", ErrConflict)

	ErrInvalidAmount = fmt.Errorf("xp amount must be positive: %w", ErrValidation)
	ErrMissingEntry  = fmt.Errorf("entry id is required: %w", ErrValidation)
)

// Code returns the stable machine-readable failure code for err, or
// "internal" when err is not one of the engine's classified failures.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissionNotFound):
		return "mission_not_found"
	case errors.Is(err, ErrEntryNotFound):
		return "entry_not_found"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrNotYetEligible):
		return "not_yet_eligible"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrMissingEntry):
		return "missing_entry"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "internal"
	}
}

func validationError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}

// storeError classifies a failure coming back from the store. Transient
// failures are tagged so callers know a retry is safe; everything else is
// wrapped with the operation name only.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "40001", code == "40P01", code == "55P03", code == "57P01":
			return true
		case strings.HasPrefix(code, "08"):
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "bad connection")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "sqlstate 23505")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
