package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes and codes the staging writes can hit
const (
	sqlUniqueViolation     = "23505"
	sqlNotNullViolation    = "23502"
	sqlCheckViolation      = "23514"
	sqlStringTooLong       = "22001"
	sqlBadTextValue        = "22P02"
	sqlUntranslatable      = "22P05" // NUL or bad encoding in xml_text
	sqlSerialization       = "40001"
	sqlDeadlock            = "40P01"
	sqlLockNotAvailable    = "55P03"
	sqlQueryCanceled       = "57014" // statement_timeout
	sqlReadOnlyTransaction = "25006"
	sqlCannotConnectNow    = "57P03"
	sqlAdminShutdown       = "57P01"
)

var pgCodes = map[string]ErrorCode{
	sqlUniqueViolation:     ErrorCodeDuplicateKey,
	sqlNotNullViolation:    ErrorCodeValidation,
	sqlCheckViolation:      ErrorCodeValidation,
	sqlStringTooLong:       ErrorCodeInvalidArgument,
	sqlBadTextValue:        ErrorCodeInvalidArgument,
	sqlUntranslatable:      ErrorCodeInvalidArgument,
	sqlQueryCanceled:       ErrorCodeUnavailable,
	sqlReadOnlyTransaction: ErrorCodeUnavailable,
	sqlCannotConnectNow:    ErrorCodeUnavailable,
	sqlAdminShutdown:       ErrorCodeUnavailable,
}

// pgError returns the PgError at the root of err, if any
func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// DBErrorCode maps a Postgres error to an ErrorCode. ok is false when err
// carries no PgError; unlisted SQLSTATEs map to ErrorCodeDB.
func DBErrorCode(err error) (code ErrorCode, ok bool) {
	pgErr, ok := pgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	if c, found := pgCodes[pgErr.Code]; found {
		return c, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code and msg. The offending column
// becomes the error field when Postgres reports one. nil stays nil.
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	out := Wrap(err, code, msg)
	if pgErr, ok := pgError(err); ok {
		if col := strings.TrimSpace(pgErr.ColumnName); col != "" {
			out = WithField(out, col)
		}
	}
	return out
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// IsRetryable reports contention a fresh transaction can get past:
// serialization failures, deadlocks and lock waits. Context errors are never
// retryable.
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case sqlSerialization, sqlDeadlock, sqlLockNotAvailable:
			return true
		}
		return false
	}
	// pgx reports a commit turned rollback as plain text
	return strings.Contains(strings.ToLower(Root(err).Error()), "commit unexpectedly resulted in rollback")
}
