package transaction

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/narwhalmedia/gallery/pkg/errors"
)

// SQLSTATE codes outside class 40 that still mean the transaction, not the
// caller's input, is at fault.
const (
	sqlStateLockNotAvailable = "55P03"
	sqlStateQueryCanceled    = "57014"
)

// IsConcurrencyFailure reports whether err carries a PostgreSQL error raised
// by the transaction itself: class 40 (serialization failure, deadlock),
// lock not available or a cancelled statement.
func IsConcurrencyFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch {
	case strings.HasPrefix(pgErr.Code, "40"):
		return true
	case pgErr.Code == sqlStateLockNotAvailable, pgErr.Code == sqlStateQueryCanceled:
		return true
	default:
		return false
	}
}

// classify turns an unclassified concurrency failure from the body into a
// transaction error. Errors that already carry an application type keep it.
func classify(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) || !IsConcurrencyFailure(err) {
		return err
	}
	return apperrors.Transaction("transaction aborted by the database", err)
}
