package errors

import "github.com/cockroachdb/errors"

// Sentinel marks. Errors built through this package carry exactly one mark;
// callers branch on them with errors.Is via the predicates below.
var (
	ErrValidation          = errors.New("validation_error")
	ErrNotFound            = errors.New("not_found")
	ErrAlreadyExists       = errors.New("already_exists")
	ErrInvalidOperation    = errors.New("invalid_operation")
	ErrIdempotencyConflict = errors.New("idempotency_conflict")
	ErrCurrencyMismatch    = errors.New("currency_mismatch")
	ErrDatabase            = errors.New("database_error")
	ErrHTTPClient          = errors.New("http_client_error")
	ErrInternal            = errors.New("internal_error")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyConflict)
}

func IsCurrencyMismatch(err error) bool {
	return errors.Is(err, ErrCurrencyMismatch)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}
