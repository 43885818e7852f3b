package terrors

import "github.com/cockroachdb/errors"

// IsInvalidInputErr reports whether err is a validation failure. Callers
// treat these as fatal to the originating policy mutation.
func IsInvalidInputErr(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTxnFailedErr reports whether err is a rejected northbound transaction.
func IsTxnFailedErr(err error) bool {
	return errors.Is(err, ErrTxnFailed)
}

// IsNotFoundErr .
func IsNotFoundErr(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSwitchNotFound) ||
		errors.Is(err, ErrPortNotFound)
}
