package terrors

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidValue indicates the value is invalid.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidInput indicates a policy object failed internal-consistency
	// checks; the triggering operation must be rejected before any
	// northbound transaction is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTxnFailed indicates the northbound database rejected an atomic
	// transaction; none of its operations took effect.
	ErrTxnFailed = errors.New("northbound transaction failed")

	// ErrNotFound .
	ErrNotFound = errors.New("not found")

	// ErrSwitchNotFound .
	ErrSwitchNotFound = errors.New("logical switch not found")
	// ErrPortNotFound .
	ErrPortNotFound = errors.New("logical port not found")

	// ErrUnsupportedProtocol .
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)
