package ledger

import "errors"

// Domain errors returned by ledger operations. Handlers map them to HTTP
// status codes; none of them are retried automatically.
var (
	// ErrValidation covers malformed or out-of-range input, such as a
	// negative opening balance or a non-positive transfer amount.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds is returned when a debit would drive the
	// balance negative. No state changes.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound is returned for lookups of unknown account or
	// transaction IDs. Callers must treat it as a normal outcome.
	ErrNotFound = errors.New("not found")

	// ErrUnknownCurrency is returned when an exchange names a currency
	// absent from the reference rate table.
	ErrUnknownCurrency = errors.New("unknown currency")
)
