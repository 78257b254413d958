package app

import "errors"

// Validation and lifecycle errors surfaced by the core ledger components.
// Storage-level failures are wrapped and propagate with their store sentinels
// (store.ErrInsufficientFunds, store.ErrDuplicateReference, ...) intact.
var (
	ErrValidation        = errors.New("invalid request")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidType       = errors.New("unknown transaction type")
	ErrDetailMismatch    = errors.New("details do not match transaction type")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	ErrExhaustedKeyspace = errors.New("reference keyspace exhausted")
	ErrRateLimited       = errors.New("too many requests")
)
