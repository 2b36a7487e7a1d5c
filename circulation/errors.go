package circulation

import (
	"errors"
)

// Failure taxonomy. All operations report failures as typed sentinel errors
// which callers match with errors.Is; causes are attached with errors.Join.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("referenced entity not found")

	// ErrInvalidState is returned when an operation is not valid for the
	// loan's current lifecycle state, e.g. returning a loan twice.
	ErrInvalidState = errors.New("operation not valid for current loan state")

	// ErrOutOfStock is returned when no copies of a book are available to loan.
	ErrOutOfStock = errors.New("no available copies")

	// ErrReaderInactive is returned when the reader is registered but disabled.
	ErrReaderInactive = errors.New("reader is not active")

	// ErrRenewalNotAllowed is returned when the renewal policy forbids
	// extending the loan, e.g. because it is already overdue.
	ErrRenewalNotAllowed = errors.New("renewal not allowed")

	// ErrDuplicateKey is returned on uniqueness violations of natural keys
	// (isbn, reader email, publisher or genre name, association pairs).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidAmount is returned when a fine is assessed with a
	// non-positive amount.
	ErrInvalidAmount = errors.New("fine amount must be positive")

	// ErrAlreadyPaid is returned when paying a fine that is already settled,
	// so callers can detect double-submission.
	ErrAlreadyPaid = errors.New("fine is already paid")

	// ErrContention is returned by storage engines on transient contention
	// (serialization failures, deadlocks, lost optimistic updates). It is the
	// only retryable error; the Engine retries it a bounded number of times
	// and surfaces it unchanged when attempts are exhausted.
	ErrContention = errors.New("transient storage contention")

	// ErrInvalidLoanPeriod is returned when a loan period or renewal
	// extension is not strictly positive; due_date must stay after loan_date.
	ErrInvalidLoanPeriod = errors.New("loan period must be positive")

	// ErrInvalidBook is returned when a book fails intake validation.
	ErrInvalidBook = errors.New("book fails validation")

	// ErrNilStore is returned when an Engine is constructed without a store.
	ErrNilStore = errors.New("store must not be nil")
)
