// Package circulation implements the operational core of a library
// circulation service: the loan lifecycle state machine, inventory
// availability accounting, and overdue-fine assessment.
//
// The package is storage-agnostic. All persistent state is reached through
// the Store interface; the sibling packages postgresengine and memoryengine
// provide implementations. The Engine is the single mutation path for loans
// and fines - writing to stock counts or loan-return fields outside of it
// breaks the availability and state-machine invariants.
//
// Concurrency: every operation is safe to call from concurrent goroutines.
// The reservation of a book copy is serialized per book inside the Store,
// and all other mutations are optimistic compare-and-set updates which are
// retried with bounded exponential backoff on transient contention.
package circulation
