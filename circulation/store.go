package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract the Engine operates on. Implementations
// must make every method safe for concurrent use and must apply each mutation
// atomically: a failed call leaves all affected records unchanged.
//
// Error contract:
//   - lookups return ErrNotFound on a miss
//   - ReserveAndInsertLoan returns ErrNotFound (book or reader missing),
//     ErrReaderInactive, or ErrOutOfStock; the availability check and the
//     insert are one atomic unit serialized per book, so availability can
//     never go negative
//   - the compare-and-set mutations (ExtendLoan, CompleteReturn,
//     CompleteLost, SettleFine) return ErrInvalidState or ErrAlreadyPaid
//     when the row is in a terminal state, and ErrContention when the row
//     moved under the caller (e.g. a concurrent renewal changed the due date)
//   - any transient storage conflict surfaces as ErrContention
type Store interface {
	GetBook(ctx context.Context, id uuid.UUID) (Book, error)
	GetReader(ctx context.Context, id uuid.UUID) (Reader, error)
	GetLoan(ctx context.Context, id uuid.UUID) (Loan, error)
	GetFine(ctx context.Context, id uuid.UUID) (Fine, error)

	// Available returns quantity in stock minus open loans for the book.
	Available(ctx context.Context, bookID uuid.UUID) (int, error)

	// ReserveAndInsertLoan atomically checks one copy can be handed out and
	// persists the loan.
	ReserveAndInsertLoan(ctx context.Context, loan Loan) error

	// ExtendLoan moves the due date of an active loan from expectedDueAt to
	// newDueAt.
	ExtendLoan(ctx context.Context, loanID uuid.UUID, expectedDueAt time.Time, newDueAt time.Time) error

	// CompleteReturn terminates an active loan as returned, mirrors the
	// assessed amount into the loan's fine amount, and records the fine
	// (when non-nil) in the same atomic unit. The returned copy becomes
	// available again.
	CompleteReturn(ctx context.Context, loanID uuid.UUID, expectedDueAt time.Time, returnedAt time.Time, assessed *Fine) error

	// CompleteLost terminates an active loan as lost and records the
	// replacement fine (when non-nil) in the same atomic unit. The copy is
	// consumed: it does not return to availability.
	CompleteLost(ctx context.Context, loanID uuid.UUID, expectedDueAt time.Time, assessed *Fine) error

	// InsertFine appends an unpaid fine for an existing loan.
	InsertFine(ctx context.Context, fine Fine) error

	// SettleFine marks an unpaid fine as paid at paidAt.
	SettleFine(ctx context.Context, fineID uuid.UUID, paidAt time.Time) error

	// OutstandingBalance sums the unpaid fines across all loans of a reader.
	// An unknown reader has no loans and therefore a zero balance, not
	// ErrNotFound.
	OutstandingBalance(ctx context.Context, readerID uuid.UUID) (Money, error)
}

// CatalogStore is the thin catalog collaborator: field storage for books,
// authors, publishers and genres plus the explicit referential actions.
// No business rules beyond natural-key uniqueness, surfaced as
// ErrDuplicateKey at write time, and book intake validation.
type CatalogStore interface {
	AddAuthor(ctx context.Context, author Author) error
	AddPublisher(ctx context.Context, publisher Publisher) error
	AddGenre(ctx context.Context, genre Genre) error

	// AddBook validates the book's intake constraints (ErrInvalidBook on
	// violation) before storing it.
	AddBook(ctx context.Context, book Book) error

	GetBook(ctx context.Context, id uuid.UUID) (Book, error)
	BookExists(ctx context.Context, id uuid.UUID) (bool, error)

	ListAuthors(ctx context.Context) ([]Author, error)
	ListPublishers(ctx context.Context) ([]Publisher, error)
	ListGenres(ctx context.Context) ([]Genre, error)
	ListBooks(ctx context.Context) ([]Book, error)

	// LinkBookAuthor / LinkBookGenre create many-to-many associations;
	// duplicate pairs return ErrDuplicateKey.
	LinkBookAuthor(ctx context.Context, bookID uuid.UUID, authorID uuid.UUID) error
	LinkBookGenre(ctx context.Context, bookID uuid.UUID, genreID uuid.UUID) error

	// AdjustStock changes the stock quantity by delta. It fails with
	// ErrOutOfStock when the new quantity would drop below the number of
	// open loans, which would drive availability negative.
	AdjustStock(ctx context.Context, bookID uuid.UUID, delta int) error

	// DeleteBook removes the book and cascades to its loans, their fines,
	// and its author/genre associations, all in one atomic unit.
	DeleteBook(ctx context.Context, id uuid.UUID) error

	// DeletePublisher detaches its books (publisher reference nulled) and
	// removes the publisher.
	DeletePublisher(ctx context.Context, id uuid.UUID) error

	// DeleteAuthor / DeleteGenre remove the record and its associations.
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
	DeleteGenre(ctx context.Context, id uuid.UUID) error
}

// ReaderDirectory is the thin reader collaborator.
type ReaderDirectory interface {
	AddReader(ctx context.Context, reader Reader) error
	GetReader(ctx context.Context, id uuid.UUID) (Reader, error)
	ReaderIsActive(ctx context.Context, id uuid.UUID) (bool, error)
	ListReaders(ctx context.Context) ([]Reader, error)
	SetReaderActive(ctx context.Context, id uuid.UUID, active bool) error

	// DeleteReader cascades to the reader's loans and their fines.
	DeleteReader(ctx context.Context, id uuid.UUID) error
}

// LoanLedger exposes read access to loans and fines for reporting and export.
type LoanLedger interface {
	ListLoans(ctx context.Context) ([]Loan, error)
	ListFines(ctx context.Context) ([]Fine, error)

	// OpenLoansByReader returns the reader's loans still holding a copy.
	// An unknown reader yields an empty result, not ErrNotFound.
	OpenLoansByReader(ctx context.Context, readerID uuid.UUID) ([]Loan, error)
}
