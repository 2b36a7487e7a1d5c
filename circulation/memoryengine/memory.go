package memoryengine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/libradesk/circulation-go/circulation"
)

// Compile-time contract assertions.
var (
	_ circulation.Store           = (*Store)(nil)
	_ circulation.CatalogStore    = (*Store)(nil)
	_ circulation.ReaderDirectory = (*Store)(nil)
	_ circulation.LoanLedger      = (*Store)(nil)
)

// Store keeps the whole circulation state in process memory.
type Store struct {
	mu         sync.RWMutex
	authors    map[uuid.UUID]circulation.Author
	publishers map[uuid.UUID]circulation.Publisher
	genres     map[uuid.UUID]circulation.Genre
	books      map[uuid.UUID]circulation.Book
	readers    map[uuid.UUID]circulation.Reader
	loans      map[uuid.UUID]circulation.Loan
	fines      map[uuid.UUID]circulation.Fine
	bookAuthor map[uuid.UUID]map[uuid.UUID]struct{} // bookID -> authorIDs
	bookGenre  map[uuid.UUID]map[uuid.UUID]struct{} // bookID -> genreIDs
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		authors:    make(map[uuid.UUID]circulation.Author),
		publishers: make(map[uuid.UUID]circulation.Publisher),
		genres:     make(map[uuid.UUID]circulation.Genre),
		books:      make(map[uuid.UUID]circulation.Book),
		readers:    make(map[uuid.UUID]circulation.Reader),
		loans:      make(map[uuid.UUID]circulation.Loan),
		fines:      make(map[uuid.UUID]circulation.Fine),
		bookAuthor: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		bookGenre:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// openLoanCountLocked counts loans holding a copy of the book.
// Callers must hold at least the read lock.
func (s *Store) openLoanCountLocked(bookID uuid.UUID) int {
	count := 0

	for _, loan := range s.loans {
		if loan.BookID == bookID && loan.IsOpen() {
			count++
		}
	}

	return count
}

// GetBook looks up a book by id.
func (s *Store) GetBook(_ context.Context, id uuid.UUID) (circulation.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[id]
	if !ok {
		return circulation.Book{}, circulation.ErrNotFound
	}

	return book, nil
}

// BookExists reports whether a book with the given id exists.
func (s *Store) BookExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.books[id]

	return ok, nil
}

// GetReader looks up a reader by id.
func (s *Store) GetReader(_ context.Context, id uuid.UUID) (circulation.Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reader, ok := s.readers[id]
	if !ok {
		return circulation.Reader{}, circulation.ErrNotFound
	}

	return reader, nil
}

// ReaderIsActive reports whether the reader exists and is active.
func (s *Store) ReaderIsActive(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reader, ok := s.readers[id]
	if !ok {
		return false, circulation.ErrNotFound
	}

	return reader.IsActive, nil
}

// GetLoan looks up a loan by id.
func (s *Store) GetLoan(_ context.Context, id uuid.UUID) (circulation.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[id]
	if !ok {
		return circulation.Loan{}, circulation.ErrNotFound
	}

	return loan, nil
}

// GetFine looks up a fine by id.
func (s *Store) GetFine(_ context.Context, id uuid.UUID) (circulation.Fine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fine, ok := s.fines[id]
	if !ok {
		return circulation.Fine{}, circulation.ErrNotFound
	}

	return fine, nil
}

// Available returns quantity in stock minus open loans for the book.
func (s *Store) Available(_ context.Context, bookID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[bookID]
	if !ok {
		return 0, circulation.ErrNotFound
	}

	return book.QuantityInStock - s.openLoanCountLocked(bookID), nil
}

// ReserveAndInsertLoan atomically checks availability and persists the loan.
func (s *Store) ReserveAndInsertLoan(_ context.Context, loan circulation.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[loan.BookID]
	if !ok {
		return circulation.ErrNotFound
	}

	reader, ok := s.readers[loan.ReaderID]
	if !ok {
		return circulation.ErrNotFound
	}

	if !reader.IsActive {
		return circulation.ErrReaderInactive
	}

	if book.QuantityInStock-s.openLoanCountLocked(loan.BookID) <= 0 {
		return circulation.ErrOutOfStock
	}

	s.loans[loan.ID] = loan

	return nil
}

// ExtendLoan moves the due date of an active loan, compare-and-set on the
// expected due date.
func (s *Store) ExtendLoan(_ context.Context, loanID uuid.UUID, expectedDueAt time.Time, newDueAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return circulation.ErrNotFound
	}

	if loan.Status != circulation.LoanStatusActive {
		return circulation.ErrInvalidState
	}

	if !loan.DueAt.Equal(expectedDueAt) {
		return circulation.ErrContention
	}

	loan.DueAt = newDueAt
	s.loans[loanID] = loan

	return nil
}

// CompleteReturn terminates an active loan as returned and records the
// assessed fine in the same critical section.
func (s *Store) CompleteReturn(
	_ context.Context,
	loanID uuid.UUID,
	expectedDueAt time.Time,
	returnedAt time.Time,
	assessed *circulation.Fine,
) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return circulation.ErrNotFound
	}

	if loan.Status != circulation.LoanStatusActive {
		return circulation.ErrInvalidState
	}

	if !loan.DueAt.Equal(expectedDueAt) {
		return circulation.ErrContention
	}

	loan.Status = circulation.LoanStatusReturned
	loan.IsReturned = true
	loan.ReturnedAt = &returnedAt

	if assessed != nil {
		loan.FineAmount = assessed.Amount
		s.fines[assessed.ID] = *assessed
	}

	s.loans[loanID] = loan

	return nil
}

// CompleteLost terminates an active loan as lost; the copy stays out of
// availability and the replacement fine is recorded atomically.
func (s *Store) CompleteLost(
	_ context.Context,
	loanID uuid.UUID,
	expectedDueAt time.Time,
	assessed *circulation.Fine,
) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return circulation.ErrNotFound
	}

	if loan.Status != circulation.LoanStatusActive {
		return circulation.ErrInvalidState
	}

	if !loan.DueAt.Equal(expectedDueAt) {
		return circulation.ErrContention
	}

	loan.Status = circulation.LoanStatusLost

	if assessed != nil {
		loan.FineAmount = assessed.Amount
		s.fines[assessed.ID] = *assessed
	}

	s.loans[loanID] = loan

	return nil
}

// InsertFine appends an unpaid fine for an existing loan.
func (s *Store) InsertFine(_ context.Context, fine circulation.Fine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loans[fine.LoanID]; !ok {
		return circulation.ErrNotFound
	}

	s.fines[fine.ID] = fine

	return nil
}

// SettleFine marks an unpaid fine as paid, compare-and-set on the unpaid state.
func (s *Store) SettleFine(_ context.Context, fineID uuid.UUID, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fine, ok := s.fines[fineID]
	if !ok {
		return circulation.ErrNotFound
	}

	if fine.IsPaid {
		return circulation.ErrAlreadyPaid
	}

	fine.IsPaid = true
	fine.PaidAt = &paidAt
	s.fines[fineID] = fine

	return nil
}

// OutstandingBalance sums unpaid fines across all loans of the reader.
// An unknown reader has no loans and a zero balance.
func (s *Store) OutstandingBalance(_ context.Context, readerID uuid.UUID) (circulation.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance circulation.Money

	for _, fine := range s.fines {
		if fine.IsPaid {
			continue
		}

		if loan, ok := s.loans[fine.LoanID]; ok && loan.ReaderID == readerID {
			balance += fine.Amount
		}
	}

	return balance, nil
}
