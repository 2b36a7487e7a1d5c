package memoryengine

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/libradesk/circulation-go/circulation"
)

// sortSlice orders a slice with the given less function.
func sortSlice[T any](items []T, less func(a, b T) bool) {
	sort.Slice(items, func(i, j int) bool { return less(items[i], items[j]) })
}

// AddReader stores a reader record; the email is a natural key.
func (s *Store) AddReader(_ context.Context, reader circulation.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.readers {
		if existing.Email == reader.Email || existing.ID == reader.ID {
			return circulation.ErrDuplicateKey
		}
	}

	s.readers[reader.ID] = reader

	return nil
}

// ListReaders returns all readers ordered by registration time.
func (s *Store) ListReaders(_ context.Context) ([]circulation.Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readers := make([]circulation.Reader, 0, len(s.readers))
	for _, reader := range s.readers {
		readers = append(readers, reader)
	}

	sortSlice(readers, func(a, b circulation.Reader) bool { return a.RegisteredAt.Before(b.RegisteredAt) })

	return readers, nil
}

// SetReaderActive flips the active flag of a reader.
func (s *Store) SetReaderActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reader, ok := s.readers[id]
	if !ok {
		return circulation.ErrNotFound
	}

	reader.IsActive = active
	s.readers[id] = reader

	return nil
}

// DeleteReader removes the reader, its loans and their fines.
func (s *Store) DeleteReader(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.readers[id]; !ok {
		return circulation.ErrNotFound
	}

	for loanID, loan := range s.loans {
		if loan.ReaderID != id {
			continue
		}

		s.deleteFinesOfLoanLocked(loanID)
		delete(s.loans, loanID)
	}

	delete(s.readers, id)

	return nil
}

// ListLoans returns all loans ordered by loan time.
func (s *Store) ListLoans(_ context.Context) ([]circulation.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := make([]circulation.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		loans = append(loans, loan)
	}

	sortSlice(loans, func(a, b circulation.Loan) bool { return a.LoanedAt.Before(b.LoanedAt) })

	return loans, nil
}

// ListFines returns all fines ordered by issue time.
func (s *Store) ListFines(_ context.Context) ([]circulation.Fine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fines := make([]circulation.Fine, 0, len(s.fines))
	for _, fine := range s.fines {
		fines = append(fines, fine)
	}

	sortSlice(fines, func(a, b circulation.Fine) bool { return a.IssuedAt.Before(b.IssuedAt) })

	return fines, nil
}

// OpenLoansByReader returns the reader's loans still holding a copy.
// An unknown reader has no loans; the result is empty, not an error.
func (s *Store) OpenLoansByReader(_ context.Context, readerID uuid.UUID) ([]circulation.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := make([]circulation.Loan, 0)
	for _, loan := range s.loans {
		if loan.ReaderID == readerID && loan.IsOpen() {
			loans = append(loans, loan)
		}
	}

	sortSlice(loans, func(a, b circulation.Loan) bool { return a.LoanedAt.Before(b.LoanedAt) })

	return loans, nil
}
