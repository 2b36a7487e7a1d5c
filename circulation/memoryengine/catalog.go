package memoryengine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libradesk/circulation-go/circulation"
)

// AddAuthor stores an author record; the name pair is a natural key.
func (s *Store) AddAuthor(_ context.Context, author circulation.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.authors {
		if existing.ID == author.ID {
			return circulation.ErrDuplicateKey
		}

		if existing.FirstName == author.FirstName && existing.LastName == author.LastName {
			return circulation.ErrDuplicateKey
		}
	}

	s.authors[author.ID] = author

	return nil
}

// AddPublisher stores a publisher record; the name is a natural key.
func (s *Store) AddPublisher(_ context.Context, publisher circulation.Publisher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.publishers {
		if existing.Name == publisher.Name || existing.ID == publisher.ID {
			return circulation.ErrDuplicateKey
		}
	}

	s.publishers[publisher.ID] = publisher

	return nil
}

// AddGenre stores a genre record; the name is a natural key.
func (s *Store) AddGenre(_ context.Context, genre circulation.Genre) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.genres {
		if existing.Name == genre.Name || existing.ID == genre.ID {
			return circulation.ErrDuplicateKey
		}
	}

	s.genres[genre.ID] = genre

	return nil
}

// AddBook validates the book's intake constraints and stores it; a non-empty
// isbn is a natural key and the publisher reference, when set, must resolve.
func (s *Store) AddBook(_ context.Context, book circulation.Book) error {
	if validateErr := book.Validate(time.Now()); validateErr != nil {
		return validateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.books {
		if existing.ID == book.ID {
			return circulation.ErrDuplicateKey
		}

		if book.ISBN != "" && existing.ISBN == book.ISBN {
			return circulation.ErrDuplicateKey
		}
	}

	if book.PublisherID != nil {
		if _, ok := s.publishers[*book.PublisherID]; !ok {
			return circulation.ErrNotFound
		}
	}

	s.books[book.ID] = book

	return nil
}

// ListAuthors returns all authors ordered by last then first name.
func (s *Store) ListAuthors(_ context.Context) ([]circulation.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := make([]circulation.Author, 0, len(s.authors))
	for _, author := range s.authors {
		authors = append(authors, author)
	}

	sortSlice(authors, func(a, b circulation.Author) bool {
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	})

	return authors, nil
}

// ListPublishers returns all publishers ordered by name.
func (s *Store) ListPublishers(_ context.Context) ([]circulation.Publisher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	publishers := make([]circulation.Publisher, 0, len(s.publishers))
	for _, publisher := range s.publishers {
		publishers = append(publishers, publisher)
	}

	sortSlice(publishers, func(a, b circulation.Publisher) bool { return a.Name < b.Name })

	return publishers, nil
}

// ListGenres returns all genres ordered by name.
func (s *Store) ListGenres(_ context.Context) ([]circulation.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	genres := make([]circulation.Genre, 0, len(s.genres))
	for _, genre := range s.genres {
		genres = append(genres, genre)
	}

	sortSlice(genres, func(a, b circulation.Genre) bool { return a.Name < b.Name })

	return genres, nil
}

// ListBooks returns all books ordered by title.
func (s *Store) ListBooks(_ context.Context) ([]circulation.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make([]circulation.Book, 0, len(s.books))
	for _, book := range s.books {
		books = append(books, book)
	}

	sortSlice(books, func(a, b circulation.Book) bool { return a.Title < b.Title })

	return books, nil
}

// LinkBookAuthor associates a book with an author; duplicate pairs fail.
func (s *Store) LinkBookAuthor(_ context.Context, bookID uuid.UUID, authorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; !ok {
		return circulation.ErrNotFound
	}

	if _, ok := s.authors[authorID]; !ok {
		return circulation.ErrNotFound
	}

	pairs := s.bookAuthor[bookID]
	if pairs == nil {
		pairs = make(map[uuid.UUID]struct{})
		s.bookAuthor[bookID] = pairs
	}

	if _, ok := pairs[authorID]; ok {
		return circulation.ErrDuplicateKey
	}

	pairs[authorID] = struct{}{}

	return nil
}

// LinkBookGenre associates a book with a genre; duplicate pairs fail.
func (s *Store) LinkBookGenre(_ context.Context, bookID uuid.UUID, genreID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; !ok {
		return circulation.ErrNotFound
	}

	if _, ok := s.genres[genreID]; !ok {
		return circulation.ErrNotFound
	}

	pairs := s.bookGenre[bookID]
	if pairs == nil {
		pairs = make(map[uuid.UUID]struct{})
		s.bookGenre[bookID] = pairs
	}

	if _, ok := pairs[genreID]; ok {
		return circulation.ErrDuplicateKey
	}

	pairs[genreID] = struct{}{}

	return nil
}

// AdjustStock changes the stock quantity; the result must cover open loans.
func (s *Store) AdjustStock(_ context.Context, bookID uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return circulation.ErrNotFound
	}

	newQuantity := book.QuantityInStock + delta
	if newQuantity < s.openLoanCountLocked(bookID) {
		return circulation.ErrOutOfStock
	}

	book.QuantityInStock = newQuantity
	s.books[bookID] = book

	return nil
}

// DeleteBook removes the book, its loans, their fines, and its associations.
func (s *Store) DeleteBook(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return circulation.ErrNotFound
	}

	for loanID, loan := range s.loans {
		if loan.BookID != id {
			continue
		}

		s.deleteFinesOfLoanLocked(loanID)
		delete(s.loans, loanID)
	}

	delete(s.bookAuthor, id)
	delete(s.bookGenre, id)
	delete(s.books, id)

	return nil
}

// DeletePublisher removes the publisher and detaches its books.
func (s *Store) DeletePublisher(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.publishers[id]; !ok {
		return circulation.ErrNotFound
	}

	for bookID, book := range s.books {
		if book.PublisherID != nil && *book.PublisherID == id {
			book.PublisherID = nil
			s.books[bookID] = book
		}
	}

	delete(s.publishers, id)

	return nil
}

// DeleteAuthor removes the author and its book associations.
func (s *Store) DeleteAuthor(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authors[id]; !ok {
		return circulation.ErrNotFound
	}

	for _, pairs := range s.bookAuthor {
		delete(pairs, id)
	}

	delete(s.authors, id)

	return nil
}

// DeleteGenre removes the genre and its book associations.
func (s *Store) DeleteGenre(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.genres[id]; !ok {
		return circulation.ErrNotFound
	}

	for _, pairs := range s.bookGenre {
		delete(pairs, id)
	}

	delete(s.genres, id)

	return nil
}

// deleteFinesOfLoanLocked removes all fines referencing the loan.
// Callers must hold the write lock.
func (s *Store) deleteFinesOfLoanLocked(loanID uuid.UUID) {
	for fineID, fine := range s.fines {
		if fine.LoanID == loanID {
			delete(s.fines, fineID)
		}
	}
}
