// Package export produces portable snapshots of the circulation data set,
// serialized as JSON or as one CSV file per table. The wire format is
// decoupled from the domain types so the export stays stable when the
// domain evolves.
package export

import (
	"context"
	"time"

	"github.com/libradesk/circulation-go/circulation"
)

// Source is the read surface an export is collected from. Both storage
// engines satisfy it.
type Source interface {
	ListAuthors(ctx context.Context) ([]circulation.Author, error)
	ListPublishers(ctx context.Context) ([]circulation.Publisher, error)
	ListGenres(ctx context.Context) ([]circulation.Genre, error)
	ListBooks(ctx context.Context) ([]circulation.Book, error)
	ListReaders(ctx context.Context) ([]circulation.Reader, error)
	ListLoans(ctx context.Context) ([]circulation.Loan, error)
	ListFines(ctx context.Context) ([]circulation.Fine, error)
}

// Snapshot is one complete export of the circulation data set.
type Snapshot struct {
	ExportedAt time.Time   `json:"exported_at"`
	Authors    []Author    `json:"authors"`
	Publishers []Publisher `json:"publishers"`
	Genres     []Genre     `json:"genres"`
	Books      []Book      `json:"books"`
	Readers    []Reader    `json:"readers"`
	Loans      []Loan      `json:"loans"`
	Fines      []Fine      `json:"fines"`
}

// Author is the wire form of a catalog author.
type Author struct {
	ID        string `json:"author_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Biography string `json:"biography,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// Publisher is the wire form of a catalog publisher.
type Publisher struct {
	ID        string `json:"publisher_id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Genre is the wire form of a catalog genre.
type Genre struct {
	ID          string `json:"genre_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Book is the wire form of a catalog book. Price is a decimal string with
// two fractional digits.
type Book struct {
	ID              string `json:"book_id"`
	ISBN            string `json:"isbn,omitempty"`
	Title           string `json:"title"`
	PublisherID     string `json:"publisher_id,omitempty"`
	PublicationYear int    `json:"publication_year"`
	PageCount       int    `json:"page_count"`
	Price           string `json:"price"`
	QuantityInStock int    `json:"stock_quantity"`
	Description     string `json:"description,omitempty"`
	Language        string `json:"language,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// Reader is the wire form of a registered reader.
type Reader struct {
	ID           string `json:"reader_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	IsActive     bool   `json:"is_active"`
	Notes        string `json:"notes,omitempty"`
	RegisteredAt string `json:"registration_date"`
}

// Loan is the wire form of a loan.
type Loan struct {
	ID         string `json:"loan_id"`
	BookID     string `json:"book_id"`
	ReaderID   string `json:"reader_id"`
	Status     string `json:"status"`
	LoanedAt   string `json:"loan_date"`
	DueAt      string `json:"due_date"`
	ReturnedAt string `json:"return_date,omitempty"`
	FineAmount string `json:"fine_amount"`
	IsReturned bool   `json:"is_returned"`
	Notes      string `json:"notes,omitempty"`
}

// Fine is the wire form of a fine.
type Fine struct {
	ID       string `json:"fine_id"`
	LoanID   string `json:"loan_id"`
	Amount   string `json:"amount"`
	Reason   string `json:"reason"`
	IssuedAt string `json:"issued_date"`
	IsPaid   bool   `json:"is_paid"`
	PaidAt   string `json:"paid_date,omitempty"`
}

// Collect reads the complete data set from the source into one Snapshot.
// The individual lists are read sequentially, not from one storage snapshot;
// export against a quiesced store when strict consistency matters.
func Collect(ctx context.Context, source Source) (Snapshot, error) {
	snapshot := Snapshot{ExportedAt: time.Now().UTC()}

	authors, err := source.ListAuthors(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for _, author := range authors {
		snapshot.Authors = append(snapshot.Authors, Author{
			ID:        author.ID.String(),
			FirstName: author.FirstName,
			LastName:  author.LastName,
			Biography: author.Biography,
			BirthDate: formatOptionalTime(author.BirthDate),
			IsActive:  author.IsActive,
			CreatedAt: formatTime(author.CreatedAt),
		})
	}

	publishers, err := source.ListPublishers(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for _, publisher := range publishers {
		snapshot.Publishers = append(snapshot.Publishers, Publisher{
			ID:        publisher.ID.String(),
			Name:      publisher.Name,
			Address:   publisher.Address,
			Phone:     publisher.Phone,
			Email:     publisher.Email,
			CreatedAt: formatTime(publisher.CreatedAt),
		})
	}

	genres, err := source.ListGenres(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for _, genre := range genres {
		snapshot.Genres = append(snapshot.Genres, Genre{
			ID:          genre.ID.String(),
			Name:        genre.Name,
			Description: genre.Description,
			CreatedAt:   formatTime(genre.CreatedAt),
		})
	}

	books, err := source.ListBooks(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for _, book := range books {
		exported := Book{
			ID:              book.ID.String(),
			ISBN:            book.ISBN,
			Title:           book.Title,
			PublicationYear: book.PublicationYear,
			PageCount:       book.PageCount,
			Price:           book.Price.String(),
			QuantityInStock: book.QuantityInStock,
			Description:     book.Description,
			Language:        book.Language,
			CreatedAt:       formatTime(book.CreatedAt),
		}

		if book.PublisherID != nil {
			exported.PublisherID = book.PublisherID.String()
		}

		snapshot.Books = append(snapshot.Books, exported)
	}

	readers, err := source.ListReaders(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for _, reader := range readers {
		snapshot.Readers = append(snapshot.Readers, Reader{
			ID:           reader.ID.String(),
			FirstName:    reader.FirstName,
			LastName:     reader.LastName,
			Email:        reader.Email,
			Phone:        reader.Phone,
			Address:      reader.Address,
			IsActive:     reader.IsActive,
			Notes:        reader.Notes,
			RegisteredAt: formatTime(reader.RegisteredAt),
		})
	}

	loans, err := source.ListLoans(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for _, loan := range loans {
		snapshot.Loans = append(snapshot.Loans, Loan{
			ID:         loan.ID.String(),
			BookID:     loan.BookID.String(),
			ReaderID:   loan.ReaderID.String(),
			Status:     string(loan.Status),
			LoanedAt:   formatTime(loan.LoanedAt),
			DueAt:      formatTime(loan.DueAt),
			ReturnedAt: formatOptionalTime(loan.ReturnedAt),
			FineAmount: loan.FineAmount.String(),
			IsReturned: loan.IsReturned,
			Notes:      loan.Notes,
		})
	}

	fines, err := source.ListFines(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	for _, fine := range fines {
		snapshot.Fines = append(snapshot.Fines, Fine{
			ID:       fine.ID.String(),
			LoanID:   fine.LoanID.String(),
			Amount:   fine.Amount.String(),
			Reason:   fine.Reason,
			IssuedAt: formatTime(fine.IssuedAt),
			IsPaid:   fine.IsPaid,
			PaidAt:   formatOptionalTime(fine.PaidAt),
		})
	}

	return snapshot, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}

	return formatTime(*t)
}
