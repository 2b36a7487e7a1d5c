package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSV file names written by WriteCSV, one per table.
const (
	csvFileAuthors    = "authors.csv"
	csvFilePublishers = "publishers.csv"
	csvFileGenres     = "genres.csv"
	csvFileBooks      = "books.csv"
	csvFileReaders    = "readers.csv"
	csvFileLoans      = "book_loans.csv"
	csvFileFines      = "fines.csv"
)

// WriteCSV writes the snapshot as one CSV file per table into dir,
// creating the directory if needed.
func WriteCSV(dir string, snapshot Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	files := []struct {
		name    string
		header  []string
		records [][]string
	}{
		{csvFileAuthors, authorHeader(), authorRecords(snapshot.Authors)},
		{csvFilePublishers, publisherHeader(), publisherRecords(snapshot.Publishers)},
		{csvFileGenres, genreHeader(), genreRecords(snapshot.Genres)},
		{csvFileBooks, bookHeader(), bookRecords(snapshot.Books)},
		{csvFileReaders, readerHeader(), readerRecords(snapshot.Readers)},
		{csvFileLoans, loanHeader(), loanRecords(snapshot.Loans)},
		{csvFileFines, fineHeader(), fineRecords(snapshot.Fines)},
	}

	for _, file := range files {
		if err := writeCSVFile(filepath.Join(dir, file.name), file.header, file.records); err != nil {
			return err
		}
	}

	return nil
}

func writeCSVFile(path string, header []string, records [][]string) error {
	f, createErr := os.Create(path)
	if createErr != nil {
		return fmt.Errorf("creating %s: %w", path, createErr)
	}

	writer := csv.NewWriter(f)

	writeErr := writer.Write(header)
	if writeErr == nil {
		writeErr = writer.WriteAll(records)
	}

	writer.Flush()

	if flushErr := writer.Error(); writeErr == nil {
		writeErr = flushErr
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}

	return nil
}

func authorHeader() []string {
	return []string{"author_id", "first_name", "last_name", "biography", "birth_date", "is_active", "created_at"}
}

func authorRecords(authors []Author) [][]string {
	records := make([][]string, 0, len(authors))
	for _, a := range authors {
		records = append(records, []string{
			a.ID, a.FirstName, a.LastName, a.Biography, a.BirthDate,
			strconv.FormatBool(a.IsActive), a.CreatedAt,
		})
	}

	return records
}

func publisherHeader() []string {
	return []string{"publisher_id", "name", "address", "phone", "email", "created_at"}
}

func publisherRecords(publishers []Publisher) [][]string {
	records := make([][]string, 0, len(publishers))
	for _, p := range publishers {
		records = append(records, []string{p.ID, p.Name, p.Address, p.Phone, p.Email, p.CreatedAt})
	}

	return records
}

func genreHeader() []string {
	return []string{"genre_id", "name", "description", "created_at"}
}

func genreRecords(genres []Genre) [][]string {
	records := make([][]string, 0, len(genres))
	for _, g := range genres {
		records = append(records, []string{g.ID, g.Name, g.Description, g.CreatedAt})
	}

	return records
}

func bookHeader() []string {
	return []string{
		"book_id", "isbn", "title", "publisher_id", "publication_year",
		"page_count", "price", "stock_quantity", "description", "language", "created_at",
	}
}

func bookRecords(books []Book) [][]string {
	records := make([][]string, 0, len(books))
	for _, b := range books {
		records = append(records, []string{
			b.ID, b.ISBN, b.Title, b.PublisherID, strconv.Itoa(b.PublicationYear),
			strconv.Itoa(b.PageCount), b.Price, strconv.Itoa(b.QuantityInStock),
			b.Description, b.Language, b.CreatedAt,
		})
	}

	return records
}

func readerHeader() []string {
	return []string{
		"reader_id", "first_name", "last_name", "email", "phone",
		"address", "is_active", "notes", "registration_date",
	}
}

func readerRecords(readers []Reader) [][]string {
	records := make([][]string, 0, len(readers))
	for _, r := range readers {
		records = append(records, []string{
			r.ID, r.FirstName, r.LastName, r.Email, r.Phone,
			r.Address, strconv.FormatBool(r.IsActive), r.Notes, r.RegisteredAt,
		})
	}

	return records
}

func loanHeader() []string {
	return []string{
		"loan_id", "book_id", "reader_id", "status", "loan_date",
		"due_date", "return_date", "fine_amount", "is_returned", "notes",
	}
}

func loanRecords(loans []Loan) [][]string {
	records := make([][]string, 0, len(loans))
	for _, l := range loans {
		records = append(records, []string{
			l.ID, l.BookID, l.ReaderID, l.Status, l.LoanedAt,
			l.DueAt, l.ReturnedAt, l.FineAmount, strconv.FormatBool(l.IsReturned), l.Notes,
		})
	}

	return records
}

func fineHeader() []string {
	return []string{"fine_id", "loan_id", "amount", "reason", "issued_date", "is_paid", "paid_date"}
}

func fineRecords(fines []Fine) [][]string {
	records := make([][]string, 0, len(fines))
	for _, f := range fines {
		records = append(records, []string{
			f.ID, f.LoanID, f.Amount, f.Reason, f.IssuedAt,
			strconv.FormatBool(f.IsPaid), f.PaidAt,
		})
	}

	return records
}
