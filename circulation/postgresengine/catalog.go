package postgresengine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/libradesk/circulation-go/circulation"
	"github.com/libradesk/circulation-go/circulation/postgresengine/internal/adapters"
)

// AddAuthor inserts a new author. A duplicate name pair returns
// ErrDuplicateKey.
func (s *Store) AddAuthor(ctx context.Context, author circulation.Author) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblAuthors).
		Rows(goqu.Record{
			colAuthorID:  author.ID,
			colFirstName: author.FirstName,
			colLastName:  author.LastName,
			colBiography: author.Biography,
			colBirthDate: nullableTime(author.BirthDate),
			colIsActive:  author.IsActive,
			colCreatedAt: author.CreatedAt,
		}))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, s.db, sqlQuery)

	return mapDBError(execErr)
}

// AddPublisher inserts a new publisher. A duplicate name returns
// ErrDuplicateKey.
func (s *Store) AddPublisher(ctx context.Context, publisher circulation.Publisher) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblPublishers).
		Rows(goqu.Record{
			colPublisherID: publisher.ID,
			colName:        publisher.Name,
			colAddress:     publisher.Address,
			colPhone:       publisher.Phone,
			colEmail:       publisher.Email,
			colCreatedAt:   publisher.CreatedAt,
		}))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, s.db, sqlQuery)

	return mapDBError(execErr)
}

// AddGenre inserts a new genre. A duplicate name returns ErrDuplicateKey.
func (s *Store) AddGenre(ctx context.Context, genre circulation.Genre) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblGenres).
		Rows(goqu.Record{
			colGenreID:     genre.ID,
			colName:        genre.Name,
			colDescription: genre.Description,
			colCreatedAt:   genre.CreatedAt,
		}))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, s.db, sqlQuery)

	return mapDBError(execErr)
}

// AddBook validates the book's intake constraints and inserts it. A book
// failing validation returns ErrInvalidBook, a duplicate ISBN
// ErrDuplicateKey, and a missing publisher reference ErrNotFound.
func (s *Store) AddBook(ctx context.Context, book circulation.Book) error {
	if validateErr := book.Validate(time.Now()); validateErr != nil {
		return validateErr
	}

	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblBooks).
		Rows(goqu.Record{
			colBookID:          book.ID,
			colISBN:            nullableString(book.ISBN),
			colTitle:           book.Title,
			colPublisherID:     nullableUUID(book.PublisherID),
			colPublicationYear: book.PublicationYear,
			colPageCount:       book.PageCount,
			colPrice:           book.Price.Float64(),
			colStockQuantity:   book.QuantityInStock,
			colDescription:     book.Description,
			colLanguage:        book.Language,
			colCreatedAt:       book.CreatedAt,
		}))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, s.db, sqlQuery)

	return mapDBError(execErr)
}

// GetBook returns the book with the given id, or ErrNotFound.
func (s *Store) GetBook(ctx context.Context, id uuid.UUID) (circulation.Book, error) {
	return s.getBook(ctx, s.db, id, false)
}

// getBook reads one book, optionally locking its row for the duration of the
// surrounding transaction.
func (s *Store) getBook(ctx context.Context, r runner, id uuid.UUID, forUpdate bool) (circulation.Book, error) {
	selectStmt := s.builder().
		From(tblBooks).
		Select(bookColumns()...).
		Where(goqu.Ex{colBookID: id})

	if forUpdate {
		selectStmt = selectStmt.ForUpdate(goqu.Wait)
	}

	sqlQuery, buildErr := toSQL(selectStmt)
	if buildErr != nil {
		return circulation.Book{}, buildErr
	}

	rows, queryErr := s.query(ctx, r, sqlQuery)
	if queryErr != nil {
		return circulation.Book{}, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		return circulation.Book{}, circulation.ErrNotFound
	}

	return scanBook(rows)
}

// BookExists reports whether a book with the given id exists.
func (s *Store) BookExists(ctx context.Context, id uuid.UUID) (bool, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblBooks).
		Select(colBookID).
		Where(goqu.Ex{colBookID: id}))
	if buildErr != nil {
		return false, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return false, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	return rows.Next(), nil
}

// ListAuthors returns all authors ordered by last then first name.
func (s *Store) ListAuthors(ctx context.Context) ([]circulation.Author, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblAuthors).
		Select(colAuthorID, colFirstName, colLastName, colBiography, colBirthDate, colIsActive, colCreatedAt).
		Order(goqu.I(colLastName).Asc(), goqu.I(colFirstName).Asc()))
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return nil, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	var authors []circulation.Author

	for rows.Next() {
		var (
			author    circulation.Author
			birthDate sql.NullTime
		)

		if scanErr := rows.Scan(
			&author.ID, &author.FirstName, &author.LastName,
			&author.Biography, &birthDate, &author.IsActive, &author.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}

		if birthDate.Valid {
			author.BirthDate = &birthDate.Time
		}

		authors = append(authors, author)
	}

	return authors, rows.Err()
}

// ListPublishers returns all publishers ordered by name.
func (s *Store) ListPublishers(ctx context.Context) ([]circulation.Publisher, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblPublishers).
		Select(colPublisherID, colName, colAddress, colPhone, colEmail, colCreatedAt).
		Order(goqu.I(colName).Asc()))
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return nil, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	var publishers []circulation.Publisher

	for rows.Next() {
		var publisher circulation.Publisher

		if scanErr := rows.Scan(
			&publisher.ID, &publisher.Name, &publisher.Address,
			&publisher.Phone, &publisher.Email, &publisher.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}

		publishers = append(publishers, publisher)
	}

	return publishers, rows.Err()
}

// ListGenres returns all genres ordered by name.
func (s *Store) ListGenres(ctx context.Context) ([]circulation.Genre, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblGenres).
		Select(colGenreID, colName, colDescription, colCreatedAt).
		Order(goqu.I(colName).Asc()))
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return nil, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	var genres []circulation.Genre

	for rows.Next() {
		var genre circulation.Genre

		if scanErr := rows.Scan(&genre.ID, &genre.Name, &genre.Description, &genre.CreatedAt); scanErr != nil {
			return nil, scanErr
		}

		genres = append(genres, genre)
	}

	return genres, rows.Err()
}

// ListBooks returns all books ordered by title.
func (s *Store) ListBooks(ctx context.Context) ([]circulation.Book, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblBooks).
		Select(bookColumns()...).
		Order(goqu.I(colTitle).Asc()))
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return nil, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	var books []circulation.Book

	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		books = append(books, book)
	}

	return books, rows.Err()
}

// LinkBookAuthor associates an author with a book. A duplicate pair returns
// ErrDuplicateKey, a missing book or author ErrNotFound.
func (s *Store) LinkBookAuthor(ctx context.Context, bookID uuid.UUID, authorID uuid.UUID) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblBookAuthors).
		Rows(goqu.Record{colBookID: bookID, colAuthorID: authorID}))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, s.db, sqlQuery)

	return mapDBError(execErr)
}

// LinkBookGenre associates a genre with a book. A duplicate pair returns
// ErrDuplicateKey, a missing book or genre ErrNotFound.
func (s *Store) LinkBookGenre(ctx context.Context, bookID uuid.UUID, genreID uuid.UUID) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblBookGenres).
		Rows(goqu.Record{colBookID: bookID, colGenreID: genreID}))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, s.db, sqlQuery)

	return mapDBError(execErr)
}

// AdjustStock changes a book's stock quantity by delta inside one
// transaction. It fails with ErrOutOfStock when the new quantity would drop
// below the number of open loans.
func (s *Store) AdjustStock(ctx context.Context, bookID uuid.UUID, delta int) error {
	return s.withTx(ctx, func(tx adapters.DBTx) error {
		book, getErr := s.getBook(ctx, tx, bookID, true)
		if getErr != nil {
			return getErr
		}

		openLoans, countErr := s.countOpenLoans(ctx, tx, bookID)
		if countErr != nil {
			return countErr
		}

		newQuantity := book.QuantityInStock + delta
		if newQuantity < 0 || newQuantity < openLoans {
			return fmt.Errorf("%w: %d copies on loan, cannot reduce stock to %d",
				circulation.ErrOutOfStock, openLoans, newQuantity)
		}

		sqlQuery, buildErr := toSQL(s.builder().
			Update(tblBooks).
			Set(goqu.Record{colStockQuantity: newQuantity}).
			Where(goqu.Ex{colBookID: bookID}))
		if buildErr != nil {
			return buildErr
		}

		_, execErr := s.exec(ctx, tx, sqlQuery)

		return execErr
	})
}

// DeleteBook removes the book. The schema cascades the delete to the book's
// loans, their fines, and the author/genre associations.
func (s *Store) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return s.deleteByID(ctx, tblBooks, colBookID, id)
}

// DeletePublisher removes the publisher. The schema detaches its books by
// nulling their publisher reference.
func (s *Store) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	return s.deleteByID(ctx, tblPublishers, colPublisherID, id)
}

// DeleteAuthor removes the author and, via the schema, its book associations.
func (s *Store) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return s.deleteByID(ctx, tblAuthors, colAuthorID, id)
}

// DeleteGenre removes the genre and, via the schema, its book associations.
func (s *Store) DeleteGenre(ctx context.Context, id uuid.UUID) error {
	return s.deleteByID(ctx, tblGenres, colGenreID, id)
}

func (s *Store) deleteByID(ctx context.Context, table string, idColumn string, id uuid.UUID) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Delete(table).
		Where(goqu.Ex{idColumn: id}))
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := s.exec(ctx, s.db, sqlQuery)
	if execErr != nil {
		return mapDBError(execErr)
	}

	if rowsAffected == 0 {
		return circulation.ErrNotFound
	}

	return nil
}

func bookColumns() []any {
	return []any{
		colBookID, colISBN, colTitle, colPublisherID, colPublicationYear,
		colPageCount, colPrice, colStockQuantity, colDescription, colLanguage, colCreatedAt,
	}
}

func scanBook(rows adapters.DBRows) (circulation.Book, error) {
	var (
		book        circulation.Book
		isbn        sql.NullString
		publisherID uuid.NullUUID
		price       float64
	)

	if scanErr := rows.Scan(
		&book.ID, &isbn, &book.Title, &publisherID, &book.PublicationYear,
		&book.PageCount, &price, &book.QuantityInStock, &book.Description,
		&book.Language, &book.CreatedAt,
	); scanErr != nil {
		return circulation.Book{}, scanErr
	}

	book.ISBN = isbn.String
	book.Price = circulation.MoneyFromFloat(price)

	if publisherID.Valid {
		id := publisherID.UUID
		book.PublisherID = &id
	}

	return book, nil
}

// nullableString maps an empty string to SQL NULL.
func nullableString(value string) any {
	if value == "" {
		return nil
	}

	return value
}

// nullableTime maps a nil pointer to SQL NULL.
func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}

	return *value
}

// nullableUUID maps a nil pointer to SQL NULL.
func nullableUUID(value *uuid.UUID) any {
	if value == nil {
		return nil
	}

	return *value
}
