package postgresengine

import "context"

// schemaStatements holds the DDL for the circulation tables in dependency
// order. All timestamps are TIMESTAMPTZ and money columns NUMERIC(10,2).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS authors (
		author_id UUID PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		biography TEXT NOT NULL DEFAULT '',
		birth_date TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (first_name, last_name)
	)`,

	`CREATE TABLE IF NOT EXISTS publishers (
		publisher_id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS genres (
		genre_id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS books (
		book_id UUID PRIMARY KEY,
		isbn TEXT UNIQUE,
		title TEXT NOT NULL CHECK (title <> ''),
		publisher_id UUID REFERENCES publishers (publisher_id) ON DELETE SET NULL,
		publication_year INT NOT NULL CHECK (publication_year > 1800),
		page_count INT NOT NULL CHECK (page_count > 0),
		price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		stock_quantity INT NOT NULL CHECK (stock_quantity >= 0),
		description TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS book_authors (
		book_id UUID NOT NULL REFERENCES books (book_id) ON DELETE CASCADE,
		author_id UUID NOT NULL REFERENCES authors (author_id) ON DELETE CASCADE,
		PRIMARY KEY (book_id, author_id)
	)`,

	`CREATE TABLE IF NOT EXISTS book_genres (
		book_id UUID NOT NULL REFERENCES books (book_id) ON DELETE CASCADE,
		genre_id UUID NOT NULL REFERENCES genres (genre_id) ON DELETE CASCADE,
		PRIMARY KEY (book_id, genre_id)
	)`,

	`CREATE TABLE IF NOT EXISTS readers (
		reader_id UUID PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		notes TEXT NOT NULL DEFAULT '',
		registration_date TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS book_loans (
		loan_id UUID PRIMARY KEY,
		book_id UUID NOT NULL REFERENCES books (book_id) ON DELETE CASCADE,
		reader_id UUID NOT NULL REFERENCES readers (reader_id) ON DELETE CASCADE,
		status TEXT NOT NULL CHECK (status IN ('active', 'returned', 'lost')),
		loan_date TIMESTAMPTZ NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		return_date TIMESTAMPTZ,
		fine_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		is_returned BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT NOT NULL DEFAULT '',
		CHECK (due_date > loan_date),
		CHECK ((status = 'returned') = is_returned),
		CHECK (is_returned = (return_date IS NOT NULL))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_book_loans_open
		ON book_loans (book_id) WHERE NOT is_returned`,

	`CREATE INDEX IF NOT EXISTS idx_book_loans_reader
		ON book_loans (reader_id)`,

	`CREATE TABLE IF NOT EXISTS fines (
		fine_id UUID PRIMARY KEY,
		loan_id UUID NOT NULL REFERENCES book_loans (loan_id) ON DELETE CASCADE,
		amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
		reason TEXT NOT NULL,
		issued_date TIMESTAMPTZ NOT NULL,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_date TIMESTAMPTZ,
		CHECK (is_paid = (paid_date IS NOT NULL))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_fines_loan
		ON fines (loan_id)`,
}

// CreateSchema creates all circulation tables and indexes if they do not
// exist yet. It is safe to call on every startup.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.exec(ctx, s.db, stmt); err != nil {
			return mapDBError(err)
		}
	}

	return nil
}
