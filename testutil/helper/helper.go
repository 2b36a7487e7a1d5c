// Package helper provides test data builders and seeding helpers shared by
// the engine and storage tests.
package helper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/libradesk/circulation-go/circulation"
)

// GivenUniqueID returns a fresh v7 UUID for test data.
func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	require.NoError(t, err, "error in arranging test data")

	return id
}

// FixtureBook builds a valid book with the given stock quantity and a
// unique ISBN.
func FixtureBook(t testing.TB, stock int) circulation.Book {
	id := GivenUniqueID(t)

	return circulation.Book{
		ID:              id,
		ISBN:            fmt.Sprintf("978-1-%s", id.String()[:13]),
		Title:           "Learning Domain-Driven Design",
		PublicationYear: 2021,
		PageCount:       551,
		Price:           circulation.MoneyFromFloat(45.99),
		QuantityInStock: stock,
		Language:        "en",
		CreatedAt:       time.Now().UTC(),
	}
}

// FixtureReader builds a registered reader with a unique email.
func FixtureReader(t testing.TB, active bool) circulation.Reader {
	id := GivenUniqueID(t)

	return circulation.Reader{
		ID:           id,
		FirstName:    "Vlad",
		LastName:     "Khononov",
		Email:        fmt.Sprintf("reader-%s@example.com", id.String()[:8]),
		IsActive:     active,
		RegisteredAt: time.Now().UTC(),
	}
}

// FixtureAuthor builds an author with a unique name pair.
func FixtureAuthor(t testing.TB) circulation.Author {
	id := GivenUniqueID(t)

	return circulation.Author{
		ID:        id,
		FirstName: "Eric",
		LastName:  fmt.Sprintf("Evans-%s", id.String()[:8]),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}

// FixturePublisher builds a publisher with a unique name.
func FixturePublisher(t testing.TB) circulation.Publisher {
	id := GivenUniqueID(t)

	return circulation.Publisher{
		ID:        id,
		Name:      fmt.Sprintf("O'Reilly Media %s", id.String()[:8]),
		CreatedAt: time.Now().UTC(),
	}
}

// FixtureGenre builds a genre with a unique name.
func FixtureGenre(t testing.TB) circulation.Genre {
	id := GivenUniqueID(t)

	return circulation.Genre{
		ID:        id,
		Name:      fmt.Sprintf("Software Design %s", id.String()[:8]),
		CreatedAt: time.Now().UTC(),
	}
}

// GivenBookInCatalog stores a fresh book with the given stock and returns it.
func GivenBookInCatalog(t testing.TB, ctx context.Context, catalog circulation.CatalogStore, stock int) circulation.Book {
	book := FixtureBook(t, stock)
	require.NoError(t, catalog.AddBook(ctx, book), "error in arranging test data")

	return book
}

// GivenRegisteredReader stores a fresh reader and returns it.
func GivenRegisteredReader(t testing.TB, ctx context.Context, directory circulation.ReaderDirectory, active bool) circulation.Reader {
	reader := FixtureReader(t, active)
	require.NoError(t, directory.AddReader(ctx, reader), "error in arranging test data")

	return reader
}

// GivenActiveLoan issues a loan for the book and reader through the engine.
func GivenActiveLoan(
	t testing.TB,
	ctx context.Context,
	engine *circulation.Engine,
	bookID uuid.UUID,
	readerID uuid.UUID,
	period time.Duration,
) circulation.Loan {

	loan, err := engine.IssueLoan(ctx, bookID, readerID, period)
	require.NoError(t, err, "error in arranging test data")

	return loan
}
