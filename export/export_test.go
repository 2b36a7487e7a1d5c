package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libradesk/circulation-go/circulation"
	"github.com/libradesk/circulation-go/circulation/memoryengine"
	"github.com/libradesk/circulation-go/export"
	"github.com/libradesk/circulation-go/testutil/helper"
)

func givenPopulatedStore(t testing.TB, ctx context.Context) (*memoryengine.Store, circulation.Book, circulation.Loan) {
	store := memoryengine.NewStore()

	publisher := helper.FixturePublisher(t)
	require.NoError(t, store.AddPublisher(ctx, publisher))

	author := helper.FixtureAuthor(t)
	require.NoError(t, store.AddAuthor(ctx, author))

	genre := helper.FixtureGenre(t)
	require.NoError(t, store.AddGenre(ctx, genre))

	book := helper.FixtureBook(t, 2)
	publisherID := publisher.ID
	book.PublisherID = &publisherID
	require.NoError(t, store.AddBook(ctx, book))
	require.NoError(t, store.LinkBookAuthor(ctx, book.ID, author.ID))
	require.NoError(t, store.LinkBookGenre(ctx, book.ID, genre.ID))

	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	loanedAt := time.Date(2023, 2, 6, 12, 0, 0, 0, time.UTC)
	loan := circulation.Loan{
		ID:       helper.GivenUniqueID(t),
		BookID:   book.ID,
		ReaderID: reader.ID,
		Status:   circulation.LoanStatusActive,
		LoanedAt: loanedAt,
		DueAt:    loanedAt.Add(14 * 24 * time.Hour),
	}
	require.NoError(t, store.ReserveAndInsertLoan(ctx, loan))

	fine := circulation.Fine{
		ID:       helper.GivenUniqueID(t),
		LoanID:   loan.ID,
		Amount:   circulation.MoneyFromFloat(75),
		Reason:   "overdue return",
		IssuedAt: loanedAt.Add(17 * 24 * time.Hour),
	}
	require.NoError(t, store.InsertFine(ctx, fine))

	return store, book, loan
}

func Test_Collect_When_StoreIsPopulated(t *testing.T) {
	// setup
	ctx := context.Background()

	// arrange
	store, book, loan := givenPopulatedStore(t, ctx)

	// act
	snapshot, err := export.Collect(ctx, store)

	// assert
	assert.NoError(t, err, "error collecting the snapshot")
	assert.False(t, snapshot.ExportedAt.IsZero())

	require.Len(t, snapshot.Authors, 1)
	require.Len(t, snapshot.Publishers, 1)
	require.Len(t, snapshot.Genres, 1)
	require.Len(t, snapshot.Readers, 1)
	require.Len(t, snapshot.Books, 1)
	require.Len(t, snapshot.Loans, 1)
	require.Len(t, snapshot.Fines, 1)

	exportedBook := snapshot.Books[0]
	assert.Equal(t, book.ID.String(), exportedBook.ID)
	assert.Equal(t, book.Title, exportedBook.Title)
	assert.Equal(t, book.PublisherID.String(), exportedBook.PublisherID)
	assert.Equal(t, "45.99", exportedBook.Price)

	exportedLoan := snapshot.Loans[0]
	assert.Equal(t, loan.ID.String(), exportedLoan.ID)
	assert.Equal(t, "active", exportedLoan.Status)
	assert.Equal(t, "2023-02-06T12:00:00Z", exportedLoan.LoanedAt)
	assert.Empty(t, exportedLoan.ReturnedAt)

	exportedFine := snapshot.Fines[0]
	assert.Equal(t, "75.00", exportedFine.Amount)
	assert.False(t, exportedFine.IsPaid)
	assert.Empty(t, exportedFine.PaidAt)
}

func Test_Collect_When_StoreIsEmpty(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// act
	snapshot, err := export.Collect(ctx, store)

	// assert
	assert.NoError(t, err)
	assert.Empty(t, snapshot.Books)
	assert.Empty(t, snapshot.Loans)
	assert.Empty(t, snapshot.Fines)
}

func Test_WriteJSON_ProducesTheWireFieldNames(t *testing.T) {
	// setup
	ctx := context.Background()

	// arrange
	store, _, loan := givenPopulatedStore(t, ctx)

	snapshot, err := export.Collect(ctx, store)
	require.NoError(t, err)

	// act
	var buf bytes.Buffer
	err = export.WriteJSON(&buf, snapshot)

	// assert
	assert.NoError(t, err, "error writing the JSON export")

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &decoded))

	loans, ok := decoded["loans"].([]any)
	require.True(t, ok)
	require.Len(t, loans, 1)

	fields, ok := loans[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, loan.ID.String(), fields["loan_id"])
	assert.Equal(t, "active", fields["status"])
	assert.Equal(t, false, fields["is_returned"])
	assert.NotContains(t, fields, "return_date", "empty optionals must be omitted")
}

func Test_MarshalJSON_And_WriteJSON_Agree(t *testing.T) {
	// setup
	ctx := context.Background()

	// arrange
	store, _, _ := givenPopulatedStore(t, ctx)

	snapshot, err := export.Collect(ctx, store)
	require.NoError(t, err)

	// act
	marshaled, marshalErr := export.MarshalJSON(snapshot)

	var buf bytes.Buffer
	writeErr := export.WriteJSON(&buf, snapshot)

	// assert
	assert.NoError(t, marshalErr)
	assert.NoError(t, writeErr)
	assert.JSONEq(t, string(marshaled), buf.String())
}

func Test_WriteCSV_WritesOneFilePerTable(t *testing.T) {
	// setup
	ctx := context.Background()
	dir := t.TempDir()

	// arrange
	store, book, _ := givenPopulatedStore(t, ctx)

	snapshot, err := export.Collect(ctx, store)
	require.NoError(t, err)

	// act
	err = export.WriteCSV(dir, snapshot)

	// assert
	assert.NoError(t, err, "error writing the CSV export")

	expectedFiles := []string{
		"authors.csv", "publishers.csv", "genres.csv", "books.csv",
		"readers.csv", "book_loans.csv", "fines.csv",
	}
	for _, name := range expectedFiles {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, "expected export file %s", name)
	}

	f, openErr := os.Open(filepath.Join(dir, "books.csv"))
	require.NoError(t, openErr)
	defer func() { _ = f.Close() }()

	rows, readErr := csv.NewReader(f).ReadAll()
	require.NoError(t, readErr)
	require.Len(t, rows, 2, "expected a header row and one book row")
	assert.Equal(t, "book_id", rows[0][0])
	assert.Equal(t, book.ID.String(), rows[1][0])
}

func Test_WriteCSV_When_SnapshotIsEmpty(t *testing.T) {
	// setup
	dir := t.TempDir()

	// act
	err := export.WriteCSV(dir, export.Snapshot{ExportedAt: time.Now().UTC()})

	// assert
	assert.NoError(t, err)

	f, openErr := os.Open(filepath.Join(dir, "fines.csv"))
	require.NoError(t, openErr)
	defer func() { _ = f.Close() }()

	rows, readErr := csv.NewReader(f).ReadAll()
	require.NoError(t, readErr)
	require.Len(t, rows, 1, "an empty table still gets its header row")
	assert.Equal(t, "fine_id", rows[0][0])
}
