package memoryengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libradesk/circulation-go/circulation"
	"github.com/libradesk/circulation-go/circulation/memoryengine"
	"github.com/libradesk/circulation-go/testutil/helper"
)

func activeLoanFor(t *testing.T, book circulation.Book, reader circulation.Reader) circulation.Loan {
	now := time.Now().UTC()

	return circulation.Loan{
		ID:       helper.GivenUniqueID(t),
		BookID:   book.ID,
		ReaderID: reader.ID,
		Status:   circulation.LoanStatusActive,
		LoanedAt: now,
		DueAt:    now.Add(14 * 24 * time.Hour),
	}
}

func Test_AddBook_When_ISBNAlreadyUsed(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)

	duplicate := helper.FixtureBook(t, 1)
	duplicate.ISBN = book.ISBN

	// act
	err := store.AddBook(ctx, duplicate)

	// assert
	assert.ErrorIs(t, err, circulation.ErrDuplicateKey)
}

func Test_AddBook_When_IntakeConstraintsViolated(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	invalidate := map[string]func(*circulation.Book){
		"publication year before 1801": func(b *circulation.Book) { b.PublicationYear = 1500 },
		"publication year in future":   func(b *circulation.Book) { b.PublicationYear = time.Now().Year() + 1 },
		"non-positive page count":      func(b *circulation.Book) { b.PageCount = -10 },
		"negative price":               func(b *circulation.Book) { b.Price = circulation.MoneyFromFloat(-5) },
		"negative stock":               func(b *circulation.Book) { b.QuantityInStock = -1 },
		"empty title":                  func(b *circulation.Book) { b.Title = "" },
	}

	for name, breakIt := range invalidate {
		t.Run(name, func(t *testing.T) {
			// arrange
			book := helper.FixtureBook(t, 1)
			breakIt(&book)

			// act
			err := store.AddBook(ctx, book)

			// assert
			assert.ErrorIs(t, err, circulation.ErrInvalidBook)

			_, getErr := store.GetBook(ctx, book.ID)
			assert.ErrorIs(t, getErr, circulation.ErrNotFound, "an invalid book must not be stored")
		})
	}
}

func Test_AddBook_When_PublisherUnknown(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()

	book := helper.FixtureBook(t, 1)
	unknown := helper.GivenUniqueID(t)
	book.PublisherID = &unknown

	err := store.AddBook(ctx, book)

	assert.ErrorIs(t, err, circulation.ErrNotFound)
}

func Test_AddReader_When_EmailAlreadyUsed(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	duplicate := helper.FixtureReader(t, true)
	duplicate.Email = reader.Email

	// act
	err := store.AddReader(ctx, duplicate)

	// assert
	assert.ErrorIs(t, err, circulation.ErrDuplicateKey)
}

func Test_AddAuthor_When_NamePairAlreadyUsed(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	author := helper.FixtureAuthor(t)
	require.NoError(t, store.AddAuthor(ctx, author))

	duplicate := helper.FixtureAuthor(t)
	duplicate.FirstName = author.FirstName
	duplicate.LastName = author.LastName

	// act
	err := store.AddAuthor(ctx, duplicate)

	// assert
	assert.ErrorIs(t, err, circulation.ErrDuplicateKey)
}

func Test_LinkBookAuthor_When_PairAlreadyLinked(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	author := helper.FixtureAuthor(t)
	require.NoError(t, store.AddAuthor(ctx, author))
	require.NoError(t, store.LinkBookAuthor(ctx, book.ID, author.ID))

	// act
	err := store.LinkBookAuthor(ctx, book.ID, author.ID)

	// assert
	assert.ErrorIs(t, err, circulation.ErrDuplicateKey)
}

func Test_LinkBookGenre_When_GenreUnknown(t *testing.T) {
	ctx := context.Background()
	store := memoryengine.NewStore()

	book := helper.GivenBookInCatalog(t, ctx, store, 1)

	err := store.LinkBookGenre(ctx, book.ID, helper.GivenUniqueID(t))

	assert.ErrorIs(t, err, circulation.ErrNotFound)
}

func Test_AdjustStock_When_ResultCoversOpenLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 2)

	// act
	err := store.AdjustStock(ctx, book.ID, 3)

	// assert
	assert.NoError(t, err)

	available, availErr := store.Available(ctx, book.ID)
	assert.NoError(t, availErr)
	assert.Equal(t, 5, available)
}

func Test_AdjustStock_When_ResultBelowOpenLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 2)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	require.NoError(t, store.ReserveAndInsertLoan(ctx, activeLoanFor(t, book, reader)))
	require.NoError(t, store.ReserveAndInsertLoan(ctx, activeLoanFor(t, book, reader)))

	// act
	err := store.AdjustStock(ctx, book.ID, -1)

	// assert
	assert.ErrorIs(t, err, circulation.ErrOutOfStock)
}

func Test_DeleteBook_When_LoansAndFinesExist_Cascades(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := activeLoanFor(t, book, reader)
	require.NoError(t, store.ReserveAndInsertLoan(ctx, loan))

	fine := circulation.Fine{
		ID:       helper.GivenUniqueID(t),
		LoanID:   loan.ID,
		Amount:   circulation.MoneyFromFloat(10),
		Reason:   "damaged cover",
		IssuedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertFine(ctx, fine))

	// act
	err := store.DeleteBook(ctx, book.ID)

	// assert
	assert.NoError(t, err)

	_, loanErr := store.GetLoan(ctx, loan.ID)
	assert.ErrorIs(t, loanErr, circulation.ErrNotFound)

	_, fineErr := store.GetFine(ctx, fine.ID)
	assert.ErrorIs(t, fineErr, circulation.ErrNotFound)
}

func Test_DeleteReader_When_LoansAndFinesExist_Cascades(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := activeLoanFor(t, book, reader)
	require.NoError(t, store.ReserveAndInsertLoan(ctx, loan))

	// act
	err := store.DeleteReader(ctx, reader.ID)

	// assert
	assert.NoError(t, err)

	_, loanErr := store.GetLoan(ctx, loan.ID)
	assert.ErrorIs(t, loanErr, circulation.ErrNotFound)

	available, availErr := store.Available(ctx, book.ID)
	assert.NoError(t, availErr)
	assert.Equal(t, 1, available, "cascaded loans must release their copies")
}

func Test_DeletePublisher_When_BooksReferenceIt_DetachesBooks(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	publisher := helper.FixturePublisher(t)
	require.NoError(t, store.AddPublisher(ctx, publisher))

	book := helper.FixtureBook(t, 1)
	publisherID := publisher.ID
	book.PublisherID = &publisherID
	require.NoError(t, store.AddBook(ctx, book))

	// act
	err := store.DeletePublisher(ctx, publisher.ID)

	// assert
	assert.NoError(t, err)

	detached, getErr := store.GetBook(ctx, book.ID)
	assert.NoError(t, getErr, "deleting a publisher must not delete its books")
	assert.Nil(t, detached.PublisherID)
}

func Test_ExtendLoan_When_DueDateMovedConcurrently(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := activeLoanFor(t, book, reader)
	require.NoError(t, store.ReserveAndInsertLoan(ctx, loan))

	staleDueAt := loan.DueAt.Add(-time.Hour)

	// act
	err := store.ExtendLoan(ctx, loan.ID, staleDueAt, loan.DueAt.Add(7*24*time.Hour))

	// assert
	assert.ErrorIs(t, err, circulation.ErrContention)
}

func Test_CompleteReturn_When_LoanAlreadyTerminated(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := activeLoanFor(t, book, reader)
	require.NoError(t, store.ReserveAndInsertLoan(ctx, loan))
	require.NoError(t, store.CompleteLost(ctx, loan.ID, loan.DueAt, nil))

	// act
	err := store.CompleteReturn(ctx, loan.ID, loan.DueAt, time.Now().UTC(), nil)

	// assert
	assert.ErrorIs(t, err, circulation.ErrInvalidState)
}

func Test_SettleFine_When_AlreadyPaid(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := activeLoanFor(t, book, reader)
	require.NoError(t, store.ReserveAndInsertLoan(ctx, loan))

	fine := circulation.Fine{
		ID:       helper.GivenUniqueID(t),
		LoanID:   loan.ID,
		Amount:   circulation.MoneyFromFloat(10),
		Reason:   "damaged cover",
		IssuedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertFine(ctx, fine))
	require.NoError(t, store.SettleFine(ctx, fine.ID, time.Now().UTC()))

	// act
	err := store.SettleFine(ctx, fine.ID, time.Now().UTC())

	// assert
	assert.ErrorIs(t, err, circulation.ErrAlreadyPaid)
}

func Test_OutstandingBalance_When_ReaderUnknown(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// act
	balance, err := store.OutstandingBalance(ctx, helper.GivenUniqueID(t))

	// assert
	assert.NoError(t, err, "an unknown reader has a zero balance, not an error")
	assert.Equal(t, circulation.Money(0), balance)
}

func Test_OpenLoansByReader_When_ReaderUnknown(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// act
	loans, err := store.OpenLoansByReader(ctx, helper.GivenUniqueID(t))

	// assert
	assert.NoError(t, err, "an unknown reader has no open loans, not an error")
	assert.Empty(t, loans)
}

func Test_ListBooks_OrderedByTitle(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	first := helper.FixtureBook(t, 1)
	first.Title = "Zebra Patterns"
	second := helper.FixtureBook(t, 1)
	second.Title = "Accelerate"
	require.NoError(t, store.AddBook(ctx, first))
	require.NoError(t, store.AddBook(ctx, second))

	// act
	books, err := store.ListBooks(ctx)

	// assert
	assert.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Accelerate", books[0].Title)
	assert.Equal(t, "Zebra Patterns", books[1].Title)
}

func Test_OpenLoansByReader_ExcludesReturnedLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 2)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	returned := activeLoanFor(t, book, reader)
	require.NoError(t, store.ReserveAndInsertLoan(ctx, returned))
	require.NoError(t, store.CompleteReturn(ctx, returned.ID, returned.DueAt, time.Now().UTC(), nil))

	open := activeLoanFor(t, book, reader)
	require.NoError(t, store.ReserveAndInsertLoan(ctx, open))

	// act
	loans, err := store.OpenLoansByReader(ctx, reader.ID)

	// assert
	assert.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, open.ID, loans[0].ID)
}
