package circulation_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libradesk/circulation-go/circulation"
	"github.com/libradesk/circulation-go/circulation/memoryengine"
	"github.com/libradesk/circulation-go/testutil/helper"
)

const loanPeriod = 14 * 24 * time.Hour

// fakeClock is a settable clock for deterministic engine tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) SetTo(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

func newTestEngine(t *testing.T, options ...circulation.EngineOption) (*circulation.Engine, *memoryengine.Store) {
	store := memoryengine.NewStore()

	engine, err := circulation.NewEngine(store, options...)
	require.NoError(t, err, "creating the engine failed")

	return engine, store
}

func Test_IssueLoan_When_CopyAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 2)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	// act
	loan, err := engine.IssueLoan(ctx, book.ID, reader.ID, loanPeriod)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, circulation.LoanStatusActive, loan.Status)
	assert.Equal(t, loan.LoanedAt.Add(loanPeriod), loan.DueAt)

	available, err := engine.Available(ctx, book.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, available)
}

func Test_IssueLoan_When_BookUnknown(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	_, err := engine.IssueLoan(ctx, helper.GivenUniqueID(t), reader.ID, loanPeriod)

	assert.ErrorIs(t, err, circulation.ErrNotFound)
}

func Test_IssueLoan_When_ReaderUnknown(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	book := helper.GivenBookInCatalog(t, ctx, store, 1)

	_, err := engine.IssueLoan(ctx, book.ID, helper.GivenUniqueID(t), loanPeriod)

	assert.ErrorIs(t, err, circulation.ErrNotFound)
}

func Test_IssueLoan_When_ReaderInactive(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, false)

	// act
	_, err := engine.IssueLoan(ctx, book.ID, reader.ID, loanPeriod)

	// assert
	assert.ErrorIs(t, err, circulation.ErrReaderInactive)

	available, availErr := engine.Available(ctx, book.ID)
	assert.NoError(t, availErr)
	assert.Equal(t, 1, available, "a rejected issue must not consume a copy")
}

func Test_IssueLoan_When_NoCopyAvailable(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	// act
	_, err := engine.IssueLoan(ctx, book.ID, reader.ID, loanPeriod)

	// assert
	assert.ErrorIs(t, err, circulation.ErrOutOfStock)
}

func Test_IssueLoan_When_PeriodNotPositive(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	_, err := engine.IssueLoan(ctx, book.ID, reader.ID, 0)

	assert.ErrorIs(t, err, circulation.ErrInvalidLoanPeriod)
}

func Test_IssueLoan_When_CopyReturned_CopyCanBeIssuedAgain(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	_, issueErr := engine.IssueLoan(ctx, book.ID, reader.ID, loanPeriod)
	require.ErrorIs(t, issueErr, circulation.ErrOutOfStock)

	// act
	_, returnErr := engine.ReturnLoan(ctx, loan.ID, time.Time{})
	require.NoError(t, returnErr)

	reissued, reissueErr := engine.IssueLoan(ctx, book.ID, reader.ID, loanPeriod)

	// assert
	assert.NoError(t, reissueErr)
	assert.Equal(t, circulation.LoanStatusActive, reissued.Status)
}

func Test_RenewLoan_When_LoanActive(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	// act
	renewed, err := engine.RenewLoan(ctx, loan.ID, 7*24*time.Hour)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, loan.DueAt.Add(7*24*time.Hour), renewed.DueAt)
	assert.Equal(t, circulation.LoanStatusActive, renewed.Status)
}

func Test_RenewLoan_When_LoanOverdue(t *testing.T) {
	// setup
	ctx := context.Background()
	clock := newFakeClock(time.Date(2023, 2, 6, 10, 0, 0, 0, time.UTC))
	engine, store := newTestEngine(t, circulation.WithClock(clock.Now))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)
	clock.SetTo(loan.DueAt.Add(time.Hour))

	// act
	_, err := engine.RenewLoan(ctx, loan.ID, 7*24*time.Hour)

	// assert
	assert.ErrorIs(t, err, circulation.ErrRenewalNotAllowed)
}

func Test_RenewLoan_When_LoanOverdue_And_OverdueRenewalAllowed(t *testing.T) {
	// setup
	ctx := context.Background()
	clock := newFakeClock(time.Date(2023, 2, 6, 10, 0, 0, 0, time.UTC))
	engine, store := newTestEngine(t,
		circulation.WithClock(clock.Now),
		circulation.WithRenewWhileOverdue(true))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)
	clock.SetTo(loan.DueAt.Add(time.Hour))

	// act
	renewed, err := engine.RenewLoan(ctx, loan.ID, 7*24*time.Hour)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, loan.DueAt.Add(7*24*time.Hour), renewed.DueAt)
}

func Test_RenewLoan_When_LoanAlreadyReturned(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	_, returnErr := engine.ReturnLoan(ctx, loan.ID, time.Time{})
	require.NoError(t, returnErr)

	// act
	_, err := engine.RenewLoan(ctx, loan.ID, 7*24*time.Hour)

	// assert
	assert.ErrorIs(t, err, circulation.ErrInvalidState)
}

func Test_ReturnLoan_When_OnTime_NoFineAssessed(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	// act
	returned, err := engine.ReturnLoan(ctx, loan.ID, loan.DueAt.Add(-time.Hour))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, circulation.LoanStatusReturned, returned.Status)
	assert.True(t, returned.IsReturned)
	assert.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, circulation.Money(0), returned.FineAmount)

	balance, balanceErr := engine.OutstandingBalance(ctx, reader.ID)
	assert.NoError(t, balanceErr)
	assert.Equal(t, circulation.Money(0), balance)
}

func Test_ReturnLoan_When_ThreeDaysLate_AssessesFine(t *testing.T) {
	// setup
	ctx := context.Background()
	clock := newFakeClock(time.Date(2023, 2, 6, 0, 0, 0, 0, time.UTC))
	engine, store := newTestEngine(t,
		circulation.WithClock(clock.Now),
		circulation.WithFinePolicy(circulation.DailyRatePolicy(circulation.MoneyFromFloat(25), false)))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)
	require.Equal(t, time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC), loan.DueAt)

	// act
	returned, err := engine.ReturnLoan(ctx, loan.ID, time.Date(2023, 2, 23, 0, 0, 0, 0, time.UTC))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "75.00", returned.FineAmount.String())

	balance, balanceErr := engine.OutstandingBalance(ctx, reader.ID)
	assert.NoError(t, balanceErr)
	assert.Equal(t, "75.00", balance.String())

	fines, listErr := store.ListFines(ctx)
	assert.NoError(t, listErr)
	require.Len(t, fines, 1)
	assert.Equal(t, loan.ID, fines[0].LoanID)
	assert.False(t, fines[0].IsPaid)
}

func Test_ReturnLoan_When_RenewedThenLate_LatenessCountsFromLatestDueDate(t *testing.T) {
	// setup
	ctx := context.Background()
	clock := newFakeClock(time.Date(2023, 2, 6, 0, 0, 0, 0, time.UTC))
	engine, store := newTestEngine(t,
		circulation.WithClock(clock.Now),
		circulation.WithFinePolicy(circulation.DailyRatePolicy(circulation.MoneyFromFloat(25), false)))

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	renewed, renewErr := engine.RenewLoan(ctx, loan.ID, 7*24*time.Hour)
	require.NoError(t, renewErr)

	// act: one day past the original due date, but within the renewed one
	returned, err := engine.ReturnLoan(ctx, loan.ID, loan.DueAt.Add(24*time.Hour))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, circulation.Money(0), returned.FineAmount,
		"lateness must be computed against the renewed due date %s", renewed.DueAt)
}

func Test_ReturnLoan_When_AlreadyReturned(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	_, firstErr := engine.ReturnLoan(ctx, loan.ID, time.Time{})
	require.NoError(t, firstErr)

	// act
	_, err := engine.ReturnLoan(ctx, loan.ID, time.Time{})

	// assert
	assert.ErrorIs(t, err, circulation.ErrInvalidState)
}

func Test_ReturnLoan_When_LoanUnknown(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.ReturnLoan(ctx, helper.GivenUniqueID(t), time.Time{})

	assert.ErrorIs(t, err, circulation.ErrNotFound)
}

func Test_MarkLoanLost_When_LoanActive(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	// act
	lost, err := engine.MarkLoanLost(ctx, loan.ID)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, circulation.LoanStatusLost, lost.Status)
	assert.False(t, lost.IsReturned)
	assert.Equal(t, book.Price, lost.FineAmount, "default replacement fine is the book price")

	available, availErr := engine.Available(ctx, book.ID)
	assert.NoError(t, availErr)
	assert.Equal(t, 0, available, "a lost copy must never return to availability")

	balance, balanceErr := engine.OutstandingBalance(ctx, reader.ID)
	assert.NoError(t, balanceErr)
	assert.Equal(t, book.Price, balance)
}

func Test_MarkLoanLost_When_AlreadyLost(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	_, firstErr := engine.MarkLoanLost(ctx, loan.ID)
	require.NoError(t, firstErr)

	// act
	_, err := engine.ReturnLoan(ctx, loan.ID, time.Time{})

	// assert
	assert.ErrorIs(t, err, circulation.ErrInvalidState)
}

func Test_AssessFine_When_AmountNotPositive(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.AssessFine(ctx, helper.GivenUniqueID(t), 0, "damaged cover")

	assert.ErrorIs(t, err, circulation.ErrInvalidAmount)
}

func Test_AssessFine_When_LoanExists(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	// act
	fine, err := engine.AssessFine(ctx, loan.ID, circulation.MoneyFromFloat(10), "damaged cover")

	// assert
	assert.NoError(t, err)
	assert.False(t, fine.IsPaid)

	current, getErr := store.GetLoan(ctx, loan.ID)
	assert.NoError(t, getErr)
	assert.Equal(t, circulation.Money(0), current.FineAmount,
		"manual fines are not mirrored into the loan")

	balance, balanceErr := engine.OutstandingBalance(ctx, reader.ID)
	assert.NoError(t, balanceErr)
	assert.Equal(t, "10.00", balance.String())
}

func Test_PayFine_When_FineUnpaid(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	fine, assessErr := engine.AssessFine(ctx, loan.ID, circulation.MoneyFromFloat(10), "damaged cover")
	require.NoError(t, assessErr)

	// act
	paid, err := engine.PayFine(ctx, fine.ID, time.Time{})

	// assert
	assert.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.NotNil(t, paid.PaidAt)

	balance, balanceErr := engine.OutstandingBalance(ctx, reader.ID)
	assert.NoError(t, balanceErr)
	assert.Equal(t, circulation.Money(0), balance)
}

func Test_PayFine_When_AlreadyPaid(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	fine, assessErr := engine.AssessFine(ctx, loan.ID, circulation.MoneyFromFloat(10), "damaged cover")
	require.NoError(t, assessErr)

	_, firstErr := engine.PayFine(ctx, fine.ID, time.Time{})
	require.NoError(t, firstErr)

	// act
	_, err := engine.PayFine(ctx, fine.ID, time.Time{})

	// assert
	assert.ErrorIs(t, err, circulation.ErrAlreadyPaid)

	balance, balanceErr := engine.OutstandingBalance(ctx, reader.ID)
	assert.NoError(t, balanceErr)
	assert.Equal(t, circulation.Money(0), balance, "a failed payment must not change the balance")
}

func Test_PayFine_When_FineUnknown(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.PayFine(ctx, helper.GivenUniqueID(t), time.Time{})

	assert.ErrorIs(t, err, circulation.ErrNotFound)
}

var errFineReadFailed = errors.New("fine read failed")

// fineReadFailingStore fails every fine read while writes keep working.
type fineReadFailingStore struct {
	*memoryengine.Store
}

func (s *fineReadFailingStore) GetFine(_ context.Context, _ uuid.UUID) (circulation.Fine, error) {
	return circulation.Fine{}, errFineReadFailed
}

func Test_PayFine_When_FineReadFails_NothingIsSettled(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryengine.NewStore()

	engine, err := circulation.NewEngine(&fineReadFailingStore{Store: store})
	require.NoError(t, err, "creating the engine failed")

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	loan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	fine, assessErr := engine.AssessFine(ctx, loan.ID, circulation.MoneyFromFloat(10), "damaged cover")
	require.NoError(t, assessErr)

	// act
	_, payErr := engine.PayFine(ctx, fine.ID, time.Time{})

	// assert
	assert.ErrorIs(t, payErr, errFineReadFailed)

	stored, getErr := store.GetFine(ctx, fine.ID)
	require.NoError(t, getErr)
	assert.False(t, stored.IsPaid, "an erroring pay call must not have settled the fine")

	balance, balanceErr := store.OutstandingBalance(ctx, reader.ID)
	assert.NoError(t, balanceErr)
	assert.Equal(t, "10.00", balance.String())
}

func Test_OutstandingBalance_When_FinesAcrossMultipleLoans(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 2)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)
	firstLoan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)
	secondLoan := helper.GivenActiveLoan(t, ctx, engine, book.ID, reader.ID, loanPeriod)

	_, firstErr := engine.AssessFine(ctx, firstLoan.ID, circulation.MoneyFromFloat(10), "damaged cover")
	require.NoError(t, firstErr)
	_, secondErr := engine.AssessFine(ctx, secondLoan.ID, circulation.MoneyFromFloat(5.50), "coffee stains")
	require.NoError(t, secondErr)

	// act
	balance, err := engine.OutstandingBalance(ctx, reader.ID)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "15.50", balance.String())
}

func Test_IssueLoan_When_ConcurrentIssuesRaceForLastCopy(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	const workers = 8
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	// act
	var succeeded, outOfStock atomic.Int32
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := engine.IssueLoan(ctx, book.ID, reader.ID, loanPeriod)
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, circulation.ErrOutOfStock):
				outOfStock.Add(1)
			}
		}()
	}
	wg.Wait()

	// assert
	assert.Equal(t, int32(1), succeeded.Load(), "exactly one issue may win the last copy")
	assert.Equal(t, int32(workers-1), outOfStock.Load())

	available, availErr := engine.Available(ctx, book.ID)
	assert.NoError(t, availErr)
	assert.Equal(t, 0, available, "availability must never go negative")
}

func Test_IssueLoan_When_ConcurrentIssuesExceedStock(t *testing.T) {
	// setup
	ctx := context.Background()
	engine, store := newTestEngine(t)

	// arrange
	const workers = 12
	const stock = 3
	book := helper.GivenBookInCatalog(t, ctx, store, stock)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	// act
	var succeeded atomic.Int32
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if _, err := engine.IssueLoan(ctx, book.ID, reader.ID, loanPeriod); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	// assert
	assert.Equal(t, int32(stock), succeeded.Load())

	available, availErr := engine.Available(ctx, book.ID)
	assert.NoError(t, availErr)
	assert.Equal(t, 0, available)
}

func Test_Engine_RecordsMetrics_And_LifecycleLogs(t *testing.T) {
	// setup
	ctx := context.Background()
	logger := helper.NewLoggerSpy()
	metrics := helper.NewMetricsCollectorSpy()
	store := memoryengine.NewStore()

	engine, err := circulation.NewEngine(store,
		circulation.WithLogger(logger),
		circulation.WithMetrics(metrics))
	require.NoError(t, err)

	// arrange
	book := helper.GivenBookInCatalog(t, ctx, store, 1)
	reader := helper.GivenRegisteredReader(t, ctx, store, true)

	// act
	loan, issueErr := engine.IssueLoan(ctx, book.ID, reader.ID, loanPeriod)
	require.NoError(t, issueErr)
	_, returnErr := engine.ReturnLoan(ctx, loan.ID, time.Time{})
	require.NoError(t, returnErr)

	// assert
	assert.True(t, metrics.HasDurationRecord(circulation.MetricOperationDuration,
		map[string]string{circulation.LabelOperation: "issue_loan"}))
	assert.True(t, metrics.HasDurationRecord(circulation.MetricOperationDuration,
		map[string]string{circulation.LabelOperation: "return_loan"}))
	assert.NotEmpty(t, logger.Records())
}
