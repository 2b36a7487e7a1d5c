package circulation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	logMsgLoanIssued       = "loan issued"
	logMsgLoanRenewed      = "loan renewed"
	logMsgLoanReturned     = "loan returned"
	logMsgLoanMarkedLost   = "loan marked lost"
	logMsgFineAssessed     = "fine assessed"
	logMsgFinePaid         = "fine paid"
	logMsgOperationFailed  = "circulation operation failed"
	logAttrError           = "error"
	logAttrLoanID          = "loan_id"
	logAttrBookID          = "book_id"
	logAttrReaderID        = "reader_id"
	logAttrFineID          = "fine_id"
	logAttrFineAmount      = "fine_amount"
	logAttrDueAt           = "due_at"
	logAttrDaysLate        = "days_late"
	reasonOverdueReturn    = "overdue return"
	reasonLostReplacement  = "lost copy replacement"
	defaultDailyFineCents  = Money(50)
	opIssueLoan            = "issue_loan"
	opRenewLoan            = "renew_loan"
	opReturnLoan           = "return_loan"
	opMarkLoanLost         = "mark_loan_lost"
	opAssessFine           = "assess_fine"
	opPayFine              = "pay_fine"
)

// Engine is the loan lifecycle state machine. It is the only mutation path
// for loans and fines; catalog and reader maintenance go through the
// CatalogStore / ReaderDirectory surfaces of the storage engines.
//
// The zero value is not usable; construct with NewEngine.
type Engine struct {
	store             Store
	finePolicy        FinePolicy
	replacementPolicy ReplacementFinePolicy
	clock             func() time.Time
	renewWhileOverdue bool
	retryOptions      []RetryOption
	logger            Logger
	metrics           MetricsCollector
}

// EngineOption defines a functional option for configuring an Engine.
type EngineOption func(*Engine) error

// WithFinePolicy sets the overdue fine policy.
// The default is DailyRatePolicy(0.50 per day, capped at the book price).
func WithFinePolicy(policy FinePolicy) EngineOption {
	return func(e *Engine) error {
		e.finePolicy = policy
		return nil
	}
}

// WithReplacementFinePolicy sets the policy for fines on lost copies.
// The default charges the full book price.
func WithReplacementFinePolicy(policy ReplacementFinePolicy) EngineOption {
	return func(e *Engine) error {
		e.replacementPolicy = policy
		return nil
	}
}

// WithClock sets the time source, used by tests to run on a fake clock.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) error {
		e.clock = clock
		return nil
	}
}

// WithRenewWhileOverdue allows renewing loans that are already overdue.
// The default policy forbids it.
func WithRenewWhileOverdue(allowed bool) EngineOption {
	return func(e *Engine) error {
		e.renewWhileOverdue = allowed
		return nil
	}
}

// WithRetryOptions sets a custom retry configuration for transient
// storage contention.
func WithRetryOptions(opts ...RetryOption) EngineOption {
	return func(e *Engine) error {
		e.retryOptions = opts
		return nil
	}
}

// WithLogger sets the logger for the Engine.
func WithLogger(logger Logger) EngineOption {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
func WithMetrics(collector MetricsCollector) EngineOption {
	return func(e *Engine) error {
		e.metrics = collector
		return nil
	}
}

// NewEngine creates an Engine over the given store with optional configuration.
func NewEngine(store Store, options ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	engine := &Engine{
		store:             store,
		finePolicy:        DailyRatePolicy(defaultDailyFineCents, true),
		replacementPolicy: BookPriceReplacementPolicy(),
		clock:             time.Now,
	}

	for _, option := range options {
		if err := option(engine); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

// IssueLoan hands one copy of a book to a reader for the given period and
// returns the created loan in active state.
//
// Preconditions: the reader exists and is active, the book exists, and one
// copy is available. The availability check and the loan insert are a single
// atomic unit inside the store, so two concurrent issues against the last
// copy cannot both succeed.
//
// Fails with ErrNotFound, ErrReaderInactive, ErrOutOfStock,
// ErrInvalidLoanPeriod, or ErrContention after exhausted retries.
func (e *Engine) IssueLoan(
	ctx context.Context,
	bookID uuid.UUID,
	readerID uuid.UUID,
	period time.Duration,
) (Loan, error) {

	defer e.measure(opIssueLoan, e.clock())

	if period <= 0 {
		return Loan{}, ErrInvalidLoanPeriod
	}

	now := e.clock()
	loan := Loan{
		ID:       uuid.New(),
		BookID:   bookID,
		ReaderID: readerID,
		Status:   LoanStatusActive,
		LoanedAt: now,
		DueAt:    now.Add(period),
	}

	err := RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		return e.store.ReserveAndInsertLoan(retryCtx, loan)
	}, e.retryOpts(opIssueLoan)...)
	if err != nil {
		e.logError(opIssueLoan, err, logAttrBookID, bookID.String(), logAttrReaderID, readerID.String())
		return Loan{}, err
	}

	e.logInfo(logMsgLoanIssued,
		logAttrLoanID, loan.ID.String(),
		logAttrBookID, bookID.String(),
		logAttrReaderID, readerID.String(),
		logAttrDueAt, loan.DueAt)

	return loan, nil
}

// RenewLoan extends the due date of an active loan by the given extension.
// Renewal never decreases the due date and does not change the loan state.
//
// The default policy forbids renewing a loan that is already overdue
// (ErrRenewalNotAllowed); see WithRenewWhileOverdue. A renewal racing a
// return on the same loan loses with ErrInvalidState.
func (e *Engine) RenewLoan(
	ctx context.Context,
	loanID uuid.UUID,
	extension time.Duration,
) (Loan, error) {

	defer e.measure(opRenewLoan, e.clock())

	if extension <= 0 {
		return Loan{}, ErrInvalidLoanPeriod
	}

	var renewed Loan

	err := RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		loan, getErr := e.store.GetLoan(retryCtx, loanID)
		if getErr != nil {
			return getErr
		}

		if loan.Status != LoanStatusActive {
			return ErrInvalidState
		}

		if !e.renewWhileOverdue && e.clock().After(loan.DueAt) {
			return ErrRenewalNotAllowed
		}

		newDueAt := loan.DueAt.Add(extension)

		if extendErr := e.store.ExtendLoan(retryCtx, loanID, loan.DueAt, newDueAt); extendErr != nil {
			return extendErr
		}

		loan.DueAt = newDueAt
		renewed = loan

		return nil
	}, e.retryOpts(opRenewLoan)...)
	if err != nil {
		e.logError(opRenewLoan, err, logAttrLoanID, loanID.String())
		return Loan{}, err
	}

	e.logInfo(logMsgLoanRenewed, logAttrLoanID, loanID.String(), logAttrDueAt, renewed.DueAt)

	return renewed, nil
}

// ReturnLoan terminates an active loan as returned at returnedAt, releasing
// the copy back to availability. Lateness is computed against the latest due
// date; a positive lateness assesses a fine through the configured policy,
// recorded in the fine ledger and mirrored into the loan's fine amount in
// the same atomic unit.
//
// Fails with ErrNotFound or ErrInvalidState (already returned or lost).
func (e *Engine) ReturnLoan(
	ctx context.Context,
	loanID uuid.UUID,
	returnedAt time.Time,
) (Loan, error) {

	defer e.measure(opReturnLoan, e.clock())

	if returnedAt.IsZero() {
		returnedAt = e.clock()
	}

	var returned Loan

	err := RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		loan, getErr := e.store.GetLoan(retryCtx, loanID)
		if getErr != nil {
			return getErr
		}

		if loan.Status != LoanStatusActive {
			return ErrInvalidState
		}

		book, bookErr := e.store.GetBook(retryCtx, loan.BookID)
		if bookErr != nil {
			return bookErr
		}

		assessed := e.buildOverdueFine(loan, returnedAt, book.Price)

		if completeErr := e.store.CompleteReturn(retryCtx, loanID, loan.DueAt, returnedAt, assessed); completeErr != nil {
			return completeErr
		}

		loan.Status = LoanStatusReturned
		loan.IsReturned = true
		loan.ReturnedAt = &returnedAt
		if assessed != nil {
			loan.FineAmount = assessed.Amount
		}
		returned = loan

		return nil
	}, e.retryOpts(opReturnLoan)...)
	if err != nil {
		e.logError(opReturnLoan, err, logAttrLoanID, loanID.String())
		return Loan{}, err
	}

	e.logInfo(logMsgLoanReturned,
		logAttrLoanID, loanID.String(),
		logAttrDaysLate, DaysLate(returned.DueAt, returnedAt),
		logAttrFineAmount, returned.FineAmount.String())

	return returned, nil
}

// MarkLoanLost terminates an active loan as lost. The copy is considered
// consumed and is not released back to availability; a replacement fine is
// assessed through the configured replacement policy (a zero amount
// assesses nothing).
//
// Fails with ErrNotFound or ErrInvalidState.
func (e *Engine) MarkLoanLost(ctx context.Context, loanID uuid.UUID) (Loan, error) {
	defer e.measure(opMarkLoanLost, e.clock())

	var lost Loan

	err := RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		loan, getErr := e.store.GetLoan(retryCtx, loanID)
		if getErr != nil {
			return getErr
		}

		if loan.Status != LoanStatusActive {
			return ErrInvalidState
		}

		book, bookErr := e.store.GetBook(retryCtx, loan.BookID)
		if bookErr != nil {
			return bookErr
		}

		assessed := e.buildReplacementFine(loan, book.Price)

		if completeErr := e.store.CompleteLost(retryCtx, loanID, loan.DueAt, assessed); completeErr != nil {
			return completeErr
		}

		loan.Status = LoanStatusLost
		if assessed != nil {
			loan.FineAmount = assessed.Amount
		}
		lost = loan

		return nil
	}, e.retryOpts(opMarkLoanLost)...)
	if err != nil {
		e.logError(opMarkLoanLost, err, logAttrLoanID, loanID.String())
		return Loan{}, err
	}

	e.logInfo(logMsgLoanMarkedLost, logAttrLoanID, loanID.String(), logAttrFineAmount, lost.FineAmount.String())

	return lost, nil
}

// AssessFine appends a manual unpaid fine against a loan, e.g. for damage.
// The amount must be positive (ErrInvalidAmount); the loan must exist
// (ErrNotFound). Manual fines are not mirrored into the loan's fine amount,
// which tracks only the return-time assessment.
func (e *Engine) AssessFine(
	ctx context.Context,
	loanID uuid.UUID,
	amount Money,
	reason string,
) (Fine, error) {

	defer e.measure(opAssessFine, e.clock())

	if amount <= 0 {
		return Fine{}, ErrInvalidAmount
	}

	fine := Fine{
		ID:       uuid.New(),
		LoanID:   loanID,
		Amount:   amount,
		Reason:   reason,
		IssuedAt: e.clock(),
	}

	if err := e.store.InsertFine(ctx, fine); err != nil {
		e.logError(opAssessFine, err, logAttrLoanID, loanID.String())
		return Fine{}, err
	}

	e.logInfo(logMsgFineAssessed,
		logAttrFineID, fine.ID.String(),
		logAttrLoanID, loanID.String(),
		logAttrFineAmount, amount.String())

	return fine, nil
}

// PayFine settles an unpaid fine at paidAt. Paying a fine twice fails with
// ErrAlreadyPaid so callers can detect double-submission; the failing call
// leaves the fine and the reader's balance unchanged.
func (e *Engine) PayFine(ctx context.Context, fineID uuid.UUID, paidAt time.Time) (Fine, error) {
	defer e.measure(opPayFine, e.clock())

	if paidAt.IsZero() {
		paidAt = e.clock()
	}

	// Read before settling: once the settlement commits, no further call
	// can fail, so an error from PayFine always means no payment happened.
	fine, err := e.store.GetFine(ctx, fineID)
	if err != nil {
		e.logError(opPayFine, err, logAttrFineID, fineID.String())
		return Fine{}, err
	}

	if err := e.store.SettleFine(ctx, fineID, paidAt); err != nil {
		e.logError(opPayFine, err, logAttrFineID, fineID.String())
		return Fine{}, err
	}

	fine.IsPaid = true
	fine.PaidAt = &paidAt

	e.logInfo(logMsgFinePaid, logAttrFineID, fineID.String(), logAttrFineAmount, fine.Amount.String())

	return fine, nil
}

// Available returns the number of copies of a book currently available to
// loan: quantity in stock minus open loans. Never negative.
func (e *Engine) Available(ctx context.Context, bookID uuid.UUID) (int, error) {
	return e.store.Available(ctx, bookID)
}

// OutstandingBalance returns the sum of unpaid fines across all loans of
// a reader.
func (e *Engine) OutstandingBalance(ctx context.Context, readerID uuid.UUID) (Money, error) {
	return e.store.OutstandingBalance(ctx, readerID)
}

// buildOverdueFine runs the fine policy and builds the fine row for a late
// return, or nil when no fine is due.
func (e *Engine) buildOverdueFine(loan Loan, returnedAt time.Time, bookPrice Money) *Fine {
	amount := e.finePolicy(loan.DueAt, returnedAt, bookPrice)
	if amount <= 0 {
		return nil
	}

	return &Fine{
		ID:       uuid.New(),
		LoanID:   loan.ID,
		Amount:   amount,
		Reason:   reasonOverdueReturn,
		IssuedAt: returnedAt,
	}
}

// buildReplacementFine builds the fine row for a lost copy, or nil when the
// replacement policy yields nothing (e.g. a zero-price book).
func (e *Engine) buildReplacementFine(loan Loan, bookPrice Money) *Fine {
	amount := e.replacementPolicy(bookPrice)
	if amount <= 0 {
		return nil
	}

	return &Fine{
		ID:       uuid.New(),
		LoanID:   loan.ID,
		Amount:   amount,
		Reason:   reasonLostReplacement,
		IssuedAt: e.clock(),
	}
}

// retryOpts prepends the retry metrics option for the given operation to the
// configured retry options.
func (e *Engine) retryOpts(operation string) []RetryOption {
	if e.metrics == nil {
		return e.retryOptions
	}

	opts := []RetryOption{WithRetryMetrics(e.metrics, operation)}

	return append(opts, e.retryOptions...)
}

// measure records the operation duration when a metrics collector is set.
func (e *Engine) measure(operation string, start time.Time) {
	if e.metrics == nil {
		return
	}

	e.metrics.RecordDuration(MetricOperationDuration, e.clock().Sub(start), map[string]string{
		LabelOperation: operation,
	})
}

// logInfo logs operational information at info level if a logger is configured.
func (e *Engine) logInfo(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

// logError logs a failed operation at error level if a logger is configured.
// Expected lifecycle rejections (invalid state, out of stock) are logged at
// info level instead: they are outcomes, not faults.
func (e *Engine) logError(operation string, err error, args ...any) {
	if e.metrics != nil {
		e.metrics.IncrementCounter(MetricOperationErrors, map[string]string{
			LabelOperation: operation,
			LabelErrorType: errorType(err),
		})
	}

	if e.logger == nil {
		return
	}

	allArgs := []any{logAttrError, err.Error(), LabelOperation, operation}
	allArgs = append(allArgs, args...)

	if isLifecycleRejection(err) {
		e.logger.Info(logMsgOperationFailed, allArgs...)
		return
	}

	e.logger.Error(logMsgOperationFailed, allArgs...)
}

// isLifecycleRejection reports whether err is an expected business rejection
// rather than a storage fault.
func isLifecycleRejection(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrReaderInactive) ||
		errors.Is(err, ErrRenewalNotAllowed) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidLoanPeriod)
}

// errorType extracts a stable label for metrics from the error taxonomy.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrReaderInactive):
		return "reader_inactive"
	case errors.Is(err, ErrRenewalNotAllowed):
		return "renewal_not_allowed"
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, ErrContention):
		return "contention"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context_deadline_exceeded"
	default:
		return "other"
	}
}
