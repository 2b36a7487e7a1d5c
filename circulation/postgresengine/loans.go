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

// GetLoan returns the loan with the given id, or ErrNotFound.
func (s *Store) GetLoan(ctx context.Context, id uuid.UUID) (circulation.Loan, error) {
	return s.getLoan(ctx, s.db, id)
}

func (s *Store) getLoan(ctx context.Context, r runner, id uuid.UUID) (circulation.Loan, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblLoans).
		Select(loanColumns()...).
		Where(goqu.Ex{colLoanID: id}))
	if buildErr != nil {
		return circulation.Loan{}, buildErr
	}

	rows, queryErr := s.query(ctx, r, sqlQuery)
	if queryErr != nil {
		return circulation.Loan{}, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		return circulation.Loan{}, circulation.ErrNotFound
	}

	return scanLoan(rows)
}

// Available returns quantity in stock minus open loans for the book, read in
// one statement so the two figures come from one snapshot.
func (s *Store) Available(ctx context.Context, bookID uuid.UUID) (int, error) {
	openLoansSubquery := s.builder().
		From(tblLoans).
		Select(goqu.COUNT(goqu.Star())).
		Where(
			goqu.I(tblLoans+"."+colBookID).Eq(goqu.I(tblBooks+"."+colBookID)),
			goqu.Ex{colIsReturned: false},
		)

	sqlQuery, buildErr := toSQL(s.builder().
		From(tblBooks).
		Select(goqu.L("? - ?", goqu.I(colStockQuantity), openLoansSubquery)).
		Where(goqu.Ex{tblBooks + "." + colBookID: bookID}))
	if buildErr != nil {
		return 0, buildErr
	}

	var available int
	if queryErr := s.queryRow(ctx, s.db, sqlQuery, &available); queryErr != nil {
		return 0, mapDBError(queryErr)
	}

	return available, nil
}

// ReserveAndInsertLoan checks availability and persists the loan in one
// transaction. The book row is locked for the duration, which serializes
// concurrent reservations per book: the open-loan count is re-read under the
// lock, so availability can never go negative.
func (s *Store) ReserveAndInsertLoan(ctx context.Context, loan circulation.Loan) error {
	return s.withTx(ctx, func(tx adapters.DBTx) error {
		book, bookErr := s.getBook(ctx, tx, loan.BookID, true)
		if bookErr != nil {
			return bookErr
		}

		reader, readerErr := s.getReader(ctx, tx, loan.ReaderID)
		if readerErr != nil {
			return readerErr
		}

		if !reader.IsActive {
			return fmt.Errorf("%w: reader %s", circulation.ErrReaderInactive, reader.ID)
		}

		openLoans, countErr := s.countOpenLoans(ctx, tx, loan.BookID)
		if countErr != nil {
			return countErr
		}

		if book.QuantityInStock-openLoans <= 0 {
			return fmt.Errorf("%w: book %s has %d of %d copies on loan",
				circulation.ErrOutOfStock, book.ID, openLoans, book.QuantityInStock)
		}

		sqlQuery, buildErr := toSQL(s.builder().
			Insert(tblLoans).
			Rows(loanRecord(loan)))
		if buildErr != nil {
			return buildErr
		}

		_, execErr := s.exec(ctx, tx, sqlQuery)

		return execErr
	})
}

// ExtendLoan moves the due date of an active loan from expectedDueAt to
// newDueAt via compare-and-set on the expected due date.
func (s *Store) ExtendLoan(ctx context.Context, loanID uuid.UUID, expectedDueAt time.Time, newDueAt time.Time) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Update(tblLoans).
		Set(goqu.Record{colDueDate: newDueAt}).
		Where(goqu.Ex{
			colLoanID:  loanID,
			colStatus:  string(circulation.LoanStatusActive),
			colDueDate: expectedDueAt,
		}))
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := s.exec(ctx, s.db, sqlQuery)
	if execErr != nil {
		return mapDBError(execErr)
	}

	if rowsAffected == 0 {
		return s.classifyLoanConflict(ctx, s.db, loanID)
	}

	return nil
}

// CompleteReturn terminates an active loan as returned and records the
// assessed fine in the same transaction. The update is a compare-and-set on
// the expected due date, so a concurrent renewal surfaces as ErrContention.
func (s *Store) CompleteReturn(
	ctx context.Context,
	loanID uuid.UUID,
	expectedDueAt time.Time,
	returnedAt time.Time,
	assessed *circulation.Fine,
) error {

	return s.withTx(ctx, func(tx adapters.DBTx) error {
		record := goqu.Record{
			colStatus:     string(circulation.LoanStatusReturned),
			colReturnDate: returnedAt,
			colIsReturned: true,
			colFineAmount: fineAmountOf(assessed).Float64(),
		}

		if casErr := s.terminateLoan(ctx, tx, loanID, expectedDueAt, record); casErr != nil {
			return casErr
		}

		return s.insertAssessedFine(ctx, tx, assessed)
	})
}

// CompleteLost terminates an active loan as lost and records the replacement
// fine in the same transaction. The loan stays open in the availability sense:
// the copy is consumed and never returns to stock.
func (s *Store) CompleteLost(
	ctx context.Context,
	loanID uuid.UUID,
	expectedDueAt time.Time,
	assessed *circulation.Fine,
) error {

	return s.withTx(ctx, func(tx adapters.DBTx) error {
		record := goqu.Record{
			colStatus:     string(circulation.LoanStatusLost),
			colFineAmount: fineAmountOf(assessed).Float64(),
		}

		if casErr := s.terminateLoan(ctx, tx, loanID, expectedDueAt, record); casErr != nil {
			return casErr
		}

		return s.insertAssessedFine(ctx, tx, assessed)
	})
}

// terminateLoan applies a terminal-state update to an active loan with the
// expected due date, classifying a zero-row result into the error taxonomy.
func (s *Store) terminateLoan(
	ctx context.Context,
	tx adapters.DBTx,
	loanID uuid.UUID,
	expectedDueAt time.Time,
	record goqu.Record,
) error {

	sqlQuery, buildErr := toSQL(s.builder().
		Update(tblLoans).
		Set(record).
		Where(goqu.Ex{
			colLoanID:  loanID,
			colStatus:  string(circulation.LoanStatusActive),
			colDueDate: expectedDueAt,
		}))
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := s.exec(ctx, tx, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return s.classifyLoanConflict(ctx, tx, loanID)
	}

	return nil
}

// classifyLoanConflict explains why a compare-and-set on a loan matched no
// row: the loan is gone, already terminated, or moved under the caller.
func (s *Store) classifyLoanConflict(ctx context.Context, r runner, loanID uuid.UUID) error {
	loan, getErr := s.getLoan(ctx, r, loanID)
	if getErr != nil {
		return getErr
	}

	if loan.Status != circulation.LoanStatusActive {
		return fmt.Errorf("%w: loan %s is %s", circulation.ErrInvalidState, loan.ID, loan.Status)
	}

	return fmt.Errorf("%w: loan %s changed concurrently", circulation.ErrContention, loan.ID)
}

// insertAssessedFine records a fine assessed during loan termination.
// A nil fine means the policy assessed nothing.
func (s *Store) insertAssessedFine(ctx context.Context, tx adapters.DBTx, assessed *circulation.Fine) error {
	if assessed == nil {
		return nil
	}

	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblFines).
		Rows(fineRecord(*assessed)))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, tx, sqlQuery)

	return execErr
}

// ListLoans returns all loans ordered by loan date.
func (s *Store) ListLoans(ctx context.Context) ([]circulation.Loan, error) {
	return s.listLoans(ctx, s.builder().
		From(tblLoans).
		Select(loanColumns()...).
		Order(goqu.I(colLoanDate).Asc()))
}

// OpenLoansByReader returns the reader's loans that still hold a copy.
func (s *Store) OpenLoansByReader(ctx context.Context, readerID uuid.UUID) ([]circulation.Loan, error) {
	return s.listLoans(ctx, s.builder().
		From(tblLoans).
		Select(loanColumns()...).
		Where(goqu.Ex{colReaderID: readerID, colIsReturned: false}).
		Order(goqu.I(colLoanDate).Asc()))
}

func (s *Store) listLoans(ctx context.Context, selectStmt *goqu.SelectDataset) ([]circulation.Loan, error) {
	sqlQuery, buildErr := toSQL(selectStmt)
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return nil, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	var loans []circulation.Loan

	for rows.Next() {
		loan, scanErr := scanLoan(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		loans = append(loans, loan)
	}

	return loans, rows.Err()
}

// countOpenLoans counts the loans of a book that still hold a copy.
func (s *Store) countOpenLoans(ctx context.Context, r runner, bookID uuid.UUID) (int, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblLoans).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{colBookID: bookID, colIsReturned: false}))
	if buildErr != nil {
		return 0, buildErr
	}

	var count int
	if queryErr := s.queryRow(ctx, r, sqlQuery, &count); queryErr != nil {
		return 0, queryErr
	}

	return count, nil
}

func loanColumns() []any {
	return []any{
		colLoanID, colBookID, colReaderID, colStatus, colLoanDate,
		colDueDate, colReturnDate, colFineAmount, colIsReturned, colNotes,
	}
}

func loanRecord(loan circulation.Loan) goqu.Record {
	return goqu.Record{
		colLoanID:     loan.ID,
		colBookID:     loan.BookID,
		colReaderID:   loan.ReaderID,
		colStatus:     string(loan.Status),
		colLoanDate:   loan.LoanedAt,
		colDueDate:    loan.DueAt,
		colReturnDate: nullableTime(loan.ReturnedAt),
		colFineAmount: loan.FineAmount.Float64(),
		colIsReturned: loan.IsReturned,
		colNotes:      loan.Notes,
	}
}

func scanLoan(rows adapters.DBRows) (circulation.Loan, error) {
	var (
		loan       circulation.Loan
		status     string
		returnDate sql.NullTime
		fineAmount float64
	)

	if scanErr := rows.Scan(
		&loan.ID, &loan.BookID, &loan.ReaderID, &status, &loan.LoanedAt,
		&loan.DueAt, &returnDate, &fineAmount, &loan.IsReturned, &loan.Notes,
	); scanErr != nil {
		return circulation.Loan{}, scanErr
	}

	loan.Status = circulation.LoanStatus(status)
	loan.FineAmount = circulation.MoneyFromFloat(fineAmount)

	if returnDate.Valid {
		loan.ReturnedAt = &returnDate.Time
	}

	return loan, nil
}

// fineAmountOf returns the assessed amount, or zero for a nil fine.
func fineAmountOf(assessed *circulation.Fine) circulation.Money {
	if assessed == nil {
		return 0
	}

	return assessed.Amount
}
