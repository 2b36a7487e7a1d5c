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

// GetFine returns the fine with the given id, or ErrNotFound.
func (s *Store) GetFine(ctx context.Context, id uuid.UUID) (circulation.Fine, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblFines).
		Select(fineColumns()...).
		Where(goqu.Ex{colFineID: id}))
	if buildErr != nil {
		return circulation.Fine{}, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return circulation.Fine{}, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		return circulation.Fine{}, circulation.ErrNotFound
	}

	return scanFine(rows)
}

// InsertFine appends an unpaid fine for an existing loan. A missing loan
// surfaces as ErrNotFound via the foreign key.
func (s *Store) InsertFine(ctx context.Context, fine circulation.Fine) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblFines).
		Rows(fineRecord(fine)))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, s.db, sqlQuery)

	return mapDBError(execErr)
}

// SettleFine marks an unpaid fine as paid at paidAt via compare-and-set on
// the unpaid state. Paying a settled fine returns ErrAlreadyPaid.
func (s *Store) SettleFine(ctx context.Context, fineID uuid.UUID, paidAt time.Time) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Update(tblFines).
		Set(goqu.Record{colIsPaid: true, colPaidDate: paidAt}).
		Where(goqu.Ex{colFineID: fineID, colIsPaid: false}))
	if buildErr != nil {
		return buildErr
	}

	rowsAffected, execErr := s.exec(ctx, s.db, sqlQuery)
	if execErr != nil {
		return mapDBError(execErr)
	}

	if rowsAffected == 0 {
		if _, getErr := s.GetFine(ctx, fineID); getErr != nil {
			return getErr
		}

		return fmt.Errorf("%w: fine %s", circulation.ErrAlreadyPaid, fineID)
	}

	return nil
}

// OutstandingBalance sums the unpaid fines across all loans of a reader.
func (s *Store) OutstandingBalance(ctx context.Context, readerID uuid.UUID) (circulation.Money, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblFines).
		Join(
			goqu.T(tblLoans),
			goqu.On(goqu.I(tblFines+"."+colLoanID).Eq(goqu.I(tblLoans+"."+colLoanID))),
		).
		Select(goqu.COALESCE(goqu.SUM(colAmount), 0)).
		Where(goqu.Ex{
			tblLoans + "." + colReaderID: readerID,
			colIsPaid:                    false,
		}))
	if buildErr != nil {
		return 0, buildErr
	}

	var balance float64
	if queryErr := s.queryRow(ctx, s.db, sqlQuery, &balance); queryErr != nil {
		return 0, mapDBError(queryErr)
	}

	return circulation.MoneyFromFloat(balance), nil
}

// ListFines returns all fines ordered by issue date.
func (s *Store) ListFines(ctx context.Context) ([]circulation.Fine, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblFines).
		Select(fineColumns()...).
		Order(goqu.I(colIssuedDate).Asc()))
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return nil, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	var fines []circulation.Fine

	for rows.Next() {
		fine, scanErr := scanFine(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		fines = append(fines, fine)
	}

	return fines, rows.Err()
}

func fineColumns() []any {
	return []any{
		colFineID, colLoanID, colAmount, colReason, colIssuedDate, colIsPaid, colPaidDate,
	}
}

func fineRecord(fine circulation.Fine) goqu.Record {
	return goqu.Record{
		colFineID:     fine.ID,
		colLoanID:     fine.LoanID,
		colAmount:     fine.Amount.Float64(),
		colReason:     fine.Reason,
		colIssuedDate: fine.IssuedAt,
		colIsPaid:     fine.IsPaid,
		colPaidDate:   nullableTime(fine.PaidAt),
	}
}

func scanFine(rows adapters.DBRows) (circulation.Fine, error) {
	var (
		fine     circulation.Fine
		amount   float64
		paidDate sql.NullTime
	)

	if scanErr := rows.Scan(
		&fine.ID, &fine.LoanID, &amount, &fine.Reason,
		&fine.IssuedAt, &fine.IsPaid, &paidDate,
	); scanErr != nil {
		return circulation.Fine{}, scanErr
	}

	fine.Amount = circulation.MoneyFromFloat(amount)

	if paidDate.Valid {
		fine.PaidAt = &paidDate.Time
	}

	return fine, nil
}
