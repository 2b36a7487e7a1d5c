package postgresengine

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/libradesk/circulation-go/circulation"
	"github.com/libradesk/circulation-go/circulation/postgresengine/internal/adapters"
)

// AddReader registers a new reader. A duplicate email returns ErrDuplicateKey.
func (s *Store) AddReader(ctx context.Context, reader circulation.Reader) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Insert(tblReaders).
		Rows(goqu.Record{
			colReaderID:         reader.ID,
			colFirstName:        reader.FirstName,
			colLastName:         reader.LastName,
			colEmail:            reader.Email,
			colPhone:            reader.Phone,
			colAddress:          reader.Address,
			colIsActive:         reader.IsActive,
			colNotes:            reader.Notes,
			colRegistrationDate: reader.RegisteredAt,
		}))
	if buildErr != nil {
		return buildErr
	}

	_, execErr := s.exec(ctx, s.db, sqlQuery)

	return mapDBError(execErr)
}

// GetReader returns the reader with the given id, or ErrNotFound.
func (s *Store) GetReader(ctx context.Context, id uuid.UUID) (circulation.Reader, error) {
	return s.getReader(ctx, s.db, id)
}

func (s *Store) getReader(ctx context.Context, r runner, id uuid.UUID) (circulation.Reader, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblReaders).
		Select(readerColumns()...).
		Where(goqu.Ex{colReaderID: id}))
	if buildErr != nil {
		return circulation.Reader{}, buildErr
	}

	rows, queryErr := s.query(ctx, r, sqlQuery)
	if queryErr != nil {
		return circulation.Reader{}, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		return circulation.Reader{}, circulation.ErrNotFound
	}

	return scanReader(rows)
}

// ReaderIsActive reports whether the reader exists and is active.
func (s *Store) ReaderIsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool

	sqlQuery, buildErr := toSQL(s.builder().
		From(tblReaders).
		Select(colIsActive).
		Where(goqu.Ex{colReaderID: id}))
	if buildErr != nil {
		return false, buildErr
	}

	if queryErr := s.queryRow(ctx, s.db, sqlQuery, &active); queryErr != nil {
		return false, mapDBError(queryErr)
	}

	return active, nil
}

// ListReaders returns all readers ordered by last then first name.
func (s *Store) ListReaders(ctx context.Context) ([]circulation.Reader, error) {
	sqlQuery, buildErr := toSQL(s.builder().
		From(tblReaders).
		Select(readerColumns()...).
		Order(goqu.I(colLastName).Asc(), goqu.I(colFirstName).Asc()))
	if buildErr != nil {
		return nil, buildErr
	}

	rows, queryErr := s.query(ctx, s.db, sqlQuery)
	if queryErr != nil {
		return nil, mapDBError(queryErr)
	}
	defer s.closeRows(ctx, rows)

	var readers []circulation.Reader

	for rows.Next() {
		reader, scanErr := scanReader(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		readers = append(readers, reader)
	}

	return readers, rows.Err()
}

// SetReaderActive activates or deactivates a reader.
func (s *Store) SetReaderActive(ctx context.Context, id uuid.UUID, active bool) error {
	sqlQuery, buildErr := toSQL(s.builder().
		Update(tblReaders).
		Set(goqu.Record{colIsActive: active}).
		Where(goqu.Ex{colReaderID: id}))
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

// DeleteReader removes the reader. The schema cascades the delete to the
// reader's loans and their fines.
func (s *Store) DeleteReader(ctx context.Context, id uuid.UUID) error {
	return s.deleteByID(ctx, tblReaders, colReaderID, id)
}

func readerColumns() []any {
	return []any{
		colReaderID, colFirstName, colLastName, colEmail, colPhone,
		colAddress, colIsActive, colNotes, colRegistrationDate,
	}
}

func scanReader(rows adapters.DBRows) (circulation.Reader, error) {
	var reader circulation.Reader

	if scanErr := rows.Scan(
		&reader.ID, &reader.FirstName, &reader.LastName, &reader.Email,
		&reader.Phone, &reader.Address, &reader.IsActive, &reader.Notes,
		&reader.RegisteredAt,
	); scanErr != nil {
		return circulation.Reader{}, scanErr
	}

	return reader, nil
}
