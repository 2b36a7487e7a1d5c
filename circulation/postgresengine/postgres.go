package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/libradesk/circulation-go/circulation"
	"github.com/libradesk/circulation-go/circulation/postgresengine/internal/adapters"
)

const (
	dialectPostgres = "postgres"

	tblAuthors     = "authors"
	tblPublishers  = "publishers"
	tblGenres      = "genres"
	tblBooks       = "books"
	tblReaders     = "readers"
	tblLoans       = "book_loans"
	tblFines       = "fines"
	tblBookAuthors = "book_authors"
	tblBookGenres  = "book_genres"

	colAuthorID    = "author_id"
	colPublisherID = "publisher_id"
	colGenreID     = "genre_id"
	colBookID      = "book_id"
	colReaderID    = "reader_id"
	colLoanID      = "loan_id"
	colFineID      = "fine_id"

	colFirstName = "first_name"
	colLastName  = "last_name"
	colBiography = "biography"
	colBirthDate = "birth_date"
	colIsActive  = "is_active"
	colCreatedAt = "created_at"

	colName    = "name"
	colAddress = "address"
	colPhone   = "phone"
	colEmail   = "email"

	colDescription = "description"

	colISBN            = "isbn"
	colTitle           = "title"
	colPublicationYear = "publication_year"
	colPageCount       = "page_count"
	colPrice           = "price"
	colStockQuantity   = "stock_quantity"
	colLanguage        = "language"

	colNotes            = "notes"
	colRegistrationDate = "registration_date"

	colStatus     = "status"
	colLoanDate   = "loan_date"
	colDueDate    = "due_date"
	colReturnDate = "return_date"
	colFineAmount = "fine_amount"
	colIsReturned = "is_returned"

	colAmount     = "amount"
	colReason     = "reason"
	colIssuedDate = "issued_date"
	colIsPaid     = "is_paid"
	colPaidDate   = "paid_date"

	logMsgSQLExecuted    = "executed sql for: "
	logMsgTxRollbackFail = "failed to roll back transaction"
	logAttrError         = "error"
	logAttrQuery         = "query"
	logAttrDurationMS    = "duration_ms"

	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateSerializationFail   = "40001"
	sqlstateDeadlockDetected    = "40P01"
)

var (
	// ErrNilDatabaseConnection is returned when a Store is constructed
	// without a database connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrBuildingQueryFailed is returned when the SQL builder rejects a query.
	ErrBuildingQueryFailed = errors.New("building sql query failed")
)

// Store implements the circulation storage contracts on PostgreSQL.
type Store struct {
	db               adapters.DBAdapter
	logger           circulation.Logger
	contextualLogger circulation.ContextualLogger
	metrics          circulation.MetricsCollector
}

// Compile-time contract assertions.
var (
	_ circulation.Store           = (*Store)(nil)
	_ circulation.CatalogStore    = (*Store)(nil)
	_ circulation.ReaderDirectory = (*Store)(nil)
	_ circulation.LoanLedger      = (*Store)(nil)
)

// NewStoreFromPGXPool creates a new Store using a pgx pool with optional
// configuration.
func NewStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (*Store, error) {
	if pool == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(pool), options...)
}

// NewStoreFromSQLDB creates a new Store using a database/sql DB with optional
// configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using an sqlx.DB with optional
// configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	store := &Store{db: db}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// builder returns the goqu dialect builder all queries start from.
func (s *Store) builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// runner is the subset of adapter operations shared by the pool and a
// transaction, so query helpers work in both scopes.
type runner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// withTx runs fn inside one bounded transaction, rolling back on error
// and mapping driver failures onto the circulation error taxonomy.
func (s *Store) withTx(ctx context.Context, fn func(tx adapters.DBTx) error) error {
	tx, beginErr := s.db.Begin(ctx)
	if beginErr != nil {
		return mapDBError(beginErr)
	}

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logWarn(ctx, logMsgTxRollbackFail, logAttrError, rbErr.Error())
		}

		return mapDBError(fnErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return mapDBError(commitErr)
	}

	return nil
}

const (
	statementExec  = "exec"
	statementQuery = "query"
)

// exec runs one statement and returns the affected row count.
func (s *Store) exec(ctx context.Context, r runner, sqlQuery string) (int64, error) {
	start := time.Now()
	result, execErr := r.Exec(ctx, sqlQuery)
	s.observeSQL(ctx, statementExec, sqlQuery, time.Since(start))

	if execErr != nil {
		return 0, execErr
	}

	rowsAffected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return 0, rowsErr
	}

	return rowsAffected, nil
}

// queryRow runs a single-row query and scans it into dest. A missing row
// returns circulation.ErrNotFound.
func (s *Store) queryRow(ctx context.Context, r runner, sqlQuery string, dest ...any) error {
	start := time.Now()
	rows, queryErr := r.Query(ctx, sqlQuery)
	s.observeSQL(ctx, statementQuery, sqlQuery, time.Since(start))

	if queryErr != nil {
		return queryErr
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		return circulation.ErrNotFound
	}

	return rows.Scan(dest...)
}

// query runs a multi-row query. The caller owns the returned rows.
func (s *Store) query(ctx context.Context, r runner, sqlQuery string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := r.Query(ctx, sqlQuery)
	s.observeSQL(ctx, statementQuery, sqlQuery, time.Since(start))

	return rows, queryErr
}

// sqlDataset is satisfied by all goqu dataset types.
type sqlDataset interface {
	ToSQL() (string, []interface{}, error)
}

// toSQL renders a goqu dataset into an interpolated SQL string.
func toSQL(ds sqlDataset) (string, error) {
	sqlQuery, _, toSQLErr := ds.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// closeRows safely closes database rows and logs any errors.
func (s *Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarn(ctx, "failed to close database rows", logAttrError, closeErr.Error())
	}
}

// mapDBError folds driver-specific failures into the circulation taxonomy:
// unique violations become ErrDuplicateKey, missing foreign parents
// ErrNotFound, and serialization failures or deadlocks the retryable
// ErrContention. Taxonomy sentinels pass through untouched.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}

	var code string

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code = pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code = string(pqErr.Code)
	}

	switch code {
	case sqlstateUniqueViolation:
		return errors.Join(circulation.ErrDuplicateKey, err)
	case sqlstateForeignKeyViolation:
		return errors.Join(circulation.ErrNotFound, err)
	case sqlstateSerializationFail, sqlstateDeadlockDetected:
		return errors.Join(circulation.ErrContention, err)
	}

	return err
}

// observeSQL logs the query with its execution time at debug level and
// records it into the query duration metric.
func (s *Store) observeSQL(ctx context.Context, statement string, sqlQuery string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordDuration(circulation.MetricQueryDuration, duration,
			map[string]string{circulation.LabelStatement: statement})
	}

	s.logSQL(ctx, sqlQuery, duration)
}

// logSQL logs SQL queries with execution time at debug level.
func (s *Store) logSQL(ctx context.Context, sqlQuery string, duration time.Duration) {
	durationMS := toMilliseconds(duration)

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted, logAttrDurationMS, durationMS, logAttrQuery, sqlQuery)
		return
	}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted, logAttrDurationMS, durationMS, logAttrQuery, sqlQuery)
	}
}

// logWarn logs non-critical issues.
func (s *Store) logWarn(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with
// 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
