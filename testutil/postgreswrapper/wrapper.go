// Package postgreswrapper abstracts over the database adapters for
// integration tests, selected with the ADAPTER_TYPE environment variable.
package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libradesk/circulation-go/circulation/postgresengine"
	"github.com/libradesk/circulation-go/testutil/config"
)

// Adapter type constants for the ADAPTER_TYPE environment variable.
const (
	typePGXPool = "pgxpool"
	typeSQLDB   = "sqldb"
	typeSQLX    = "sqlx"
)

// Wrapper abstracts over the different adapter types.
type Wrapper interface {
	GetStore() *postgresengine.Store
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing.
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store *postgresengine.Store
}

func (w *PGXPoolWrapper) GetStore() *postgresengine.Store {
	return w.store
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing.
type SQLDBWrapper struct {
	db    *sql.DB
	store *postgresengine.Store
}

func (w *SQLDBWrapper) GetStore() *postgresengine.Store {
	return w.store
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx-based testing.
type SQLXWrapper struct {
	db    *sqlx.DB
	store *postgresengine.Store
}

func (w *SQLXWrapper) GetStore() *postgresengine.Store {
	return w.store
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the wrapper selected by ADAPTER_TYPE
// and ensures the schema exists.
func CreateWrapperWithTestConfig(t testing.TB) Wrapper {
	wrapper := createWrapper(t)

	require.NoError(t, wrapper.GetStore().CreateSchema(context.Background()),
		"error creating schema in test setup")

	return wrapper
}

func createWrapper(t testing.TB) Wrapper {
	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewStoreFromPGXPool(connPool)
		require.NoError(t, err, "error creating store in test setup")

		return &PGXPoolWrapper{pool: connPool, store: store}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		store, err := postgresengine.NewStoreFromSQLDB(db)
		require.NoError(t, err, "error creating store in test setup")

		return &SQLDBWrapper{db: db, store: store}

	case typeSQLX:
		db := config.PostgresSQLXTestConfig()

		store, err := postgresengine.NewStoreFromSQLX(db)
		require.NoError(t, err, "error creating store in test setup")

		return &SQLXWrapper{db: db, store: store}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}
}

// CleanUp truncates all circulation tables for the given wrapper.
func CleanUp(t testing.TB, wrapper Wrapper) {
	const truncate = `TRUNCATE TABLE fines, book_loans, book_authors, book_genres,
		books, readers, authors, publishers, genres CASCADE`

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err := w.pool.Exec(context.Background(), truncate)
		assert.NoError(t, err, "error cleaning up the circulation tables")

	case *SQLDBWrapper:
		_, err := w.db.Exec(truncate)
		assert.NoError(t, err, "error cleaning up the circulation tables")

	case *SQLXWrapper:
		_, err := w.db.Exec(truncate)
		assert.NoError(t, err, "error cleaning up the circulation tables")

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}
