// Package postgresengine implements the circulation storage contracts on
// PostgreSQL.
//
// Construct a Store from a pgxpool.Pool, a database/sql DB, or an sqlx DB;
// all three run the same goqu-built SQL through a small internal adapter
// layer. The reservation of a book copy row-locks the book inside one
// bounded transaction, which is what keeps availability from going negative
// under concurrent issues. Terminal loan and fine transitions are optimistic
// conditional updates; a lost update surfaces as circulation.ErrContention
// for the engine to retry. Uniqueness violations map to
// circulation.ErrDuplicateKey, missing foreign parents to
// circulation.ErrNotFound.
package postgresengine
