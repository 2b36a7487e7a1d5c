// Package adapters contains thin database adapters that let the Postgres
// storage engine run on a pgx pool, a database/sql DB, or an sqlx DB behind
// one interface, including the bounded transactions the reservation and
// cascade paths need.
package adapters
