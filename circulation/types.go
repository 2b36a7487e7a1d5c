package circulation

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Money is a currency amount in cents. The schema stores two fractional
// digits; keeping integer cents avoids float drift in fine arithmetic.
type Money int64

// MoneyFromFloat converts a decimal currency value to Money,
// rounding to cents.
func MoneyFromFloat(value float64) Money {
	return Money(math.Round(value * 100))
}

// Float64 returns the amount as a decimal currency value.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// String renders the amount with two fractional digits, e.g. "75.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}

	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// LoanStatus is the lifecycle state of a loan.
// A loan is created active and is terminated exactly once,
// either by a return or by being marked lost.
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
	LoanStatusLost     LoanStatus = "lost"
)

// Author is a catalog record for a book author.
type Author struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Biography string
	BirthDate *time.Time
	IsActive  bool
	CreatedAt time.Time
}

// Publisher is a catalog record with a unique name.
// Deleting a publisher detaches its books instead of cascading.
type Publisher struct {
	ID        uuid.UUID
	Name      string
	Address   string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// Genre is a catalog record with a unique name.
type Genre struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
}

// Book is a catalog record with a stock quantity. Availability is derived:
// quantity in stock minus open loans, never read from a stored counter.
type Book struct {
	ID              uuid.UUID
	ISBN            string // optional, unique when present
	Title           string
	PublisherID     *uuid.UUID
	PublicationYear int
	PageCount       int
	Price           Money
	QuantityInStock int
	Description     string
	Language        string
	CreatedAt       time.Time
}

// Validate checks the intake constraints on a book: publication year in
// (1800, current year], positive page count, non-negative price and stock.
func (b Book) Validate(now time.Time) error {
	if b.Title == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidBook)
	}

	if b.PublicationYear <= 1800 || b.PublicationYear > now.Year() {
		return fmt.Errorf("%w: publication year %d out of range", ErrInvalidBook, b.PublicationYear)
	}

	if b.PageCount <= 0 {
		return fmt.Errorf("%w: page count must be positive", ErrInvalidBook)
	}

	if b.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidBook)
	}

	if b.QuantityInStock < 0 {
		return fmt.Errorf("%w: stock quantity must not be negative", ErrInvalidBook)
	}

	return nil
}

// Reader is a registered library member with a unique email.
type Reader struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Address      string
	IsActive     bool
	Notes        string
	RegisteredAt time.Time
}

// Loan is one lending of one book copy to one reader.
//
// Invariants: Status == LoanStatusReturned iff IsReturned iff ReturnedAt is
// non-nil, and the three change atomically. DueAt is strictly after LoanedAt.
// A lost loan keeps IsReturned false so the consumed copy never returns to
// availability.
type Loan struct {
	ID         uuid.UUID
	BookID     uuid.UUID
	ReaderID   uuid.UUID
	Status     LoanStatus
	LoanedAt   time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	FineAmount Money // mirror of the fine assessed at return time
	IsReturned bool
	Notes      string
}

// IsOpen reports whether the loan still holds a book copy out of stock.
// Lost loans count as open: the unit is consumed, not released.
func (l Loan) IsOpen() bool {
	return !l.IsReturned
}

// Fine is one assessment against a loan.
// Invariant: IsPaid iff PaidAt is non-nil, changed atomically.
type Fine struct {
	ID       uuid.UUID
	LoanID   uuid.UUID
	Amount   Money
	Reason   string
	IssuedAt time.Time
	IsPaid   bool
	PaidAt   *time.Time
}
