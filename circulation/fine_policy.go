package circulation

import (
	"time"
)

const hoursPerDay = 24

// FinePolicy computes the fine for a late return. It is a pure function of
// the due date, the actual return time and the book price; it must return
// zero when the return is on or before the due date. The rate is injected
// configuration, never a constant of the engine.
type FinePolicy func(dueAt time.Time, returnedAt time.Time, bookPrice Money) Money

// ReplacementFinePolicy computes the fine for a lost book copy.
type ReplacementFinePolicy func(bookPrice Money) Money

// DaysLate returns the number of chargeable late days: zero for a return on
// or before the due date, otherwise the lateness rounded up to whole days,
// so any positive lateness charges at least one day.
func DaysLate(dueAt time.Time, returnedAt time.Time) int {
	lateness := returnedAt.Sub(dueAt)
	if lateness <= 0 {
		return 0
	}

	days := int(lateness / (hoursPerDay * time.Hour))
	if lateness%(hoursPerDay*time.Hour) != 0 {
		days++
	}

	return days
}

// DailyRatePolicy is the documented default fine policy:
// amount = days late x ratePerDay, optionally capped at the book price.
// A zero-price book with the cap enabled is never fined.
func DailyRatePolicy(ratePerDay Money, capAtBookPrice bool) FinePolicy {
	return func(dueAt time.Time, returnedAt time.Time, bookPrice Money) Money {
		amount := Money(DaysLate(dueAt, returnedAt)) * ratePerDay

		if capAtBookPrice && amount > bookPrice {
			amount = bookPrice
		}

		return amount
	}
}

// BookPriceReplacementPolicy is the default replacement-fine policy for lost
// copies: the full book price.
func BookPriceReplacementPolicy() ReplacementFinePolicy {
	return func(bookPrice Money) Money {
		return bookPrice
	}
}
