package circulation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/libradesk/circulation-go/circulation"
)

func Test_DaysLate_When_ReturnedOnTime(t *testing.T) {
	dueAt := time.Date(2023, 2, 20, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, circulation.DaysLate(dueAt, dueAt))
	assert.Equal(t, 0, circulation.DaysLate(dueAt, dueAt.Add(-48*time.Hour)))
}

func Test_DaysLate_When_ReturnedLate(t *testing.T) {
	dueAt := time.Date(2023, 2, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		returnedAt time.Time
		expected   int
	}{
		{name: "one_minute_late_charges_one_day", returnedAt: dueAt.Add(time.Minute), expected: 1},
		{name: "exactly_one_day_late", returnedAt: dueAt.Add(24 * time.Hour), expected: 1},
		{name: "one_day_and_one_hour_late", returnedAt: dueAt.Add(25 * time.Hour), expected: 2},
		{name: "three_full_days_late", returnedAt: dueAt.Add(72 * time.Hour), expected: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, circulation.DaysLate(dueAt, tc.returnedAt))
		})
	}
}

func Test_DailyRatePolicy_When_ThreeDaysLate(t *testing.T) {
	// arrange
	policy := circulation.DailyRatePolicy(circulation.MoneyFromFloat(25), false)
	dueAt := time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC)
	returnedAt := time.Date(2023, 2, 23, 0, 0, 0, 0, time.UTC)

	// act
	amount := policy(dueAt, returnedAt, circulation.MoneyFromFloat(500))

	// assert
	assert.Equal(t, "75.00", amount.String())
}

func Test_DailyRatePolicy_When_ReturnedOnTime(t *testing.T) {
	policy := circulation.DailyRatePolicy(circulation.MoneyFromFloat(25), false)
	dueAt := time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC)

	amount := policy(dueAt, dueAt, circulation.MoneyFromFloat(500))

	assert.Equal(t, circulation.Money(0), amount)
}

func Test_DailyRatePolicy_When_CapAtBookPrice(t *testing.T) {
	// arrange
	policy := circulation.DailyRatePolicy(circulation.MoneyFromFloat(25), true)
	dueAt := time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC)
	returnedAt := dueAt.Add(100 * 24 * time.Hour)

	// act
	amount := policy(dueAt, returnedAt, circulation.MoneyFromFloat(45.99))

	// assert
	assert.Equal(t, "45.99", amount.String())
}

func Test_DailyRatePolicy_When_ZeroPriceBookAndCapEnabled(t *testing.T) {
	policy := circulation.DailyRatePolicy(circulation.MoneyFromFloat(25), true)
	dueAt := time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC)

	amount := policy(dueAt, dueAt.Add(5*24*time.Hour), 0)

	assert.Equal(t, circulation.Money(0), amount)
}

func Test_BookPriceReplacementPolicy(t *testing.T) {
	policy := circulation.BookPriceReplacementPolicy()

	assert.Equal(t, circulation.MoneyFromFloat(45.99), policy(circulation.MoneyFromFloat(45.99)))
	assert.Equal(t, circulation.Money(0), policy(0))
}

func Test_Money_String_Formatting(t *testing.T) {
	assert.Equal(t, "75.00", circulation.MoneyFromFloat(75).String())
	assert.Equal(t, "0.05", circulation.Money(5).String())
	assert.Equal(t, "-1.50", circulation.MoneyFromFloat(-1.5).String())
}
