package loan

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scheduleStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestScheduleStandardLoan(t *testing.T) {
	principal := decimal.NewFromInt(120000)
	rate := decimal.NewFromFloat(0.12)

	schedule, err := Schedule(principal, rate, 12, scheduleStart)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	// 120000 at 12% over 12 months: fixed payment of 10661.85.
	for _, inst := range schedule[:11] {
		assert.Equal(t, "10661.85", inst.Payment.StringFixed(2), "period %d", inst.Period)
	}

	first := schedule[0]
	assert.Equal(t, "1200.00", first.Interest.StringFixed(2))
	assert.Equal(t, "9461.85", first.Principal.StringFixed(2))
	assert.Equal(t, scheduleStart.AddDate(0, 1, 0), first.DueDate)

	// Principal portions sum exactly to the principal and the balance
	// closes at zero.
	sum := decimal.Zero
	for _, inst := range schedule {
		sum = sum.Add(inst.Principal)
	}
	assert.True(t, sum.Equal(principal), "principal sum = %s", sum)
	assert.True(t, schedule[11].Remaining.IsZero(), "remaining = %s", schedule[11].Remaining)
}

func TestScheduleZeroRate(t *testing.T) {
	schedule, err := Schedule(decimal.NewFromInt(1000), decimal.Zero, 3, scheduleStart)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	assert.Equal(t, "333.33", schedule[0].Payment.StringFixed(2))
	assert.Equal(t, "333.33", schedule[1].Payment.StringFixed(2))
	// Residual folds into the final installment.
	assert.Equal(t, "333.34", schedule[2].Payment.StringFixed(2))
	assert.True(t, schedule[2].Remaining.IsZero())

	for _, inst := range schedule {
		assert.True(t, inst.Interest.IsZero())
	}
}

func TestScheduleInvalidTerms(t *testing.T) {
	_, err := Schedule(decimal.NewFromInt(1000), decimal.NewFromFloat(0.1), 0, scheduleStart)
	assert.ErrorIs(t, err, ErrInvalidTerms)

	_, err = Schedule(decimal.Zero, decimal.NewFromFloat(0.1), 12, scheduleStart)
	assert.ErrorIs(t, err, ErrInvalidTerms)

	_, err = Schedule(decimal.NewFromInt(1000), decimal.NewFromFloat(-0.1), 12, scheduleStart)
	assert.ErrorIs(t, err, ErrInvalidTerms)
}

func TestScheduleDueDatesMonthly(t *testing.T) {
	schedule, err := Schedule(decimal.NewFromInt(50000), decimal.NewFromFloat(0.1), 6, scheduleStart)
	require.NoError(t, err)
	for i, inst := range schedule {
		assert.Equal(t, scheduleStart.AddDate(0, i+1, 0), inst.DueDate)
	}
}
