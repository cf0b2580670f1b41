package ledger

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkamath/bank-office/internal/models"
)

type memSink struct {
	entries []models.EventLogEntry
}

func (s *memSink) AppendEvent(ctx context.Context, e models.EventLogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clubAccount(balance int64) *models.Account {
	start := date(2024, 1, 1)
	return &models.Account{
		ID:          "acc-1",
		CustomerID:  "cust-1",
		Tier:        models.TierClub,
		Status:      models.AccountActive,
		Balance:     decimal.NewFromInt(balance),
		OpenedOn:    start,
		WindowStart: start,
		LastAccrued: start,
	}
}

func TestDebitRespectsMinimumBalanceFloor(t *testing.T) {
	sink := &memSink{}
	svc := NewService(sink, testLogger())
	acc := clubAccount(1000)

	// 1000 - 800 = 200, below the 300 floor.
	outcome, err := svc.Debit(context.Background(), acc, decimal.NewFromInt(800), date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInsufficientFunds, outcome)
	assert.Equal(t, "1000", acc.Balance.String())

	// 1000 - 700 = 300, exactly at the floor.
	outcome, err = svc.Debit(context.Background(), acc, decimal.NewFromInt(700), date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, "300", acc.Balance.String())
}

func TestInactiveAccountSkipsOperations(t *testing.T) {
	svc := NewService(&memSink{}, testLogger())
	acc := clubAccount(1000)
	acc.Status = models.AccountFrozen

	outcome, err := svc.Credit(context.Background(), acc, decimal.NewFromInt(100), date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAccountInactive, outcome)

	outcome, err = svc.Debit(context.Background(), acc, decimal.NewFromInt(100), date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAccountInactive, outcome)
	assert.Equal(t, "1000", acc.Balance.String())
}

func TestCloseAMBWindowChargesFee(t *testing.T) {
	sink := &memSink{}
	svc := NewService(sink, testLogger())
	acc := clubAccount(1000) // Club requires a 10000 AMB

	fee, outcome, err := svc.CloseAMBWindow(context.Background(), acc, date(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, "300", fee.String())
	assert.Equal(t, "700", acc.Balance.String())

	require.Len(t, sink.entries, 1)
	assert.Equal(t, models.EventAMBFee, sink.entries[0].Kind)
	assert.Equal(t, models.OutcomeApplied, sink.entries[0].Outcome)

	// Window state reset for February.
	assert.Equal(t, date(2024, 2, 1), acc.WindowStart)
	assert.True(t, acc.WeightedSum.IsZero())
}

func TestCloseAMBWindowMeetsRequirement(t *testing.T) {
	sink := &memSink{}
	svc := NewService(sink, testLogger())
	acc := clubAccount(15000)

	fee, outcome, err := svc.CloseAMBWindow(context.Background(), acc, date(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.True(t, fee.IsZero())
	assert.Equal(t, "15000", acc.Balance.String())
	assert.Empty(t, sink.entries)
}

func TestAMBFeeAveragesOverWindow(t *testing.T) {
	sink := &memSink{}
	svc := NewService(sink, testLogger())
	acc := clubAccount(20000)

	// Withdraw mid-month: 20000 for 15 days then 4700 for 16 days.
	// Average = (20000*15 + 4700*16) / 31 = 12103.23, above the requirement.
	outcome, err := svc.Debit(context.Background(), acc, decimal.NewFromInt(15300), date(2024, 1, 16))
	require.NoError(t, err)
	require.Equal(t, models.OutcomeApplied, outcome)

	fee, _, err := svc.CloseAMBWindow(context.Background(), acc, date(2024, 1, 31))
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}

func TestAMBFeeCarriedAsPendingWhenUncollectable(t *testing.T) {
	sink := &memSink{}
	svc := NewService(sink, testLogger())
	acc := clubAccount(400)

	// 400 - 300 = 100, below the floor: the fee cannot be collected now.
	fee, outcome, err := svc.CloseAMBWindow(context.Background(), acc, date(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, "300", fee.String())
	assert.Equal(t, models.OutcomeInsufficientFunds, outcome)
	assert.Equal(t, "400", acc.Balance.String())
	assert.Equal(t, "300", acc.PendingAMBFees.String())

	// The next credit settles the pending fee.
	outcome, err = svc.Credit(context.Background(), acc, decimal.NewFromInt(1000), date(2024, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, "1100", acc.Balance.String())
	assert.True(t, acc.PendingAMBFees.IsZero())

	require.Len(t, sink.entries, 2)
	assert.Equal(t, models.EventAMBFee, sink.entries[0].Kind)
	assert.Equal(t, models.EventAMBFeeSettled, sink.entries[1].Kind)
}

func TestPendingFeesWaitUntilBalanceCovers(t *testing.T) {
	svc := NewService(&memSink{}, testLogger())
	acc := clubAccount(400)
	acc.PendingAMBFees = decimal.NewFromInt(300)

	// 400 + 100 - 300 = 200, still below the floor: fee stays pending.
	outcome, err := svc.Credit(context.Background(), acc, decimal.NewFromInt(100), date(2024, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, "500", acc.Balance.String())
	assert.Equal(t, "300", acc.PendingAMBFees.String())
}

func TestFutureTierExemptFromAMB(t *testing.T) {
	sink := &memSink{}
	svc := NewService(sink, testLogger())
	acc := clubAccount(0)
	acc.Tier = models.TierFuture

	fee, outcome, err := svc.CloseAMBWindow(context.Background(), acc, date(2024, 1, 31))
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Empty(t, sink.entries)

	// Future tier has no minimum balance either: debits may reach zero.
	acc.Balance = decimal.NewFromInt(50)
	out, err := svc.Debit(context.Background(), acc, decimal.NewFromInt(50), date(2024, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, out)
	assert.True(t, acc.Balance.IsZero())
}
