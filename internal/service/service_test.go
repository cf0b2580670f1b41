package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkamath/bank-office/internal/clock"
	"github.com/rkamath/bank-office/internal/config"
	"github.com/rkamath/bank-office/internal/ledger"
	"github.com/rkamath/bank-office/internal/loan"
	"github.com/rkamath/bank-office/internal/models"
	"github.com/rkamath/bank-office/internal/repository"
	"github.com/rkamath/bank-office/internal/scoring"
)

// nopRunner lets service tests advance the clock without the full scheduler.
type nopRunner struct{}

func (nopRunner) Run(ctx context.Context, from, to time.Time) error { return nil }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newService(t *testing.T) (*Service, *repository.MemoryStore) {
	t.Helper()
	log := testLogger()
	store := repository.NewMemoryStore()
	clk := clock.New(date(2024, 1, 1), nopRunner{})
	ledgerSvc := ledger.NewService(store, log)
	svc := NewService(
		store,
		clk,
		ledgerSvc,
		loan.NewEngine(ledgerSvc, store, log),
		scoring.NewLimitEvaluator(log),
		store,
		nil,
		log,
		&config.Config{JWTSecret: "test-secret"},
	)
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "tester", "tester@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	token, err := svc.Login(ctx, "tester@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.Login(ctx, "tester@example.com", "wrong")
	assert.Error(t, err)
	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.Error(t, err)
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, "A Tester", "tester@example.com", decimal.NewFromInt(100000))
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, cust.ID, "Platinum", decimal.Zero)
	assert.Error(t, err, "unknown tier")

	_, err = svc.CreateAccount(ctx, "missing", models.TierClub, decimal.Zero)
	assert.Error(t, err, "unknown customer")

	acc, err := svc.CreateAccount(ctx, cust.ID, models.TierClub, decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.Equal(t, models.AccountActive, acc.Status)
	assert.Equal(t, "5000", acc.Balance.String())
	assert.Equal(t, date(2024, 1, 1), acc.OpenedOn)
}

func TestDepositAndWithdraw(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, "A Tester", "tester@example.com", decimal.NewFromInt(100000))
	require.NoError(t, err)
	acc, err := svc.CreateAccount(ctx, cust.ID, models.TierClub, decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, outcome, err := svc.Deposit(ctx, acc.ID, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, outcome)

	// 1500 - 1300 = 200, below the Club floor of 300.
	updated, outcome, err := svc.Withdraw(ctx, acc.ID, decimal.NewFromInt(1300))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInsufficientFunds, outcome)
	assert.Equal(t, "1500", updated.Balance.String())

	_, _, err = svc.Deposit(ctx, acc.ID, decimal.Zero)
	assert.Error(t, err)

	events, err := svc.AccountEvents(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventDeposit, events[0].Kind)
	assert.Equal(t, models.EventWithdrawal, events[1].Kind)
}

func TestCreateLoanDisbursesAndRecordsInquiry(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, "A Tester", "tester@example.com", decimal.NewFromInt(100000))
	require.NoError(t, err)
	acc, err := svc.CreateAccount(ctx, cust.ID, models.TierClub, decimal.NewFromInt(1000))
	require.NoError(t, err)

	l, err := svc.CreateLoan(ctx, acc.ID, decimal.NewFromInt(120000), decimal.NewFromFloat(0.12), 12)
	require.NoError(t, err)
	require.Len(t, l.Schedule, 12)
	assert.Equal(t, date(2024, 2, 1), l.NextDue)
	assert.Equal(t, models.LoanActive, l.Status)

	// Principal landed on the account.
	updated, err := svc.Account(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "121000", updated.Balance.String())

	// Origination is a hard inquiry.
	fresh, err := store.Customer(ctx, cust.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Inquiries, 1)
	assert.Equal(t, date(2024, 1, 1), fresh.Inquiries[0])
}

func TestCreateObligationRejectsPastDue(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, "A Tester", "tester@example.com", decimal.NewFromInt(100000))
	require.NoError(t, err)
	acc, err := svc.CreateAccount(ctx, cust.ID, models.TierClub, decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, err = svc.CreateObligation(ctx, acc.ID, models.ObligationBill, "rent", "housing",
		decimal.NewFromInt(500), models.FreqMonthly, date(2023, 12, 15))
	assert.Error(t, err)

	ob, err := svc.CreateObligation(ctx, acc.ID, models.ObligationBill, "rent", "housing",
		decimal.NewFromInt(500), models.FreqMonthly, date(2024, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, models.ObligationActive, ob.Status)
}

func TestCreateCardValidatesBillingDay(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, "A Tester", "tester@example.com", decimal.NewFromInt(100000))
	require.NoError(t, err)
	acc, err := svc.CreateAccount(ctx, cust.ID, models.TierClub, decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, err = svc.CreateCard(ctx, acc.ID, decimal.NewFromInt(50000), 29, models.AutopayNone)
	assert.Error(t, err)

	card, err := svc.CreateCard(ctx, acc.ID, decimal.NewFromInt(50000), 10, models.AutopayFull)
	require.NoError(t, err)
	assert.Len(t, card.Number, 16)
	assert.Equal(t, models.AutopayFull, card.Autopay)
}

func TestReviewLimitAppliesApprovedEnhancement(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, "A Tester", "tester@example.com", decimal.NewFromInt(100000))
	require.NoError(t, err)
	acc, err := svc.CreateAccount(ctx, cust.ID, models.TierClub, decimal.NewFromInt(1000))
	require.NoError(t, err)
	card, err := svc.CreateCard(ctx, acc.ID, decimal.NewFromInt(20000), 10, models.AutopayNone)
	require.NoError(t, err)

	// No score history: denied.
	decision, err := svc.ReviewLimit(ctx, card.ID)
	require.NoError(t, err)
	assert.False(t, decision.Approved)

	require.NoError(t, store.AppendScore(ctx, models.CreditScoreRecord{
		CustomerID: cust.ID, Score: 760, Category: models.CategoryExcellent, ComputedOn: date(2024, 1, 1),
	}))

	decision, err = svc.ReviewLimit(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, "36000", decision.NewLimit.StringFixed(0))

	fresh, err := store.Card(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "36000", fresh.CreditLimit.StringFixed(0))
}

func TestIncomeExpenseAggregation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, "A Tester", "tester@example.com", decimal.NewFromInt(100000))
	require.NoError(t, err)
	acc, err := svc.CreateAccount(ctx, cust.ID, models.TierClub, decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, _, err = svc.Deposit(ctx, acc.ID, decimal.NewFromInt(2000))
	require.NoError(t, err)
	_, _, err = svc.Withdraw(ctx, acc.ID, decimal.NewFromInt(700))
	require.NoError(t, err)

	stats, err := svc.IncomeExpense(ctx, acc.ID, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)
	assert.Equal(t, "2000", stats.Income.String())
	assert.Equal(t, "700", stats.Expense.String())
	assert.Equal(t, "1300", stats.NetBalance.String())
}

func TestCreditBurden(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, "A Tester", "tester@example.com", decimal.NewFromInt(100000))
	require.NoError(t, err)
	acc, err := svc.CreateAccount(ctx, cust.ID, models.TierClub, decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = svc.CreateLoan(ctx, acc.ID, decimal.NewFromInt(120000), decimal.NewFromFloat(0.12), 12)
	require.NoError(t, err)

	burden, err := svc.CreditBurden(ctx, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, "10661.85", burden.MonthlyObligations.StringFixed(2))
	assert.Equal(t, "0.1066", burden.DTIRatio.StringFixed(4))
}
