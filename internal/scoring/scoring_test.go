package scoring

import (
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkamath/bank-office/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseHistory(asOf time.Time) History {
	opened := asOf.AddDate(-10, 0, 0)
	return History{
		Customer: &models.Customer{
			ID:            "cust-1",
			MonthlyIncome: decimal.NewFromInt(100000),
			CreatedAt:     opened,
		},
		Accounts: []*models.Account{{
			ID:         "acc-1",
			CustomerID: "cust-1",
			Status:     models.AccountActive,
			OpenedOn:   opened,
		}},
	}
}

func TestRecomputeCleanHistory(t *testing.T) {
	asOf := date(2024, 6, 30)
	engine := NewEngine(testLogger())

	// Ten-year-old account, no debts, no events, no inquiries:
	// payment 1.0, utilization 1.0, mix 1/3, inquiries 1.0, age 1.0.
	rec, err := engine.Recompute(baseHistory(asOf), asOf)
	require.NoError(t, err)

	// 300 + 600*(0.35 + 0.30 + 0.05 + 0.10 + 0.10) = 840
	assert.Equal(t, 840, rec.Score)
	assert.Equal(t, models.CategoryExcellent, rec.Category)
	assert.Equal(t, "cust-1", rec.CustomerID)
	assert.Equal(t, asOf, rec.ComputedOn)
}

func TestScoreStaysWithinBounds(t *testing.T) {
	asOf := date(2024, 6, 30)
	engine := NewEngine(testLogger())

	// Worst case: brand-new account, maxed cards, missed payments, many
	// inquiries.
	h := baseHistory(asOf)
	h.Accounts[0].OpenedOn = asOf
	h.Customer.Inquiries = []time.Time{asOf, asOf, asOf, asOf, asOf}
	limit := decimal.NewFromInt(10000)
	h.Cards = []*models.Card{{ID: "card-1", CreditLimit: limit, Outstanding: limit}}
	for i := 0; i < 6; i++ {
		h.Events = append(h.Events, models.EventLogEntry{
			Kind:    models.EventLoanEMI,
			Date:    asOf.AddDate(0, -i, 0),
			Amount:  decimal.NewFromInt(1000),
			Outcome: models.OutcomeInsufficientFunds,
		})
	}

	rec, err := engine.Recompute(h, asOf)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rec.Score, models.ScoreFloor)
	assert.LessOrEqual(t, rec.Score, models.ScoreCeiling)
	assert.Equal(t, models.CategoryPoor, rec.Category)
}

func TestRecentMissesWeighMoreThanOld(t *testing.T) {
	asOf := date(2024, 6, 30)
	engine := NewEngine(testLogger())

	recentMiss := baseHistory(asOf)
	recentMiss.Events = []models.EventLogEntry{
		{Kind: models.EventLoanEMI, Date: asOf.AddDate(0, -1, 0), Amount: decimal.NewFromInt(1000), Outcome: models.OutcomeInsufficientFunds},
		{Kind: models.EventLoanEMI, Date: asOf.AddDate(-3, 0, 0), Amount: decimal.NewFromInt(1000), Outcome: models.OutcomeApplied},
	}

	oldMiss := baseHistory(asOf)
	oldMiss.Events = []models.EventLogEntry{
		{Kind: models.EventLoanEMI, Date: asOf.AddDate(0, -1, 0), Amount: decimal.NewFromInt(1000), Outcome: models.OutcomeApplied},
		{Kind: models.EventLoanEMI, Date: asOf.AddDate(-3, 0, 0), Amount: decimal.NewFromInt(1000), Outcome: models.OutcomeInsufficientFunds},
	}

	recentRec, err := engine.Recompute(recentMiss, asOf)
	require.NoError(t, err)
	oldRec, err := engine.Recompute(oldMiss, asOf)
	require.NoError(t, err)

	assert.Less(t, recentRec.Score, oldRec.Score)
}

func TestInquiriesOutsideWindowIgnored(t *testing.T) {
	asOf := date(2024, 6, 30)
	engine := NewEngine(testLogger())

	h := baseHistory(asOf)
	h.Customer.Inquiries = []time.Time{asOf.AddDate(-2, 0, 0), asOf.AddDate(-3, 0, 0)}
	old, err := engine.Recompute(h, asOf)
	require.NoError(t, err)

	clean, err := engine.Recompute(baseHistory(asOf), asOf)
	require.NoError(t, err)
	assert.Equal(t, clean.Score, old.Score)

	h.Customer.Inquiries = append(h.Customer.Inquiries, asOf.AddDate(0, -1, 0))
	recent, err := engine.Recompute(h, asOf)
	require.NoError(t, err)
	assert.Less(t, recent.Score, clean.Score)
}

func TestFourInquiriesZeroComponent(t *testing.T) {
	asOf := date(2024, 6, 30)
	engine := NewEngine(testLogger())

	h := baseHistory(asOf)
	for i := 0; i < 4; i++ {
		h.Customer.Inquiries = append(h.Customer.Inquiries, asOf.AddDate(0, -i, -1))
	}
	rec, err := engine.Recompute(h, asOf)
	require.NoError(t, err)
	assert.True(t, rec.Inquiries.IsZero())
}

func TestCreditMixCountsProductTypes(t *testing.T) {
	asOf := date(2024, 6, 30)
	engine := NewEngine(testLogger())

	h := baseHistory(asOf)
	h.Loans = []*models.Loan{{ID: "loan-1", TermPeriods: 12}}
	h.Cards = []*models.Card{{ID: "card-1", CreditLimit: decimal.NewFromInt(50000)}}

	rec, err := engine.Recompute(h, asOf)
	require.NoError(t, err)
	assert.Equal(t, "1", rec.CreditMix.String())
}

func TestRecomputeRejectsCorruptHistory(t *testing.T) {
	asOf := date(2024, 6, 30)
	engine := NewEngine(testLogger())

	h := baseHistory(asOf)
	h.Cards = []*models.Card{{ID: "card-1", CreditLimit: decimal.NewFromInt(-5)}}
	_, err := engine.Recompute(h, asOf)
	var ce *ComputationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cust-1", ce.CustomerID)

	h = baseHistory(asOf)
	h.Loans = []*models.Loan{{ID: "loan-1", TermPeriods: 0}}
	_, err = engine.Recompute(h, asOf)
	require.ErrorAs(t, err, &ce)

	h = baseHistory(asOf)
	h.Events = []models.EventLogEntry{{Kind: models.EventBill, Amount: decimal.NewFromInt(-1)}}
	_, err = engine.Recompute(h, asOf)
	require.ErrorAs(t, err, &ce)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, models.CategoryExcellent, models.Categorize(750))
	assert.Equal(t, models.CategoryGood, models.Categorize(749))
	assert.Equal(t, models.CategoryGood, models.Categorize(650))
	assert.Equal(t, models.CategoryAverage, models.Categorize(649))
	assert.Equal(t, models.CategoryAverage, models.Categorize(550))
	assert.Equal(t, models.CategoryPoor, models.Categorize(549))
}
