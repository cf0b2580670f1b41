package scoring

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rkamath/bank-office/internal/models"
)

func testCustomer(income int64) *models.Customer {
	return &models.Customer{ID: "cust-1", MonthlyIncome: decimal.NewFromInt(income)}
}

func testLimitCard(limit int64) *models.Card {
	return &models.Card{ID: "card-1", CustomerID: "cust-1", CreditLimit: decimal.NewFromInt(limit)}
}

func scoreRecord(score int) *models.CreditScoreRecord {
	return &models.CreditScoreRecord{CustomerID: "cust-1", Score: score, Category: models.Categorize(score)}
}

func TestEvaluateApprovesEnhancement(t *testing.T) {
	ev := NewLimitEvaluator(testLogger())

	// (10000 + 100000*0.20) * 1.2 = 36000 for a 750 score.
	d := ev.Evaluate(testCustomer(100000), testLimitCard(20000), scoreRecord(750), decimal.NewFromInt(10000))
	assert.True(t, d.Approved)
	assert.Equal(t, "36000", d.NewLimit.StringFixed(0))
	assert.Equal(t, "0.1", d.DTI.String())
}

func TestEvaluateDeniesHighDTI(t *testing.T) {
	ev := NewLimitEvaluator(testLogger())

	// 40000/100000 = 0.40, at the ceiling.
	d := ev.Evaluate(testCustomer(100000), testLimitCard(20000), scoreRecord(800), decimal.NewFromInt(40000))
	assert.False(t, d.Approved)
	assert.Equal(t, "20000", d.NewLimit.StringFixed(0))

	// Just under the ceiling passes.
	d = ev.Evaluate(testCustomer(100000), testLimitCard(20000), scoreRecord(800), decimal.NewFromInt(39999))
	assert.True(t, d.Approved)
}

func TestEvaluateDeniesNoIncome(t *testing.T) {
	ev := NewLimitEvaluator(testLogger())
	d := ev.Evaluate(testCustomer(0), testLimitCard(20000), scoreRecord(800), decimal.Zero)
	assert.False(t, d.Approved)
	assert.Equal(t, "no verified income", d.Reason)
}

func TestEvaluateDeniesLowScore(t *testing.T) {
	ev := NewLimitEvaluator(testLogger())

	d := ev.Evaluate(testCustomer(100000), testLimitCard(20000), scoreRecord(649), decimal.Zero)
	assert.False(t, d.Approved)

	// No score history at all is treated as unscorable.
	d = ev.Evaluate(testCustomer(100000), testLimitCard(20000), nil, decimal.Zero)
	assert.False(t, d.Approved)
}

func TestEvaluateNeverDecreasesLimit(t *testing.T) {
	ev := NewLimitEvaluator(testLogger())

	// Proposed 24000 (score 660, multiplier 0.8) is below the current
	// 50000 limit: keep the current limit.
	d := ev.Evaluate(testCustomer(100000), testLimitCard(50000), scoreRecord(660), decimal.Zero)
	assert.False(t, d.Approved)
	assert.Equal(t, "50000", d.NewLimit.StringFixed(0))
}

func TestEvaluateCapsAtMaximum(t *testing.T) {
	ev := NewLimitEvaluator(testLogger())

	// (10000 + 5000000*0.20) * 1.5 far exceeds the 500000 cap.
	d := ev.Evaluate(testCustomer(5000000), testLimitCard(100000), scoreRecord(850), decimal.Zero)
	assert.True(t, d.Approved)
	assert.Equal(t, "500000", d.NewLimit.StringFixed(0))
}

func TestEvaluateRoundsToNearestHundred(t *testing.T) {
	ev := NewLimitEvaluator(testLogger())

	// (10000 + 51230*0.20) * 1.0 = 20246 -> 20200.
	d := ev.Evaluate(testCustomer(51230), testLimitCard(10000), scoreRecord(700), decimal.Zero)
	assert.True(t, d.Approved)
	assert.Equal(t, "20200", d.NewLimit.StringFixed(0))
}

func TestMonthlyObligationsSkipsSettledLoans(t *testing.T) {
	emi := decimal.NewFromInt(5000)
	loans := []*models.Loan{
		{
			ID:       "loan-1",
			Status:   models.LoanActive,
			Schedule: []models.Installment{{Period: 1, Payment: emi}},
		},
		{
			ID:       "loan-2",
			Status:   models.LoanClosed,
			Schedule: []models.Installment{{Period: 1, Payment: emi}},
		},
	}
	cards := []*models.Card{{ID: "card-1", MinimumDue: decimal.NewFromInt(1500)}}

	total := MonthlyObligations(loans, cards)
	assert.Equal(t, "6500", total.StringFixed(0))
}
