package scoring

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/models"
)

// Limit policy constants.
var (
	baseLimit    = decimal.NewFromInt(10000)
	maxLimit     = decimal.NewFromInt(500000)
	incomeFactor = decimal.NewFromFloat(0.20)
	dtiCeiling   = decimal.NewFromFloat(0.40)
	hundred      = decimal.NewFromInt(100)
)

// LimitDecision is the result of a credit limit review.
type LimitDecision struct {
	Approved bool            `json:"approved"`
	NewLimit decimal.Decimal `json:"new_limit"`
	DTI      decimal.Decimal `json:"dti"`
	Reason   string          `json:"reason"`
}

// LimitEvaluator derives credit-card limits from the latest score category,
// monthly income, and the debt-to-income ratio.
type LimitEvaluator struct {
	log *logrus.Logger
}

// NewLimitEvaluator initializes the evaluator.
func NewLimitEvaluator(log *logrus.Logger) *LimitEvaluator {
	return &LimitEvaluator{log: log}
}

// MonthlyObligations totals the customer's periodic debt service: active
// loan EMIs plus card minimum dues.
func MonthlyObligations(loans []*models.Loan, cards []*models.Card) decimal.Decimal {
	total := decimal.Zero
	for _, l := range loans {
		if l.Status == models.LoanClosed || l.Status == models.LoanPrepaid {
			continue
		}
		if inst := l.NextInstallment(); inst != nil {
			total = total.Add(inst.Payment)
		}
	}
	for _, c := range cards {
		total = total.Add(c.MinimumDue)
	}
	return total
}

// Evaluate computes a proposed limit for the card. An enhancement is denied
// when DTI >= 0.40 regardless of score, and an existing limit is never
// decreased on score alone. Lowering a limit takes an explicit operator
// action, which is left to the caller.
func (ev *LimitEvaluator) Evaluate(customer *models.Customer, card *models.Card, latest *models.CreditScoreRecord, obligations decimal.Decimal) LimitDecision {
	current := card.CreditLimit

	if !customer.MonthlyIncome.IsPositive() {
		return LimitDecision{Approved: false, NewLimit: current, Reason: "no verified income"}
	}

	dti := obligations.Div(customer.MonthlyIncome)
	if dti.GreaterThanOrEqual(dtiCeiling) {
		return LimitDecision{Approved: false, NewLimit: current, DTI: dti, Reason: "debt-to-income ratio at or above 40%"}
	}

	if latest == nil || latest.Score < 650 {
		return LimitDecision{Approved: false, NewLimit: current, DTI: dti, Reason: "score below minimum for enhancement"}
	}

	proposed := baseLimit.Add(customer.MonthlyIncome.Mul(incomeFactor))
	proposed = proposed.Mul(categoryMultiplier(latest.Score))

	if proposed.GreaterThan(maxLimit) {
		proposed = maxLimit
	}
	// Round to the nearest 100.
	proposed = proposed.Div(hundred).Round(0).Mul(hundred)

	if proposed.LessThanOrEqual(current) {
		return LimitDecision{Approved: false, NewLimit: current, DTI: dti, Reason: "proposed limit does not exceed current limit"}
	}

	ev.log.WithFields(logrus.Fields{
		"customer": customer.ID,
		"card":     card.ID,
		"limit":    proposed.StringFixed(2),
	}).Info("credit limit enhancement approved")
	return LimitDecision{Approved: true, NewLimit: proposed, DTI: dti, Reason: "approved"}
}

func categoryMultiplier(score int) decimal.Decimal {
	switch {
	case score >= 800:
		return decimal.NewFromFloat(1.5)
	case score >= 750:
		return decimal.NewFromFloat(1.2)
	case score >= 700:
		return decimal.NewFromInt(1)
	default:
		return decimal.NewFromFloat(0.8)
	}
}
