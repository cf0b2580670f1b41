package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/models"
)

// Component weights of the composite score.
var (
	weightPaymentHistory = decimal.NewFromFloat(0.35)
	weightUtilization    = decimal.NewFromFloat(0.30)
	weightCreditMix      = decimal.NewFromFloat(0.15)
	weightInquiries      = decimal.NewFromFloat(0.10)
	weightAccountAge     = decimal.NewFromFloat(0.10)
)

// trailingStatements bounds the utilization average to recent cycles.
const trailingStatements = 6

// ComputationError marks a customer's history as unusable for scoring. It is
// fatal for that customer's recompute only and never blocks other customers.
type ComputationError struct {
	CustomerID string
	Reason     string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("score computation failed for customer %s: %s", e.CustomerID, e.Reason)
}

// History is the snapshot a recompute runs against: the customer's accounts,
// loans, cards and the event log entries of those accounts up to the
// computation date.
type History struct {
	Customer *models.Customer
	Accounts []*models.Account
	Loans    []*models.Loan
	Cards    []*models.Card
	Events   []models.EventLogEntry
}

// Engine recomputes credit scores. Recompute is deterministic and
// side-effect-free; persisting the record is the caller's concern.
type Engine struct {
	log *logrus.Logger
}

// NewEngine initializes the scoring engine.
func NewEngine(log *logrus.Logger) *Engine {
	return &Engine{log: log}
}

// Recompute produces a new score record from the full history up to asOf.
//
// Components: payment history 35% (on-time ratio of due installments and
// bills, exponentially decayed with a 12-month half-life), utilization 30%
// (average over trailing statement cycles), credit mix 15%, inquiries in the
// trailing 12 months 10% (inverse-weighted), account age 10% (capped at ten
// years). Final score = 300 + 600*weightedSum, clamped to [300,900].
func (e *Engine) Recompute(h History, asOf time.Time) (*models.CreditScoreRecord, error) {
	if h.Customer == nil {
		return nil, &ComputationError{Reason: "missing customer"}
	}
	if err := validate(h); err != nil {
		return nil, err
	}

	payment := paymentHistoryScore(h.Events, asOf)
	utilization := utilizationScore(h.Cards)
	mix := creditMixScore(h)
	inquiries := inquiryScore(h.Customer.Inquiries, asOf)
	age := accountAgeScore(h.Accounts, asOf)

	weighted := payment.Mul(weightPaymentHistory).
		Add(utilization.Mul(weightUtilization)).
		Add(mix.Mul(weightCreditMix)).
		Add(inquiries.Mul(weightInquiries)).
		Add(age.Mul(weightAccountAge))

	score := 300 + int(math.Round(600*weighted.InexactFloat64()))
	if score < models.ScoreFloor {
		score = models.ScoreFloor
	}
	if score > models.ScoreCeiling {
		score = models.ScoreCeiling
	}

	return &models.CreditScoreRecord{
		CustomerID:     h.Customer.ID,
		Score:          score,
		Category:       models.Categorize(score),
		PaymentHistory: payment,
		Utilization:    utilization,
		CreditMix:      mix,
		Inquiries:      inquiries,
		AccountAge:     age,
		ComputedOn:     asOf,
	}, nil
}

func validate(h History) error {
	for _, c := range h.Cards {
		if c.CreditLimit.IsNegative() {
			return &ComputationError{CustomerID: h.Customer.ID, Reason: "card with negative credit limit"}
		}
	}
	for _, l := range h.Loans {
		if l.TermPeriods <= 0 {
			return &ComputationError{CustomerID: h.Customer.ID, Reason: "loan with non-positive term"}
		}
	}
	for _, ev := range h.Events {
		if ev.Amount.IsNegative() {
			return &ComputationError{CustomerID: h.Customer.ID, Reason: "event with negative amount"}
		}
	}
	return nil
}

// paymentHistoryScore is the decayed on-time ratio across due installments
// and bills. Recent misses weigh more than old ones; an empty history counts
// as clean.
func paymentHistoryScore(events []models.EventLogEntry, asOf time.Time) decimal.Decimal {
	var onTime, total float64
	for _, ev := range events {
		if ev.Kind != models.EventLoanEMI && ev.Kind != models.EventBill {
			continue
		}
		months := asOf.Sub(ev.Date).Hours() / 24 / 30
		if months < 0 {
			months = 0
		}
		w := math.Pow(0.5, months/12)
		total += w
		if ev.Outcome == models.OutcomeApplied {
			onTime += w
		}
	}
	if total == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromFloat(onTime / total)
}

// utilizationScore averages utilization over each card's trailing statement
// cycles; a card without statements contributes its current utilization.
func utilizationScore(cards []*models.Card) decimal.Decimal {
	if len(cards) == 0 {
		return decimal.NewFromInt(1)
	}
	sum := decimal.Zero
	for _, c := range cards {
		stmts := c.Statements
		if len(stmts) > trailingStatements {
			stmts = stmts[len(stmts)-trailingStatements:]
		}
		if len(stmts) == 0 {
			sum = sum.Add(c.Utilization())
			continue
		}
		cardSum := decimal.Zero
		for _, s := range stmts {
			cardSum = cardSum.Add(s.Utilization)
		}
		sum = sum.Add(cardSum.Div(decimal.NewFromInt(int64(len(stmts)))))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(cards))))
	sub := decimal.NewFromInt(1).Sub(avg)
	if sub.IsNegative() {
		return decimal.Zero
	}
	return sub
}

// creditMixScore counts distinct product types held out of three: deposit
// accounts, loans, credit cards.
func creditMixScore(h History) decimal.Decimal {
	kinds := 0
	if len(h.Accounts) > 0 {
		kinds++
	}
	if len(h.Loans) > 0 {
		kinds++
	}
	if len(h.Cards) > 0 {
		kinds++
	}
	return decimal.NewFromInt(int64(kinds)).Div(decimal.NewFromInt(3))
}

// inquiryScore inverse-weights hard inquiries in the trailing 12 months;
// four or more zero the component.
func inquiryScore(inquiries []time.Time, asOf time.Time) decimal.Decimal {
	cutoff := asOf.AddDate(0, 0, -365)
	n := 0
	for _, d := range inquiries {
		if d.After(cutoff) && !d.After(asOf) {
			n++
		}
	}
	if n >= 4 {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(n)).Div(decimal.NewFromInt(4)))
}

// accountAgeScore scales months since the oldest active account, capped at
// ten years.
func accountAgeScore(accounts []*models.Account, asOf time.Time) decimal.Decimal {
	var oldest time.Time
	for _, a := range accounts {
		if !a.IsActive() {
			continue
		}
		if oldest.IsZero() || a.OpenedOn.Before(oldest) {
			oldest = a.OpenedOn
		}
	}
	if oldest.IsZero() {
		return decimal.Zero
	}
	months := asOf.Sub(oldest).Hours() / 24 / 30
	if months > 120 {
		months = 120
	}
	if months < 0 {
		months = 0
	}
	return decimal.NewFromFloat(months / 120)
}
