package card

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/ledger"
	"github.com/rkamath/bank-office/internal/models"
)

// Billing policy constants.
var (
	twelve       = decimal.NewFromInt(12)
	minDueRate   = decimal.NewFromFloat(0.05)
	minDueFloor  = decimal.NewFromInt(500)
	lateFeeRate  = decimal.NewFromFloat(0.02)
	lateFeeFloor = decimal.NewFromInt(500)
	lateFeeCap   = decimal.NewFromInt(1500)
	gracePeriod  = 15 // days from statement close to due date
)

// Processor closes credit-card billing cycles: interest accrual on carried
// balances, late fees, statement snapshots, and the configured autopay
// attempt against the linked account.
type Processor struct {
	ledger *ledger.Service
	sink   ledger.EventSink
	log    *logrus.Logger
}

// NewProcessor initializes the card processor.
func NewProcessor(ledgerSvc *ledger.Service, sink ledger.EventSink, log *logrus.Logger) *Processor {
	return &Processor{ledger: ledgerSvc, sink: sink, log: log}
}

// CloseCycle finalizes the billing cycle ending on date. Interest on the
// unpaid previous statement compounds into the new statement; the minimum
// due is 5% of the statement or 500, whichever is higher, capped at the
// statement itself.
func (p *Processor) CloseCycle(ctx context.Context, c *models.Card, acc *models.Account, date time.Time) error {
	if c.Overdue(date) {
		fee := c.StatementBalance.Mul(lateFeeRate).RoundBank(2)
		if fee.LessThan(lateFeeFloor) {
			fee = lateFeeFloor
		}
		if fee.GreaterThan(lateFeeCap) {
			fee = lateFeeCap
		}
		c.Outstanding = c.Outstanding.Add(fee)
		if err := p.sink.AppendEvent(ctx, models.EventLogEntry{
			ID:        uuid.NewString(),
			Date:      date,
			Kind:      models.EventCardLateFee,
			AccountID: acc.ID,
			Amount:    fee,
			Outcome:   models.OutcomeApplied,
			RefID:     c.ID,
		}); err != nil {
			return err
		}
	}

	interest := decimal.Zero
	if c.StatementBalance.IsPositive() {
		monthlyRate := c.AnnualRate.Div(twelve)
		interest = c.StatementBalance.Mul(monthlyRate).RoundBank(2)
		c.Outstanding = c.Outstanding.Add(interest)
	}

	c.StatementBalance = c.Outstanding
	c.MinimumDue = minimumDue(c.StatementBalance)
	c.LastStatement = date
	c.DueDate = date.AddDate(0, 0, gracePeriod)
	c.Statements = append(c.Statements, models.Statement{
		ClosedOn:    date,
		Balance:     c.StatementBalance,
		MinimumDue:  c.MinimumDue,
		Interest:    interest,
		Utilization: c.Utilization(),
	})

	if err := p.sink.AppendEvent(ctx, models.EventLogEntry{
		ID:        uuid.NewString(),
		Date:      date,
		Kind:      models.EventCardStatement,
		AccountID: acc.ID,
		Amount:    c.StatementBalance,
		Outcome:   models.OutcomeApplied,
		RefID:     c.ID,
		Detail:    "interest=" + interest.StringFixed(2) + " min_due=" + c.MinimumDue.StringFixed(2),
	}); err != nil {
		return err
	}

	return p.autopay(ctx, c, acc, date)
}

// autopay attempts the configured payment from the linked account at
// statement close. A failed attempt is logged and not retried until the
// next cycle.
func (p *Processor) autopay(ctx context.Context, c *models.Card, acc *models.Account, date time.Time) error {
	if c.Autopay == models.AutopayNone || !c.StatementBalance.IsPositive() {
		return nil
	}
	amount := c.StatementBalance
	if c.Autopay == models.AutopayMinimum {
		amount = c.MinimumDue
	}

	outcome, err := p.ledger.Debit(ctx, acc, amount, date)
	if err != nil {
		return err
	}
	if outcome == models.OutcomeApplied {
		c.Outstanding = c.Outstanding.Sub(amount)
		c.StatementBalance = c.StatementBalance.Sub(amount)
		c.MinimumDue = minimumDue(c.StatementBalance)
	} else {
		p.log.WithFields(logrus.Fields{"card": c.ID, "outcome": outcome}).Warn("card autopay failed")
	}

	return p.sink.AppendEvent(ctx, models.EventLogEntry{
		ID:        uuid.NewString(),
		Date:      date,
		Kind:      models.EventCardAutopay,
		AccountID: acc.ID,
		Amount:    amount,
		Outcome:   outcome,
		RefID:     c.ID,
	})
}

func minimumDue(statement decimal.Decimal) decimal.Decimal {
	if !statement.IsPositive() {
		return decimal.Zero
	}
	due := statement.Mul(minDueRate).RoundBank(2)
	if due.LessThan(minDueFloor) {
		due = minDueFloor
	}
	if due.GreaterThan(statement) {
		due = statement
	}
	return due
}
