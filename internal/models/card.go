package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AutopayPolicy controls what a credit card attempts to pay from its linked
// account when a statement closes.
type AutopayPolicy string

const (
	AutopayNone    AutopayPolicy = "NONE"
	AutopayMinimum AutopayPolicy = "MINIMUM"
	AutopayFull    AutopayPolicy = "FULL"
)

// Statement is a closed billing cycle snapshot, kept for utilization history.
type Statement struct {
	ClosedOn    time.Time       `json:"closed_on"`
	Balance     decimal.Decimal `json:"balance"`
	MinimumDue  decimal.Decimal `json:"minimum_due"`
	Interest    decimal.Decimal `json:"interest"`
	Utilization decimal.Decimal `json:"utilization"` // balance / limit at close
}

// Card represents a credit card linked to an account. The credit limit is
// mutated only by the limit evaluator; the billing-cycle close and interest
// accrual are driven by the scheduler.
type Card struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	CustomerID string `json:"customer_id"`
	Number     string `json:"number"`
	Expiry     string `json:"expiry"` // MM/YY

	CreditLimit decimal.Decimal `json:"credit_limit"`
	Outstanding decimal.Decimal `json:"outstanding"` // credit currently used

	StatementBalance decimal.Decimal `json:"statement_balance"`
	MinimumDue       decimal.Decimal `json:"minimum_due"`
	BillingDay       int             `json:"billing_day"` // 1-28
	LastStatement    time.Time       `json:"last_statement"`
	DueDate          time.Time       `json:"due_date"` // grace period end

	AnnualRate decimal.Decimal `json:"annual_rate"` // carried-balance interest
	Autopay    AutopayPolicy   `json:"autopay"`
	OpenedOn   time.Time       `json:"opened_on"`

	Statements []Statement `json:"statements"`
}

// AvailableCredit returns the unused portion of the limit.
func (c *Card) AvailableCredit() decimal.Decimal {
	return c.CreditLimit.Sub(c.Outstanding)
}

// Utilization returns outstanding/limit as a fraction, zero for a zero limit.
func (c *Card) Utilization() decimal.Decimal {
	if c.CreditLimit.IsZero() {
		return decimal.Zero
	}
	return c.Outstanding.Div(c.CreditLimit)
}

// CycleDue reports whether a statement should close on the given date:
// the billing day has arrived and no statement was cut this month.
func (c *Card) CycleDue(d time.Time) bool {
	if d.Day() != c.BillingDay {
		return false
	}
	if c.LastStatement.IsZero() {
		return true
	}
	return c.LastStatement.Year() != d.Year() || c.LastStatement.Month() != d.Month()
}

// Overdue reports whether the previous statement is unpaid past its due date.
func (c *Card) Overdue(d time.Time) bool {
	return !c.DueDate.IsZero() && c.StatementBalance.IsPositive() && d.After(c.DueDate)
}
