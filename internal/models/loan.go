package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus represents the lifecycle state of a loan
type LoanStatus string

const (
	LoanActive    LoanStatus = "ACTIVE"
	LoanPastDue   LoanStatus = "PAST_DUE"
	LoanPrepaid   LoanStatus = "PREPAID"
	LoanClosed    LoanStatus = "CLOSED"
	LoanDefaulted LoanStatus = "DEFAULTED"
)

// Installment is one period of an amortization schedule.
type Installment struct {
	Period    int             `json:"period"`
	DueDate   time.Time       `json:"due_date"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Payment   decimal.Decimal `json:"payment"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Loan represents an amortized term loan. Mutated only by the amortization
// engine during scheduled processing.
type Loan struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Principal   decimal.Decimal `json:"principal"`
	AnnualRate  decimal.Decimal `json:"annual_rate"` // fraction, e.g. 0.12 for 12%
	TermPeriods int             `json:"term_periods"`
	StartDate   time.Time       `json:"start_date"`
	Status      LoanStatus      `json:"status"`

	Outstanding   decimal.Decimal `json:"outstanding"`
	NextDue       time.Time       `json:"next_due"`
	PeriodsPaid   int             `json:"periods_paid"`
	MissedPeriods int             `json:"missed_periods"`

	// PenaltyDue is penalty interest accrued from missed installments. It is
	// collected with the next installment and recorded as interest, never
	// principal.
	PenaltyDue decimal.Decimal `json:"penalty_due"`

	Schedule []Installment `json:"schedule"`
}

// NextInstallment returns the next unpaid installment, or nil when the
// schedule is exhausted.
func (l *Loan) NextInstallment() *Installment {
	if l.PeriodsPaid >= len(l.Schedule) {
		return nil
	}
	return &l.Schedule[l.PeriodsPaid]
}
