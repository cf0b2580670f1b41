package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency represents how often a recurring obligation falls due.
type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
)

// Next returns the due date one frequency period after d.
func (f Frequency) Next(d time.Time) time.Time {
	switch f {
	case FreqDaily:
		return d.AddDate(0, 0, 1)
	case FreqWeekly:
		return d.AddDate(0, 0, 7)
	default:
		return d.AddDate(0, 1, 0)
	}
}

// ObligationKind distinguishes outgoing bills from incoming salary credits.
type ObligationKind string

const (
	ObligationBill   ObligationKind = "BILL"
	ObligationSalary ObligationKind = "SALARY"
)

// ObligationStatus represents whether an obligation is being processed.
type ObligationStatus string

const (
	ObligationActive    ObligationStatus = "ACTIVE"
	ObligationSuspended ObligationStatus = "SUSPENDED"
)

// Obligation is a recurring bill or salary credit attached to an account.
// For salary obligations Amount is the gross monthly salary; the tax
// deduction is applied at credit time.
type Obligation struct {
	ID        string           `json:"id"`
	AccountID string           `json:"account_id"`
	Kind      ObligationKind   `json:"kind"`
	Name      string           `json:"name"`
	Category  string           `json:"category"`
	Amount    decimal.Decimal  `json:"amount"`
	Frequency Frequency        `json:"frequency"`
	NextDue   time.Time        `json:"next_due"`
	Status    ObligationStatus `json:"status"`
}
