package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind identifies the type of automated financial event.
type EventKind string

const (
	EventSalary        EventKind = "SALARY"
	EventBill          EventKind = "RECURRING_BILL"
	EventLoanEMI       EventKind = "LOAN_EMI"
	EventLoanPrepay    EventKind = "LOAN_PREPAYMENT"
	EventCardStatement EventKind = "CARD_STATEMENT"
	EventCardLateFee   EventKind = "CARD_LATE_FEE"
	EventCardAutopay   EventKind = "CARD_AUTOPAY"
	EventAMBFee        EventKind = "AMB_FEE"
	EventAMBFeeSettled EventKind = "AMB_FEE_SETTLED"
	EventDeposit       EventKind = "DEPOSIT"
	EventWithdrawal    EventKind = "WITHDRAWAL"
	EventScore         EventKind = "SCORE_RECOMPUTE"
)

// Outcome is the definite result of applying an event.
type Outcome string

const (
	OutcomeApplied           Outcome = "APPLIED"
	OutcomeInsufficientFunds Outcome = "SKIPPED_INSUFFICIENT_FUNDS"
	OutcomeAccountInactive   Outcome = "SKIPPED_ACCOUNT_INACTIVE"
	OutcomeFailed            Outcome = "FAILED"
)

// EventLogEntry is an immutable audit record. Every core operation,
// successful or not, produces exactly one entry.
type EventLogEntry struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Kind      EventKind       `json:"kind"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Outcome   Outcome         `json:"outcome"`
	RefID     string          `json:"ref_id,omitempty"` // obligation/loan/card id
	Detail    string          `json:"detail,omitempty"`
}
