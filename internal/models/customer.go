package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer represents a bank customer. A customer may own several accounts,
// loans and cards; the credit score is computed per customer.
type Customer struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	CreatedAt     time.Time       `json:"created_at"`

	// Inquiries records the dates of hard credit inquiries (loan and card
	// applications). Only the trailing twelve months affect the score.
	Inquiries []time.Time `json:"inquiries"`
}
