package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Score bounds and category boundaries.
const (
	ScoreFloor   = 300
	ScoreCeiling = 900
)

// ScoreCategory is a pure function of the score value.
type ScoreCategory string

const (
	CategoryExcellent ScoreCategory = "EXCELLENT" // >= 750
	CategoryGood      ScoreCategory = "GOOD"      // >= 650
	CategoryAverage   ScoreCategory = "AVERAGE"   // >= 550
	CategoryPoor      ScoreCategory = "POOR"
)

// Categorize maps a score to its category band.
func Categorize(score int) ScoreCategory {
	switch {
	case score >= 750:
		return CategoryExcellent
	case score >= 650:
		return CategoryGood
	case score >= 550:
		return CategoryAverage
	default:
		return CategoryPoor
	}
}

// CreditScoreRecord is one entry in a customer's append-only score history.
// The latest record is authoritative. Component sub-scores are fractions in
// [0,1] before weighting.
type CreditScoreRecord struct {
	CustomerID string        `json:"customer_id"`
	Score      int           `json:"score"`
	Category   ScoreCategory `json:"category"`

	PaymentHistory decimal.Decimal `json:"payment_history"`
	Utilization    decimal.Decimal `json:"utilization"`
	CreditMix      decimal.Decimal `json:"credit_mix"`
	Inquiries      decimal.Decimal `json:"inquiries"`
	AccountAge     decimal.Decimal `json:"account_age"`

	ComputedOn time.Time `json:"computed_on"`
}
