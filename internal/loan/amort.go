package loan

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rkamath/bank-office/internal/models"
)

var (
	// ErrInvalidTerms is returned for non-positive principal or term.
	ErrInvalidTerms = errors.New("principal and term must be positive")
)

var twelve = decimal.NewFromInt(12)

// Schedule computes a standard fixed-payment amortization schedule.
//
// The periodic rate is annualRate/12 and the payment is
//
//	P * r / (1 - (1+r)^-n)
//
// Currency amounts round to the cent using round-half-to-even; the residual
// from rounding drift is folded into the final installment so the balance
// reaches exactly zero and the principal portions sum to the principal.
func Schedule(principal, annualRate decimal.Decimal, termPeriods int, start time.Time) ([]models.Installment, error) {
	if termPeriods <= 0 || !principal.IsPositive() {
		return nil, ErrInvalidTerms
	}
	if annualRate.IsNegative() {
		return nil, ErrInvalidTerms
	}

	monthlyRate := annualRate.Div(twelve)

	var payment decimal.Decimal
	if monthlyRate.IsZero() {
		payment = principal.Div(decimal.NewFromInt(int64(termPeriods))).RoundBank(2)
	} else {
		// The power term needs float math; everything monetary stays decimal.
		r := monthlyRate.InexactFloat64()
		n := float64(termPeriods)
		factor := math.Pow(1+r, -n)
		payment = decimal.NewFromFloat(principal.InexactFloat64() * r / (1 - factor)).RoundBank(2)
	}

	schedule := make([]models.Installment, 0, termPeriods)
	remaining := principal

	for period := 1; period <= termPeriods; period++ {
		interest := remaining.Mul(monthlyRate).RoundBank(2)
		principalPart := payment.Sub(interest)
		total := payment

		if period == termPeriods {
			// Fold the rounding residual into the last installment.
			principalPart = remaining
			total = principalPart.Add(interest)
		}

		remaining = remaining.Sub(principalPart)
		schedule = append(schedule, models.Installment{
			Period:    period,
			DueDate:   start.AddDate(0, period, 0),
			Interest:  interest,
			Principal: principalPart,
			Payment:   total,
			Remaining: remaining,
		})
	}
	return schedule, nil
}
