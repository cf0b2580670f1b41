package loan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/ledger"
	"github.com/rkamath/bank-office/internal/models"
)

// DefaultPenaltyRate is the penalty charged per missed installment as a
// fraction of the EMI. The penalty compounds into interest, never principal.
var DefaultPenaltyRate = decimal.NewFromFloat(0.02)

// Engine applies loan installments and prepayments against the ledger.
type Engine struct {
	ledger      *ledger.Service
	sink        ledger.EventSink
	penaltyRate decimal.Decimal
	log         *logrus.Logger
}

// NewEngine initializes the amortization engine.
func NewEngine(ledgerSvc *ledger.Service, sink ledger.EventSink, log *logrus.Logger) *Engine {
	return &Engine{ledger: ledgerSvc, sink: sink, penaltyRate: DefaultPenaltyRate, log: log}
}

// ApplyInstallment debits the next scheduled payment plus any accrued
// penalty. On InsufficientFunds the outstanding balance is left unchanged,
// the missed payment is logged, and penalty interest is flagged for the next
// period; the installment is reattempted one period later, never same-cycle.
func (e *Engine) ApplyInstallment(ctx context.Context, l *models.Loan, acc *models.Account, date time.Time) (models.Outcome, error) {
	inst := l.NextInstallment()
	if inst == nil {
		l.Status = models.LoanClosed
		return models.OutcomeApplied, nil
	}

	due := inst.Payment.Add(l.PenaltyDue)
	outcome, err := e.ledger.Debit(ctx, acc, due, date)
	if err != nil {
		return models.OutcomeFailed, err
	}

	detail := fmt.Sprintf("period=%d interest=%s principal=%s",
		inst.Period, inst.Interest.Add(l.PenaltyDue).StringFixed(2), inst.Principal.StringFixed(2))

	switch outcome {
	case models.OutcomeApplied:
		l.Outstanding = l.Outstanding.Sub(inst.Principal)
		l.PeriodsPaid++
		l.PenaltyDue = decimal.Zero
		if next := l.NextInstallment(); next != nil {
			l.NextDue = next.DueDate
			l.Status = models.LoanActive
		} else {
			l.NextDue = time.Time{}
			l.Status = models.LoanClosed
		}
	default:
		// Missed or skipped: defer to next period with penalty interest.
		l.MissedPeriods++
		l.PenaltyDue = l.PenaltyDue.Add(inst.Payment.Mul(e.penaltyRate).RoundBank(2))
		l.NextDue = l.NextDue.AddDate(0, 1, 0)
		l.Status = models.LoanPastDue
	}

	err = e.sink.AppendEvent(ctx, models.EventLogEntry{
		ID:        uuid.NewString(),
		Date:      date,
		Kind:      models.EventLoanEMI,
		AccountID: acc.ID,
		Amount:    due,
		Outcome:   outcome,
		RefID:     l.ID,
		Detail:    detail,
	})
	if err != nil {
		return models.OutcomeFailed, err
	}
	return outcome, nil
}

// Prepay pays down the loan principal early and re-amortizes the remaining
// periods at the unchanged rate. A prepayment covering the full outstanding
// balance closes the loan.
func (e *Engine) Prepay(ctx context.Context, l *models.Loan, acc *models.Account, amount decimal.Decimal, date time.Time) (models.Outcome, error) {
	if !amount.IsPositive() {
		return models.OutcomeFailed, fmt.Errorf("prepayment amount must be positive")
	}
	if l.Status == models.LoanClosed || l.Status == models.LoanPrepaid {
		return models.OutcomeFailed, fmt.Errorf("loan %s is not active", l.ID)
	}
	if amount.GreaterThan(l.Outstanding) {
		amount = l.Outstanding
	}

	outcome, err := e.ledger.Debit(ctx, acc, amount, date)
	if err != nil {
		return models.OutcomeFailed, err
	}
	if outcome == models.OutcomeApplied {
		l.Outstanding = l.Outstanding.Sub(amount)
		if !l.Outstanding.IsPositive() {
			l.Outstanding = decimal.Zero
			l.Status = models.LoanPrepaid
			l.Schedule = l.Schedule[:l.PeriodsPaid]
			l.NextDue = time.Time{}
		} else {
			remaining := len(l.Schedule) - l.PeriodsPaid
			// Anchor the rebuilt schedule so its first due date is the
			// existing next due date.
			base := l.NextDue.AddDate(0, -1, 0)
			rebuilt, err := Schedule(l.Outstanding, l.AnnualRate, remaining, base)
			if err != nil {
				return models.OutcomeFailed, fmt.Errorf("failed to re-amortize loan %s: %w", l.ID, err)
			}
			for i := range rebuilt {
				rebuilt[i].Period = l.PeriodsPaid + i + 1
			}
			l.Schedule = append(l.Schedule[:l.PeriodsPaid], rebuilt...)
		}
	}

	err = e.sink.AppendEvent(ctx, models.EventLogEntry{
		ID:        uuid.NewString(),
		Date:      date,
		Kind:      models.EventLoanPrepay,
		AccountID: acc.ID,
		Amount:    amount,
		Outcome:   outcome,
		RefID:     l.ID,
	})
	if err != nil {
		return models.OutcomeFailed, err
	}
	e.log.WithFields(logrus.Fields{"loan": l.ID, "amount": amount.StringFixed(2), "outcome": outcome}).Info("prepayment processed")
	return outcome, nil
}
