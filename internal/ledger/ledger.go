package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/models"
)

// EventSink receives the audit entries the ledger produces itself
// (AMB fees and their settlement). The persistence store satisfies it.
type EventSink interface {
	AppendEvent(ctx context.Context, e models.EventLogEntry) error
}

// Service is the exclusive owner of account balances. Every credit and debit
// flows through it; debits never silently push a balance below the tier's
// minimum-balance floor.
type Service struct {
	sink EventSink
	log  *logrus.Logger
}

// NewService initializes the ledger service.
func NewService(sink EventSink, log *logrus.Logger) *Service {
	return &Service{sink: sink, log: log}
}

// Credit increases the account balance. It succeeds whenever the account is
// active; salary and deposit paths rely on this. Any pending AMB fees are
// settled from the fresh balance.
func (s *Service) Credit(ctx context.Context, acc *models.Account, amount decimal.Decimal, date time.Time) (models.Outcome, error) {
	if !acc.IsActive() {
		return models.OutcomeAccountInactive, nil
	}
	s.accrue(acc, date)
	acc.Balance = acc.Balance.Add(amount)

	if err := s.settlePendingFees(ctx, acc, date); err != nil {
		return models.OutcomeFailed, err
	}
	return models.OutcomeApplied, nil
}

// Debit decreases the account balance if the result stays at or above the
// tier's minimum-balance floor. On a floor violation it returns
// InsufficientFunds and leaves the balance untouched; callers record a
// missed-payment event rather than treating this as a fatal error.
func (s *Service) Debit(ctx context.Context, acc *models.Account, amount decimal.Decimal, date time.Time) (models.Outcome, error) {
	if !acc.IsActive() {
		return models.OutcomeAccountInactive, nil
	}
	s.accrue(acc, date)

	floor := acc.Policy().MinBalance
	if acc.Balance.Sub(amount).LessThan(floor) {
		return models.OutcomeInsufficientFunds, nil
	}
	acc.Balance = acc.Balance.Sub(amount)
	return models.OutcomeApplied, nil
}

// accrue folds the balance held since the last accrual into the AMB
// weighted sum. Balance only changes through the ledger, so span-weighting
// between mutation dates is exact.
func (s *Service) accrue(acc *models.Account, date time.Time) {
	if acc.LastAccrued.IsZero() {
		acc.WindowStart = date
		acc.LastAccrued = date
		return
	}
	days := int64(date.Sub(acc.LastAccrued).Hours() / 24)
	if days <= 0 {
		return
	}
	acc.WeightedSum = acc.WeightedSum.Add(acc.Balance.Mul(decimal.NewFromInt(days)))
	acc.LastAccrued = date
}

// CloseAMBWindow finalizes the statement window ending on date. When the
// time-weighted average balance is below the tier requirement the AMB fee is
// debited through the normal debit path; a failed fee attempt terminates
// without retry and the fee is carried as pending until the next credit.
func (s *Service) CloseAMBWindow(ctx context.Context, acc *models.Account, date time.Time) (decimal.Decimal, models.Outcome, error) {
	policy := acc.Policy()
	next := date.AddDate(0, 0, 1)
	s.accrue(acc, next)

	days := int64(next.Sub(acc.WindowStart).Hours() / 24)
	avg := decimal.Zero
	if days > 0 {
		avg = acc.WeightedSum.Div(decimal.NewFromInt(days)).RoundBank(2)
	}

	// Reset the window before any fee debit so the fee lands in the new one.
	acc.WindowStart = next
	acc.WeightedSum = decimal.Zero
	acc.LastAccrued = next

	if policy.AMBExempt() || !acc.IsActive() || avg.GreaterThanOrEqual(policy.AMBRequirement) {
		return decimal.Zero, models.OutcomeApplied, nil
	}

	fee := policy.AMBFee
	outcome, err := s.Debit(ctx, acc, fee, date)
	if err != nil {
		return decimal.Zero, models.OutcomeFailed, err
	}
	if outcome != models.OutcomeApplied {
		acc.PendingAMBFees = acc.PendingAMBFees.Add(fee)
	}

	entry := models.EventLogEntry{
		ID:        uuid.NewString(),
		Date:      date,
		Kind:      models.EventAMBFee,
		AccountID: acc.ID,
		Amount:    fee,
		Outcome:   outcome,
		Detail:    "average monthly balance below " + policy.AMBRequirement.StringFixed(2),
	}
	if err := s.sink.AppendEvent(ctx, entry); err != nil {
		return decimal.Zero, models.OutcomeFailed, err
	}
	s.log.WithFields(logrus.Fields{
		"account": acc.ID,
		"amb":     avg.StringFixed(2),
		"outcome": outcome,
	}).Debug("AMB window closed")
	return fee, outcome, nil
}

// settlePendingFees collects previously accrued AMB fees once the balance
// can cover them without breaching the floor.
func (s *Service) settlePendingFees(ctx context.Context, acc *models.Account, date time.Time) error {
	if !acc.PendingAMBFees.IsPositive() {
		return nil
	}
	floor := acc.Policy().MinBalance
	if acc.Balance.Sub(acc.PendingAMBFees).LessThan(floor) {
		return nil
	}
	settled := acc.PendingAMBFees
	acc.Balance = acc.Balance.Sub(settled)
	acc.PendingAMBFees = decimal.Zero

	return s.sink.AppendEvent(ctx, models.EventLogEntry{
		ID:        uuid.NewString(),
		Date:      date,
		Kind:      models.EventAMBFeeSettled,
		AccountID: acc.ID,
		Amount:    settled,
		Outcome:   models.OutcomeApplied,
	})
}
