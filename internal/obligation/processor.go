package obligation

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/ledger"
	"github.com/rkamath/bank-office/internal/models"
)

// Tax policy recovered from the salary profile rules: a flat 15% monthly
// deduction applies only when the annualized gross exceeds the threshold.
var (
	taxThreshold = decimal.NewFromInt(1800000)
	taxRate      = decimal.NewFromFloat(0.15)
)

// AmountGenerator produces the due amount for a bill on a given date. The
// default uses the configured base amount; a seeded variance generator
// reproduces the expense-simulation behavior deterministically.
type AmountGenerator interface {
	Amount(o *models.Obligation, date time.Time) decimal.Decimal
}

// FixedAmount always charges the obligation's base amount.
type FixedAmount struct{}

func (FixedAmount) Amount(o *models.Obligation, date time.Time) decimal.Decimal { return o.Amount }

// VarianceGenerator perturbs the base amount by up to ±Variance.
type VarianceGenerator struct {
	seed     int64
	variance float64
}

// NewVarianceGenerator creates a generator with the given seed and spread
// (e.g. 0.1 for ±10%).
func NewVarianceGenerator(seed int64, variance float64) *VarianceGenerator {
	return &VarianceGenerator{seed: seed, variance: variance}
}

// Amount derives each draw from the seed, the obligation id and the date, so
// a simulation resumed after a restart charges the same amounts it would
// have charged uninterrupted.
func (g *VarianceGenerator) Amount(o *models.Obligation, date time.Time) decimal.Decimal {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s", g.seed, o.ID, date.Format("2006-01-02"))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	shift := (rng.Float64()*2 - 1) * g.variance
	return o.Amount.Mul(decimal.NewFromFloat(1 + shift)).RoundBank(2)
}

// Processor applies due recurring bills and salary credits against the
// ledger for a given date.
type Processor struct {
	ledger *ledger.Service
	sink   ledger.EventSink
	gen    AmountGenerator
	log    *logrus.Logger
}

// NewProcessor initializes the obligation processor. A nil generator means
// fixed amounts.
func NewProcessor(ledgerSvc *ledger.Service, sink ledger.EventSink, gen AmountGenerator, log *logrus.Logger) *Processor {
	if gen == nil {
		gen = FixedAmount{}
	}
	return &Processor{ledger: ledgerSvc, sink: sink, gen: gen, log: log}
}

// NetSalary returns the monthly credit for a gross salary after the tax
// deduction.
func NetSalary(gross decimal.Decimal) decimal.Decimal {
	if gross.Mul(decimal.NewFromInt(12)).GreaterThan(taxThreshold) {
		return gross.Sub(gross.Mul(taxRate).RoundBank(2))
	}
	return gross
}

// Apply processes one due obligation. The next-due date advances by exactly
// one frequency period regardless of outcome: auto-debit mandates do not
// retry same-cycle, a missed bill is logged and reattempted next cycle.
func (p *Processor) Apply(ctx context.Context, ob *models.Obligation, acc *models.Account, date time.Time) (models.Outcome, error) {
	if ob.Status != models.ObligationActive {
		return models.OutcomeFailed, fmt.Errorf("obligation %s is not active", ob.ID)
	}

	var (
		outcome models.Outcome
		amount  decimal.Decimal
		err     error
	)

	switch ob.Kind {
	case models.ObligationSalary:
		amount = NetSalary(ob.Amount)
		outcome, err = p.ledger.Credit(ctx, acc, amount, date)
	default:
		amount = p.gen.Amount(ob, date)
		outcome, err = p.ledger.Debit(ctx, acc, amount, date)
	}
	if err != nil {
		return models.OutcomeFailed, err
	}

	ob.NextDue = ob.Frequency.Next(ob.NextDue)

	kind := models.EventBill
	if ob.Kind == models.ObligationSalary {
		kind = models.EventSalary
	}
	err = p.sink.AppendEvent(ctx, models.EventLogEntry{
		ID:        uuid.NewString(),
		Date:      date,
		Kind:      kind,
		AccountID: acc.ID,
		Amount:    amount,
		Outcome:   outcome,
		RefID:     ob.ID,
		Detail:    ob.Name,
	})
	if err != nil {
		return models.OutcomeFailed, err
	}

	if outcome != models.OutcomeApplied {
		p.log.WithFields(logrus.Fields{
			"obligation": ob.ID,
			"account":    acc.ID,
			"outcome":    outcome,
		}).Warn("obligation not applied, deferred to next cycle")
	}
	return outcome, nil
}
