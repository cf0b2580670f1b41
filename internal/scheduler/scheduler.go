package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/card"
	"github.com/rkamath/bank-office/internal/clock"
	"github.com/rkamath/bank-office/internal/events"
	"github.com/rkamath/bank-office/internal/ledger"
	"github.com/rkamath/bank-office/internal/loan"
	"github.com/rkamath/bank-office/internal/models"
	"github.com/rkamath/bank-office/internal/obligation"
	"github.com/rkamath/bank-office/internal/repository"
	"github.com/rkamath/bank-office/internal/scoring"
)

// Notifier is told about missed debits so a follow-up channel (email) can
// reach the customer. Implementations must not block the run.
type Notifier interface {
	PaymentMissed(customer *models.Customer, kind models.EventKind, refID string, date time.Time)
}

// Scheduler walks the simulated calendar and applies every due financial
// event. For each date the order is fixed: salary credits, recurring bills,
// loan installments, card cycle closes, then the month-end AMB window close,
// and finally a score recompute for every customer whose accounts were
// touched. Within a group, items process in ascending id order.
//
// The scheduler owns its engines: they write events into an in-memory buffer,
// and a date's entity saves, event appends and date marker are committed
// through the store in one atomic batch. A failed commit leaves no trace of
// the date, so a retried advance resumes at the first uncommitted date
// without double-applying anything.
type Scheduler struct {
	store  repository.Store
	buf    *eventBuffer
	ledger *ledger.Service
	loans  *loan.Engine
	bills  *obligation.Processor
	cards  *card.Processor
	scores *scoring.Engine
	pub    events.Publisher
	notify Notifier
	log    *logrus.Logger
}

// New wires the scheduler. gen, pub and notify may be nil.
func New(
	store repository.Store,
	gen obligation.AmountGenerator,
	pub events.Publisher,
	notify Notifier,
	log *logrus.Logger,
) *Scheduler {
	buf := &eventBuffer{}
	led := ledger.NewService(buf, log)
	return &Scheduler{
		store:  store,
		buf:    buf,
		ledger: led,
		loans:  loan.NewEngine(led, buf, log),
		bills:  obligation.NewProcessor(led, buf, gen, log),
		cards:  card.NewProcessor(led, buf, log),
		scores: scoring.NewEngine(log),
		pub:    pub,
		notify: notify,
		log:    log,
	}
}

// eventBuffer stages a date's event-log entries until the batch commits.
type eventBuffer struct {
	entries []models.EventLogEntry
}

func (b *eventBuffer) AppendEvent(ctx context.Context, e models.EventLogEntry) error {
	b.entries = append(b.entries, e)
	return nil
}

func (b *eventBuffer) reset() { b.entries = nil }

// state is the working snapshot one run mutates in memory. Entities are
// committed back as a batch at the end of each date.
type state struct {
	customers   map[string]*models.Customer
	accounts    map[string]*models.Account
	loans       []*models.Loan
	obligations []*models.Obligation
	cards       []*models.Card

	dirtyAccounts    map[string]*models.Account
	dirtyLoans       map[string]*models.Loan
	dirtyObligations map[string]*models.Obligation
	dirtyCards       map[string]*models.Card
	scores           []models.CreditScoreRecord
	touched          map[string]struct{} // account ids with activity this date
}

func (st *state) reset() {
	st.dirtyAccounts = map[string]*models.Account{}
	st.dirtyLoans = map[string]*models.Loan{}
	st.dirtyObligations = map[string]*models.Obligation{}
	st.dirtyCards = map[string]*models.Card{}
	st.scores = nil
	st.touched = map[string]struct{}{}
}

// Run processes every date in (from, to]. It satisfies clock.Runner.
func (s *Scheduler) Run(ctx context.Context, from, to time.Time) error {
	from = clock.DateOf(from)
	to = clock.DateOf(to)

	// Resume past dates a previous interrupted run already committed.
	if committed, err := s.store.LastCommittedDate(ctx); err == nil && committed.After(from) {
		from = clock.DateOf(committed)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("reading last committed date: %w", err)
	}

	st, err := s.load(ctx)
	if err != nil {
		return err
	}

	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.processDate(ctx, st, d); err != nil {
			return fmt.Errorf("processing %s: %w", d.Format("2006-01-02"), err)
		}
	}
	return nil
}

func (s *Scheduler) load(ctx context.Context) (*state, error) {
	st := &state{
		customers: map[string]*models.Customer{},
		accounts:  map[string]*models.Account{},
	}

	customers, err := s.store.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading customers: %w", err)
	}
	for _, c := range customers {
		st.customers[c.ID] = c
	}

	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	for _, a := range accounts {
		st.accounts[a.ID] = a
	}

	if st.loans, err = s.store.Loans(ctx); err != nil {
		return nil, fmt.Errorf("loading loans: %w", err)
	}
	if st.obligations, err = s.store.Obligations(ctx); err != nil {
		return nil, fmt.Errorf("loading obligations: %w", err)
	}
	if st.cards, err = s.store.Cards(ctx); err != nil {
		return nil, fmt.Errorf("loading cards: %w", err)
	}

	sort.Slice(st.loans, func(i, j int) bool { return st.loans[i].ID < st.loans[j].ID })
	sort.Slice(st.obligations, func(i, j int) bool { return st.obligations[i].ID < st.obligations[j].ID })
	sort.Slice(st.cards, func(i, j int) bool { return st.cards[i].ID < st.cards[j].ID })
	return st, nil
}

func (s *Scheduler) processDate(ctx context.Context, st *state, d time.Time) error {
	st.reset()
	s.buf.reset()

	if err := s.runObligations(ctx, st, d, models.ObligationSalary); err != nil {
		return err
	}
	if err := s.runObligations(ctx, st, d, models.ObligationBill); err != nil {
		return err
	}
	if err := s.runLoans(ctx, st, d); err != nil {
		return err
	}
	if err := s.runCards(ctx, st, d); err != nil {
		return err
	}
	if monthEnd(d) {
		if err := s.closeAMBWindows(ctx, st, d); err != nil {
			return err
		}
	}
	if err := s.recomputeScores(ctx, st, d); err != nil {
		return err
	}

	return s.commit(ctx, st, d)
}

// commit persists the date's work in one atomic batch and mirrors its events
// onto the bus afterwards. Publish failures are logged, never fatal: the
// store is the source of truth.
func (s *Scheduler) commit(ctx context.Context, st *state, d time.Time) error {
	batch := repository.DateBatch{
		Date:   d,
		Events: s.buf.entries,
		Scores: st.scores,
	}
	for _, id := range sortedKeys(st.dirtyAccounts) {
		batch.Accounts = append(batch.Accounts, st.dirtyAccounts[id])
	}
	for _, id := range sortedKeys(st.dirtyLoans) {
		batch.Loans = append(batch.Loans, st.dirtyLoans[id])
	}
	for _, id := range sortedKeys(st.dirtyObligations) {
		batch.Obligations = append(batch.Obligations, st.dirtyObligations[id])
	}
	for _, id := range sortedKeys(st.dirtyCards) {
		batch.Cards = append(batch.Cards, st.dirtyCards[id])
	}

	if err := s.store.CommitBatch(ctx, batch); err != nil {
		return fmt.Errorf("committing date: %w", err)
	}
	if s.pub != nil {
		for _, e := range batch.Events {
			if err := s.pub.Publish(events.Topic, e); err != nil {
				s.log.WithError(err).Warn("failed to publish event to bus")
			}
		}
	}
	return nil
}

func (s *Scheduler) runObligations(ctx context.Context, st *state, d time.Time, kind models.ObligationKind) error {
	for _, ob := range st.obligations {
		if ob.Kind != kind || ob.Status != models.ObligationActive || !due(ob.NextDue, d) {
			continue
		}
		acc, ok := st.accounts[ob.AccountID]
		if !ok {
			s.log.WithField("obligation", ob.ID).Error("obligation references unknown account")
			continue
		}
		outcome, err := s.bills.Apply(ctx, ob, acc, d)
		if err != nil {
			return err
		}
		st.dirtyObligations[ob.ID] = ob
		st.dirtyAccounts[acc.ID] = acc
		st.touched[acc.ID] = struct{}{}

		if outcome == models.OutcomeInsufficientFunds && s.notify != nil {
			if cust, ok := st.customers[acc.CustomerID]; ok {
				s.notify.PaymentMissed(cust, models.EventBill, ob.ID, d)
			}
		}
	}
	return nil
}

func (s *Scheduler) runLoans(ctx context.Context, st *state, d time.Time) error {
	for _, l := range st.loans {
		if l.Status != models.LoanActive && l.Status != models.LoanPastDue {
			continue
		}
		if !due(l.NextDue, d) {
			continue
		}
		acc, ok := st.accounts[l.AccountID]
		if !ok {
			s.log.WithField("loan", l.ID).Error("loan references unknown account")
			continue
		}
		outcome, err := s.loans.ApplyInstallment(ctx, l, acc, d)
		if err != nil {
			return err
		}
		st.dirtyLoans[l.ID] = l
		st.dirtyAccounts[acc.ID] = acc
		st.touched[acc.ID] = struct{}{}

		if outcome == models.OutcomeInsufficientFunds && s.notify != nil {
			if cust, ok := st.customers[acc.CustomerID]; ok {
				s.notify.PaymentMissed(cust, models.EventLoanEMI, l.ID, d)
			}
		}
	}
	return nil
}

func (s *Scheduler) runCards(ctx context.Context, st *state, d time.Time) error {
	for _, c := range st.cards {
		if !c.CycleDue(d) {
			continue
		}
		acc, ok := st.accounts[c.AccountID]
		if !ok {
			s.log.WithField("card", c.ID).Error("card references unknown account")
			continue
		}
		if err := s.cards.CloseCycle(ctx, c, acc, d); err != nil {
			return err
		}
		st.dirtyCards[c.ID] = c
		st.dirtyAccounts[acc.ID] = acc
		st.touched[acc.ID] = struct{}{}
	}
	return nil
}

func (s *Scheduler) closeAMBWindows(ctx context.Context, st *state, d time.Time) error {
	for _, id := range sortedKeys(st.accounts) {
		acc := st.accounts[id]
		fee, _, err := s.ledger.CloseAMBWindow(ctx, acc, d)
		if err != nil {
			return err
		}
		// Window tracking resets even when no fee applies.
		st.dirtyAccounts[acc.ID] = acc
		if fee.IsPositive() {
			st.touched[acc.ID] = struct{}{}
		}
	}
	return nil
}

// recomputeScores rescores every customer owning a touched account. A
// computation error poisons only that customer's recompute; the rest of the
// date proceeds.
func (s *Scheduler) recomputeScores(ctx context.Context, st *state, d time.Time) error {
	custIDs := map[string]struct{}{}
	for accID := range st.touched {
		if acc, ok := st.accounts[accID]; ok {
			custIDs[acc.CustomerID] = struct{}{}
		}
	}

	for _, custID := range sortedKeys(custIDs) {
		cust, ok := st.customers[custID]
		if !ok {
			continue
		}
		h, err := s.history(ctx, st, cust)
		if err != nil {
			return err
		}

		rec, err := s.scores.Recompute(h, d)
		if err != nil {
			var ce *scoring.ComputationError
			if errors.As(err, &ce) {
				s.log.WithError(ce).WithField("customer", custID).Error("score recompute failed")
				continue
			}
			return err
		}
		st.scores = append(st.scores, *rec)
		if err := s.buf.AppendEvent(ctx, models.EventLogEntry{
			ID:      uuid.NewString(),
			Date:    d,
			Kind:    models.EventScore,
			Outcome: models.OutcomeApplied,
			RefID:   custID,
			Detail:  fmt.Sprintf("score=%d category=%s", rec.Score, rec.Category),
		}); err != nil {
			return err
		}
	}
	return nil
}

// history assembles the scoring inputs from committed events plus the
// current date's buffered ones, so same-day activity counts.
func (s *Scheduler) history(ctx context.Context, st *state, cust *models.Customer) (scoring.History, error) {
	h := scoring.History{Customer: cust}
	accountSet := map[string]struct{}{}
	for _, id := range sortedKeys(st.accounts) {
		acc := st.accounts[id]
		if acc.CustomerID != cust.ID {
			continue
		}
		h.Accounts = append(h.Accounts, acc)
		accountSet[acc.ID] = struct{}{}
		events, err := s.store.EventsByAccount(ctx, acc.ID)
		if err != nil {
			return h, fmt.Errorf("loading events for account %s: %w", acc.ID, err)
		}
		h.Events = append(h.Events, events...)
	}
	for _, e := range s.buf.entries {
		if _, ok := accountSet[e.AccountID]; ok {
			h.Events = append(h.Events, e)
		}
	}
	for _, l := range st.loans {
		if _, ok := accountSet[l.AccountID]; ok {
			h.Loans = append(h.Loans, l)
		}
	}
	for _, c := range st.cards {
		if c.CustomerID == cust.ID {
			h.Cards = append(h.Cards, c)
		}
	}
	return h, nil
}

// due compares calendar dates, treating any due date at or before d as due so
// a schedule seeded in the past catches up on the next processed day.
func due(nextDue, d time.Time) bool {
	if nextDue.IsZero() {
		return false
	}
	return !clock.DateOf(nextDue).After(d)
}

// monthEnd reports whether d is the last day of its month.
func monthEnd(d time.Time) bool {
	return d.AddDate(0, 0, 1).Day() == 1
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
