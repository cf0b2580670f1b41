package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rkamath/bank-office/internal/models"
)

// MemoryStore is an in-memory implementation of Store. It is the default
// backend for simulations and tests; writes are durable only for the
// lifetime of the process.
type MemoryStore struct {
	mu sync.Mutex

	customers   map[string]models.Customer
	accounts    map[string]models.Account
	loans       map[string]models.Loan
	obligations map[string]models.Obligation
	cards       map[string]models.Card

	events []models.EventLogEntry
	scores map[string][]models.CreditScoreRecord

	lastCommitted time.Time

	users  map[string]models.User // keyed by email
	nextID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:   make(map[string]models.Customer),
		accounts:    make(map[string]models.Account),
		loans:       make(map[string]models.Loan),
		obligations: make(map[string]models.Obligation),
		cards:       make(map[string]models.Card),
		scores:      make(map[string][]models.CreditScoreRecord),
		users:       make(map[string]models.User),
	}
}

func cloneCustomer(c models.Customer) *models.Customer {
	c.Inquiries = append([]time.Time(nil), c.Inquiries...)
	return &c
}

func cloneLoan(l models.Loan) *models.Loan {
	l.Schedule = append([]models.Installment(nil), l.Schedule...)
	return &l
}

func cloneCard(c models.Card) *models.Card {
	c.Statements = append([]models.Statement(nil), c.Statements...)
	return &c
}

func (m *MemoryStore) Customers(ctx context.Context) ([]*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, cloneCustomer(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Accounts(ctx context.Context) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Loans(ctx context.Context) ([]*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Loan, 0, len(m.loans))
	for _, l := range m.loans {
		out = append(out, cloneLoan(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Obligations(ctx context.Context) ([]*models.Obligation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Obligation, 0, len(m.obligations))
	for _, o := range m.obligations {
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Cards(ctx context.Context) ([]*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Card, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, cloneCard(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Customer(ctx context.Context, id string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCustomer(c), nil
}

func (m *MemoryStore) Account(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) Loan(ctx context.Context, id string) (*models.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneLoan(l), nil
}

func (m *MemoryStore) Card(ctx context.Context, id string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCard(c), nil
}

func (m *MemoryStore) SaveCustomer(ctx context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = *cloneCustomer(*c)
	return nil
}

func (m *MemoryStore) SaveAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = *a
	return nil
}

func (m *MemoryStore) SaveLoan(ctx context.Context, l *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = *cloneLoan(*l)
	return nil
}

func (m *MemoryStore) SaveObligation(ctx context.Context, o *models.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obligations[o.ID] = *o
	return nil
}

func (m *MemoryStore) SaveCard(ctx context.Context, c *models.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = *cloneCard(*c)
	return nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, e models.EventLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryStore) Events(ctx context.Context) ([]models.EventLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EventLogEntry, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *MemoryStore) EventsByAccount(ctx context.Context, accountID string) ([]models.EventLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EventLogEntry
	for _, e := range m.events {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) AppendScore(ctx context.Context, r models.CreditScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[r.CustomerID] = append(m.scores[r.CustomerID], r)
	return nil
}

func (m *MemoryStore) LatestScore(ctx context.Context, customerID string) (*models.CreditScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := m.scores[customerID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	r := history[len(history)-1]
	return &r, nil
}

// CommitBatch applies one processed date under a single lock. In-memory map
// writes cannot fail partway, so the batch is atomic by construction.
func (m *MemoryStore) CommitBatch(ctx context.Context, b DateBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range b.Accounts {
		m.accounts[a.ID] = *a
	}
	for _, l := range b.Loans {
		m.loans[l.ID] = *cloneLoan(*l)
	}
	for _, o := range b.Obligations {
		m.obligations[o.ID] = *o
	}
	for _, c := range b.Cards {
		m.cards[c.ID] = *cloneCard(*c)
	}
	m.events = append(m.events, b.Events...)
	for _, r := range b.Scores {
		m.scores[r.CustomerID] = append(m.scores[r.CustomerID], r)
	}
	if b.Date.After(m.lastCommitted) {
		m.lastCommitted = b.Date
	}
	return nil
}

func (m *MemoryStore) CommitDate(ctx context.Context, d time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.After(m.lastCommitted) {
		m.lastCommitted = d
	}
	return nil
}

func (m *MemoryStore) LastCommittedDate(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCommitted, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.Email]; exists {
		return errors.New("email already registered")
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.users[u.Email] = *u
	return nil
}

func (m *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// Compile-time check: ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
