package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rkamath/bank-office/internal/models"
)

// PostgresStore is the durable implementation of Store backed by Postgres.
// Amounts are stored as NUMERIC and scanned through decimal.Decimal; loan
// schedules, card statements and inquiry dates are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore initializes a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (r *PostgresStore) Customers(ctx context.Context) ([]*models.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, monthly_income, created_at, inquiries
		FROM bank.customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	defer rows.Close()

	var out []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	c := &models.Customer{}
	var inquiries []byte
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.MonthlyIncome, &c.CreatedAt, &inquiries); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	if len(inquiries) > 0 {
		if err := json.Unmarshal(inquiries, &c.Inquiries); err != nil {
			return nil, fmt.Errorf("failed to decode inquiries: %w", err)
		}
	}
	return c, nil
}

func (r *PostgresStore) Customer(ctx context.Context, id string) (*models.Customer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, monthly_income, created_at, inquiries
		FROM bank.customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (r *PostgresStore) SaveCustomer(ctx context.Context, c *models.Customer) error {
	inquiries, err := json.Marshal(c.Inquiries)
	if err != nil {
		return fmt.Errorf("failed to encode inquiries: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bank.customers (id, name, email, monthly_income, created_at, inquiries)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email,
			monthly_income = EXCLUDED.monthly_income, inquiries = EXCLUDED.inquiries`,
		c.ID, c.Name, c.Email, c.MonthlyIncome, c.CreatedAt, inquiries)
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

func (r *PostgresStore) Accounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, tier, status, balance, opened_on, pending_amb_fees,
		       window_start, weighted_sum, last_accrued
		FROM bank.accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Tier, &a.Status, &a.Balance,
			&a.OpenedOn, &a.PendingAMBFees, &a.WindowStart, &a.WeightedSum, &a.LastAccrued); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresStore) Account(ctx context.Context, id string) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, tier, status, balance, opened_on, pending_amb_fees,
		       window_start, weighted_sum, last_accrued
		FROM bank.accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.CustomerID, &a.Tier, &a.Status, &a.Balance,
			&a.OpenedOn, &a.PendingAMBFees, &a.WindowStart, &a.WeightedSum, &a.LastAccrued)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return a, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx so the save statements can
// run standalone or inside a date batch transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *PostgresStore) SaveAccount(ctx context.Context, a *models.Account) error {
	return saveAccount(ctx, r.db, a)
}

func saveAccount(ctx context.Context, ex execer, a *models.Account) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO bank.accounts (id, customer_id, tier, status, balance, opened_on,
			pending_amb_fees, window_start, weighted_sum, last_accrued)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, balance = EXCLUDED.balance,
			pending_amb_fees = EXCLUDED.pending_amb_fees,
			window_start = EXCLUDED.window_start,
			weighted_sum = EXCLUDED.weighted_sum,
			last_accrued = EXCLUDED.last_accrued`,
		a.ID, a.CustomerID, a.Tier, a.Status, a.Balance, a.OpenedOn,
		a.PendingAMBFees, a.WindowStart, a.WeightedSum, a.LastAccrued)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (r *PostgresStore) Loans(ctx context.Context) ([]*models.Loan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, principal, annual_rate, term_periods, start_date, status,
		       outstanding, next_due, periods_paid, missed_periods, penalty_due, schedule
		FROM bank.loans ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}
	defer rows.Close()

	var out []*models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	l := &models.Loan{}
	var schedule []byte
	err := row.Scan(&l.ID, &l.AccountID, &l.Principal, &l.AnnualRate, &l.TermPeriods,
		&l.StartDate, &l.Status, &l.Outstanding, &l.NextDue, &l.PeriodsPaid,
		&l.MissedPeriods, &l.PenaltyDue, &schedule)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan loan: %w", err)
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &l.Schedule); err != nil {
			return nil, fmt.Errorf("failed to decode loan schedule: %w", err)
		}
	}
	return l, nil
}

func (r *PostgresStore) Loan(ctx context.Context, id string) (*models.Loan, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, principal, annual_rate, term_periods, start_date, status,
		       outstanding, next_due, periods_paid, missed_periods, penalty_due, schedule
		FROM bank.loans WHERE id = $1`, id)
	return scanLoan(row)
}

func (r *PostgresStore) SaveLoan(ctx context.Context, l *models.Loan) error {
	return saveLoan(ctx, r.db, l)
}

func saveLoan(ctx context.Context, ex execer, l *models.Loan) error {
	schedule, err := json.Marshal(l.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode loan schedule: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO bank.loans (id, account_id, principal, annual_rate, term_periods,
			start_date, status, outstanding, next_due, periods_paid, missed_periods,
			penalty_due, schedule)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, outstanding = EXCLUDED.outstanding,
			next_due = EXCLUDED.next_due, periods_paid = EXCLUDED.periods_paid,
			missed_periods = EXCLUDED.missed_periods, penalty_due = EXCLUDED.penalty_due,
			schedule = EXCLUDED.schedule`,
		l.ID, l.AccountID, l.Principal, l.AnnualRate, l.TermPeriods, l.StartDate,
		l.Status, l.Outstanding, l.NextDue, l.PeriodsPaid, l.MissedPeriods,
		l.PenaltyDue, schedule)
	if err != nil {
		return fmt.Errorf("failed to save loan: %w", err)
	}
	return nil
}

func (r *PostgresStore) Obligations(ctx context.Context) ([]*models.Obligation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, kind, name, category, amount, frequency, next_due, status
		FROM bank.obligations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load obligations: %w", err)
	}
	defer rows.Close()

	var out []*models.Obligation
	for rows.Next() {
		o := &models.Obligation{}
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Kind, &o.Name, &o.Category,
			&o.Amount, &o.Frequency, &o.NextDue, &o.Status); err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresStore) SaveObligation(ctx context.Context, o *models.Obligation) error {
	return saveObligation(ctx, r.db, o)
}

func saveObligation(ctx context.Context, ex execer, o *models.Obligation) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO bank.obligations (id, account_id, kind, name, category, amount,
			frequency, next_due, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount, next_due = EXCLUDED.next_due,
			status = EXCLUDED.status`,
		o.ID, o.AccountID, o.Kind, o.Name, o.Category, o.Amount,
		o.Frequency, o.NextDue, o.Status)
	if err != nil {
		return fmt.Errorf("failed to save obligation: %w", err)
	}
	return nil
}

func (r *PostgresStore) Cards(ctx context.Context) ([]*models.Card, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, customer_id, number, expiry, credit_limit, outstanding,
		       statement_balance, minimum_due, billing_day, last_statement, due_date,
		       annual_rate, autopay, opened_on, statements
		FROM bank.cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	defer rows.Close()

	var out []*models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCard(row rowScanner) (*models.Card, error) {
	c := &models.Card{}
	var statements []byte
	err := row.Scan(&c.ID, &c.AccountID, &c.CustomerID, &c.Number, &c.Expiry,
		&c.CreditLimit, &c.Outstanding, &c.StatementBalance, &c.MinimumDue, &c.BillingDay,
		&c.LastStatement, &c.DueDate, &c.AnnualRate, &c.Autopay, &c.OpenedOn, &statements)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	if len(statements) > 0 {
		if err := json.Unmarshal(statements, &c.Statements); err != nil {
			return nil, fmt.Errorf("failed to decode card statements: %w", err)
		}
	}
	return c, nil
}

func (r *PostgresStore) Card(ctx context.Context, id string) (*models.Card, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, customer_id, number, expiry, credit_limit, outstanding,
		       statement_balance, minimum_due, billing_day, last_statement, due_date,
		       annual_rate, autopay, opened_on, statements
		FROM bank.cards WHERE id = $1`, id)
	return scanCard(row)
}

func (r *PostgresStore) SaveCard(ctx context.Context, c *models.Card) error {
	return saveCard(ctx, r.db, c)
}

func saveCard(ctx context.Context, ex execer, c *models.Card) error {
	statements, err := json.Marshal(c.Statements)
	if err != nil {
		return fmt.Errorf("failed to encode card statements: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO bank.cards (id, account_id, customer_id, number, expiry,
			credit_limit, outstanding, statement_balance, minimum_due, billing_day,
			last_statement, due_date, annual_rate, autopay, opened_on, statements)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			credit_limit = EXCLUDED.credit_limit, outstanding = EXCLUDED.outstanding,
			statement_balance = EXCLUDED.statement_balance,
			minimum_due = EXCLUDED.minimum_due,
			last_statement = EXCLUDED.last_statement, due_date = EXCLUDED.due_date,
			autopay = EXCLUDED.autopay, statements = EXCLUDED.statements`,
		c.ID, c.AccountID, c.CustomerID, c.Number, c.Expiry, c.CreditLimit,
		c.Outstanding, c.StatementBalance, c.MinimumDue, c.BillingDay, c.LastStatement,
		c.DueDate, c.AnnualRate, c.Autopay, c.OpenedOn, statements)
	if err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	return nil
}

func (r *PostgresStore) AppendEvent(ctx context.Context, e models.EventLogEntry) error {
	return appendEvent(ctx, r.db, e)
}

func appendEvent(ctx context.Context, ex execer, e models.EventLogEntry) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO bank.events (id, date, kind, account_id, amount, outcome, ref_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Date, e.Kind, e.AccountID, e.Amount, e.Outcome, e.RefID, e.Detail)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *PostgresStore) Events(ctx context.Context) ([]models.EventLogEntry, error) {
	return r.queryEvents(ctx, `
		SELECT id, date, kind, account_id, amount, outcome, ref_id, detail
		FROM bank.events ORDER BY date, id`)
}

func (r *PostgresStore) EventsByAccount(ctx context.Context, accountID string) ([]models.EventLogEntry, error) {
	return r.queryEvents(ctx, `
		SELECT id, date, kind, account_id, amount, outcome, ref_id, detail
		FROM bank.events WHERE account_id = $1 ORDER BY date, id`, accountID)
}

func (r *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]models.EventLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	var out []models.EventLogEntry
	for rows.Next() {
		var e models.EventLogEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Kind, &e.AccountID, &e.Amount,
			&e.Outcome, &e.RefID, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresStore) AppendScore(ctx context.Context, rec models.CreditScoreRecord) error {
	return appendScore(ctx, r.db, rec)
}

func appendScore(ctx context.Context, ex execer, rec models.CreditScoreRecord) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO bank.scores (customer_id, score, category, payment_history,
			utilization, credit_mix, inquiries, account_age, computed_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.CustomerID, rec.Score, rec.Category, rec.PaymentHistory,
		rec.Utilization, rec.CreditMix, rec.Inquiries, rec.AccountAge, rec.ComputedOn)
	if err != nil {
		return fmt.Errorf("failed to append score: %w", err)
	}
	return nil
}

func (r *PostgresStore) LatestScore(ctx context.Context, customerID string) (*models.CreditScoreRecord, error) {
	rec := &models.CreditScoreRecord{}
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, score, category, payment_history, utilization,
		       credit_mix, inquiries, account_age, computed_on
		FROM bank.scores WHERE customer_id = $1
		ORDER BY computed_on DESC LIMIT 1`, customerID).
		Scan(&rec.CustomerID, &rec.Score, &rec.Category, &rec.PaymentHistory,
			&rec.Utilization, &rec.CreditMix, &rec.Inquiries, &rec.AccountAge, &rec.ComputedOn)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest score: %w", err)
	}
	return rec, nil
}

// CommitBatch persists one processed date in a single transaction, so a
// failure leaves neither entity writes nor event appends behind and the date
// marker moves only with its data.
func (r *PostgresStore) CommitBatch(ctx context.Context, b DateBatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, a := range b.Accounts {
		if err := saveAccount(ctx, tx, a); err != nil {
			return err
		}
	}
	for _, l := range b.Loans {
		if err := saveLoan(ctx, tx, l); err != nil {
			return err
		}
	}
	for _, o := range b.Obligations {
		if err := saveObligation(ctx, tx, o); err != nil {
			return err
		}
	}
	for _, c := range b.Cards {
		if err := saveCard(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, e := range b.Events {
		if err := appendEvent(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, s := range b.Scores {
		if err := appendScore(ctx, tx, s); err != nil {
			return err
		}
	}
	if err := commitDate(ctx, tx, b.Date); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (r *PostgresStore) CommitDate(ctx context.Context, d time.Time) error {
	return commitDate(ctx, r.db, d)
}

func commitDate(ctx context.Context, ex execer, d time.Time) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO bank.sim_state (id, last_committed)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_committed = GREATEST(bank.sim_state.last_committed, EXCLUDED.last_committed)`, d)
	if err != nil {
		return fmt.Errorf("failed to commit date: %w", err)
	}
	return nil
}

func (r *PostgresStore) LastCommittedDate(ctx context.Context) (time.Time, error) {
	var d time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT last_committed FROM bank.sim_state WHERE id = 1`).Scan(&d)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last committed date: %w", err)
	}
	return d, nil
}

func (r *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO bank.users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`,
		u.Username, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM bank.users WHERE email = $1`, email).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

// Compile-time check: ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)
