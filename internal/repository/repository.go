package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rkamath/bank-office/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DateBatch is everything one processed simulation date produced. A batch is
// committed atomically: either all of its writes land together with the date
// marker, or none do.
type DateBatch struct {
	Date        time.Time
	Accounts    []*models.Account
	Loans       []*models.Loan
	Obligations []*models.Obligation
	Cards       []*models.Card
	Events      []models.EventLogEntry
	Scores      []models.CreditScoreRecord
}

// Store is the persistence collaborator for the simulation core. The core
// treats the concrete storage format as opaque; CommitBatch persists one
// processed date all-or-nothing, and LastCommittedDate lets an interrupted
// advance resume without replaying committed dates.
type Store interface {
	Customers(ctx context.Context) ([]*models.Customer, error)
	Accounts(ctx context.Context) ([]*models.Account, error)
	Loans(ctx context.Context) ([]*models.Loan, error)
	Obligations(ctx context.Context) ([]*models.Obligation, error)
	Cards(ctx context.Context) ([]*models.Card, error)

	Customer(ctx context.Context, id string) (*models.Customer, error)
	Account(ctx context.Context, id string) (*models.Account, error)
	Loan(ctx context.Context, id string) (*models.Loan, error)
	Card(ctx context.Context, id string) (*models.Card, error)

	SaveCustomer(ctx context.Context, c *models.Customer) error
	SaveAccount(ctx context.Context, a *models.Account) error
	SaveLoan(ctx context.Context, l *models.Loan) error
	SaveObligation(ctx context.Context, o *models.Obligation) error
	SaveCard(ctx context.Context, c *models.Card) error

	AppendEvent(ctx context.Context, e models.EventLogEntry) error
	Events(ctx context.Context) ([]models.EventLogEntry, error)
	EventsByAccount(ctx context.Context, accountID string) ([]models.EventLogEntry, error)

	AppendScore(ctx context.Context, r models.CreditScoreRecord) error
	LatestScore(ctx context.Context, customerID string) (*models.CreditScoreRecord, error)

	CommitBatch(ctx context.Context, b DateBatch) error
	CommitDate(ctx context.Context, d time.Time) error
	LastCommittedDate(ctx context.Context) (time.Time, error)

	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}
