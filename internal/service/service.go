package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/rkamath/bank-office/internal/clock"
	"github.com/rkamath/bank-office/internal/config"
	"github.com/rkamath/bank-office/internal/ledger"
	"github.com/rkamath/bank-office/internal/loan"
	"github.com/rkamath/bank-office/internal/models"
	"github.com/rkamath/bank-office/internal/repository"
	"github.com/rkamath/bank-office/internal/scoring"
	"github.com/rkamath/bank-office/internal/utils"
)

// RateSource provides the default annual lending rate for new loans.
type RateSource interface {
	LendingRate() (decimal.Decimal, error)
}

// defaultLoanRate applies when no rate is given and the rate source is
// unavailable.
var defaultLoanRate = decimal.NewFromFloat(0.12)

// Service handles business logic
type Service struct {
	store  repository.Store
	clock  *clock.Clock
	ledger *ledger.Service
	loans  *loan.Engine
	limits *scoring.LimitEvaluator
	sink   ledger.EventSink
	rates  RateSource
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service. rates may be nil.
func NewService(
	store repository.Store,
	clk *clock.Clock,
	ledgerSvc *ledger.Service,
	loans *loan.Engine,
	limits *scoring.LimitEvaluator,
	sink ledger.EventSink,
	rates RateSource,
	log *logrus.Logger,
	cfg *config.Config,
) *Service {
	return &Service{
		store:  store,
		clock:  clk,
		ledger: ledgerSvc,
		loans:  loans,
		limits: limits,
		sink:   sink,
		rates:  rates,
		log:    log,
		config: cfg,
	}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    s.clock.Today().Format("2006-01-02"),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// Today returns the current simulated date.
func (s *Service) Today() time.Time {
	return s.clock.Today()
}

// AdvanceTo moves the simulated clock forward to the target date, applying
// every due event on the way.
func (s *Service) AdvanceTo(ctx context.Context, target time.Time) (time.Time, error) {
	if err := s.clock.Advance(ctx, target); err != nil {
		return s.clock.Today(), err
	}
	return s.clock.Today(), nil
}

// AdvanceDays moves the simulated clock forward by n days.
func (s *Service) AdvanceDays(ctx context.Context, n int) (time.Time, error) {
	if n < 0 {
		return s.clock.Today(), clock.ErrInvalidTimeTravel
	}
	if err := s.clock.AdvanceDays(ctx, n); err != nil {
		return s.clock.Today(), err
	}
	return s.clock.Today(), nil
}

// CreateCustomer registers a customer profile.
func (s *Service) CreateCustomer(ctx context.Context, name, email string, monthlyIncome decimal.Decimal) (*models.Customer, error) {
	if monthlyIncome.IsNegative() {
		return nil, fmt.Errorf("monthly income cannot be negative")
	}
	customer := &models.Customer{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         email,
		MonthlyIncome: monthlyIncome,
		CreatedAt:     s.clock.Today(),
	}
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		return nil, err
	}
	s.log.Infof("Customer created: %s", customer.ID)
	return customer, nil
}

// CreateAccount opens an account in the given tier with an optional opening
// balance.
func (s *Service) CreateAccount(ctx context.Context, customerID string, tier models.AccountTier, opening decimal.Decimal) (*models.Account, error) {
	if _, ok := models.TierPolicies[tier]; !ok {
		return nil, fmt.Errorf("unknown account tier %q", tier)
	}
	if opening.IsNegative() {
		return nil, fmt.Errorf("opening balance cannot be negative")
	}
	if _, err := s.store.Customer(ctx, customerID); err != nil {
		return nil, fmt.Errorf("customer %s: %w", customerID, err)
	}

	today := s.clock.Today()
	account := &models.Account{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Tier:        tier,
		Status:      models.AccountActive,
		Balance:     opening,
		OpenedOn:    today,
		WindowStart: today,
		LastAccrued: today,
	}
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	s.log.Infof("Account created for customer %s: %s (%s)", customerID, account.ID, tier)
	return account, nil
}

// Deposit credits the account through the ledger.
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, models.Outcome, error) {
	return s.move(ctx, accountID, amount, models.EventDeposit)
}

// Withdraw debits the account through the ledger; the tier's minimum-balance
// floor is enforced.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, models.Outcome, error) {
	return s.move(ctx, accountID, amount, models.EventWithdrawal)
}

func (s *Service) move(ctx context.Context, accountID string, amount decimal.Decimal, kind models.EventKind) (*models.Account, models.Outcome, error) {
	if !amount.IsPositive() {
		return nil, models.OutcomeFailed, fmt.Errorf("amount must be positive")
	}
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		return nil, models.OutcomeFailed, err
	}

	today := s.clock.Today()
	var outcome models.Outcome
	if kind == models.EventDeposit {
		outcome, err = s.ledger.Credit(ctx, account, amount, today)
	} else {
		outcome, err = s.ledger.Debit(ctx, account, amount, today)
	}
	if err != nil {
		return nil, models.OutcomeFailed, err
	}

	if err := s.sink.AppendEvent(ctx, models.EventLogEntry{
		ID:        uuid.NewString(),
		Date:      today,
		Kind:      kind,
		AccountID: account.ID,
		Amount:    amount,
		Outcome:   outcome,
	}); err != nil {
		return nil, models.OutcomeFailed, err
	}
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return nil, models.OutcomeFailed, err
	}
	return account, outcome, nil
}

// CreateLoan originates an amortized loan disbursed to the account. A zero
// rate means the current lending rate from the rate source, falling back to
// the configured default. Origination records a hard inquiry.
func (s *Service) CreateLoan(ctx context.Context, accountID string, principal, annualRate decimal.Decimal, termPeriods int) (*models.Loan, error) {
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	customer, err := s.store.Customer(ctx, account.CustomerID)
	if err != nil {
		return nil, err
	}

	if annualRate.IsZero() {
		annualRate = s.lendingRate()
	}

	today := s.clock.Today()
	schedule, err := loan.Schedule(principal, annualRate, termPeriods, today)
	if err != nil {
		return nil, err
	}

	l := &models.Loan{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Principal:   principal,
		AnnualRate:  annualRate,
		TermPeriods: termPeriods,
		StartDate:   today,
		Status:      models.LoanActive,
		Outstanding: principal,
		NextDue:     schedule[0].DueDate,
		Schedule:    schedule,
	}

	// Disburse the principal to the linked account.
	_, outcome, err := s.move(ctx, accountID, principal, models.EventDeposit)
	if err != nil {
		return nil, fmt.Errorf("disbursing loan: %w", err)
	}
	if outcome != models.OutcomeApplied {
		return nil, fmt.Errorf("cannot disburse to account %s: %s", accountID, outcome)
	}

	customer.Inquiries = append(customer.Inquiries, today)
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		return nil, err
	}
	if err := s.store.SaveLoan(ctx, l); err != nil {
		return nil, err
	}
	s.log.Infof("Loan created for account %s: %s at %s", accountID, l.ID, annualRate.String())
	return l, nil
}

func (s *Service) lendingRate() decimal.Decimal {
	if s.rates == nil {
		return defaultLoanRate
	}
	rate, err := s.rates.LendingRate()
	if err != nil {
		s.log.Warnf("Failed to fetch lending rate, using default: %v", err)
		return defaultLoanRate
	}
	return rate
}

// PrepayLoan pays down loan principal early from the linked account.
func (s *Service) PrepayLoan(ctx context.Context, loanID string, amount decimal.Decimal) (*models.Loan, models.Outcome, error) {
	l, err := s.store.Loan(ctx, loanID)
	if err != nil {
		return nil, models.OutcomeFailed, err
	}
	account, err := s.store.Account(ctx, l.AccountID)
	if err != nil {
		return nil, models.OutcomeFailed, err
	}

	outcome, err := s.loans.Prepay(ctx, l, account, amount, s.clock.Today())
	if err != nil {
		return nil, models.OutcomeFailed, err
	}
	if err := s.store.SaveAccount(ctx, account); err != nil {
		return nil, models.OutcomeFailed, err
	}
	if err := s.store.SaveLoan(ctx, l); err != nil {
		return nil, models.OutcomeFailed, err
	}
	return l, outcome, nil
}

// CreateObligation registers a recurring bill or salary credit on an account.
func (s *Service) CreateObligation(ctx context.Context, accountID string, kind models.ObligationKind, name, category string, amount decimal.Decimal, freq models.Frequency, firstDue time.Time) (*models.Obligation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	if _, err := s.store.Account(ctx, accountID); err != nil {
		return nil, err
	}
	firstDue = clock.DateOf(firstDue)
	if firstDue.Before(s.clock.Today()) {
		return nil, fmt.Errorf("first due date precedes the current simulated date")
	}

	ob := &models.Obligation{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Name:      name,
		Category:  category,
		Amount:    amount,
		Frequency: freq,
		NextDue:   firstDue,
		Status:    models.ObligationActive,
	}
	if err := s.store.SaveObligation(ctx, ob); err != nil {
		return nil, err
	}
	s.log.Infof("Obligation created on account %s: %s (%s)", accountID, ob.ID, kind)
	return ob, nil
}

// CreateCard issues a credit card linked to the account. Issuance records a
// hard inquiry against the customer.
func (s *Service) CreateCard(ctx context.Context, accountID string, creditLimit decimal.Decimal, billingDay int, autopay models.AutopayPolicy) (*models.Card, error) {
	if !creditLimit.IsPositive() {
		return nil, fmt.Errorf("credit limit must be positive")
	}
	if billingDay < 1 || billingDay > 28 {
		return nil, fmt.Errorf("billing day must be between 1 and 28")
	}
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	customer, err := s.store.Customer(ctx, account.CustomerID)
	if err != nil {
		return nil, err
	}

	number, err := utils.GenerateCardNumber("400000", 16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate card number: %w", err)
	}

	today := s.clock.Today()
	card := &models.Card{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		CustomerID:  customer.ID,
		Number:      number,
		Expiry:      utils.GenerateExpiryDate(today),
		CreditLimit: creditLimit,
		BillingDay:  billingDay,
		AnnualRate:  decimal.NewFromFloat(0.18),
		Autopay:     autopay,
		OpenedOn:    today,
	}

	customer.Inquiries = append(customer.Inquiries, today)
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		return nil, err
	}
	if err := s.store.SaveCard(ctx, card); err != nil {
		return nil, err
	}
	s.log.Infof("Card created for account %s: %s", accountID, card.ID)
	return card, nil
}

// CardPurchase draws on the card's credit line.
func (s *Service) CardPurchase(ctx context.Context, cardID string, amount decimal.Decimal) (*models.Card, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	card, err := s.store.Card(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(card.AvailableCredit()) {
		return nil, fmt.Errorf("insufficient available credit")
	}
	card.Outstanding = card.Outstanding.Add(amount)
	if err := s.store.SaveCard(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// LatestScore returns the customer's most recent credit score record.
func (s *Service) LatestScore(ctx context.Context, customerID string) (*models.CreditScoreRecord, error) {
	return s.store.LatestScore(ctx, customerID)
}

// ReviewLimit runs a credit limit review for the card and applies an approved
// enhancement. Limits never decrease on review.
func (s *Service) ReviewLimit(ctx context.Context, cardID string) (scoring.LimitDecision, error) {
	card, err := s.store.Card(ctx, cardID)
	if err != nil {
		return scoring.LimitDecision{}, err
	}
	customer, err := s.store.Customer(ctx, card.CustomerID)
	if err != nil {
		return scoring.LimitDecision{}, err
	}

	loans, cards, err := s.customerDebts(ctx, customer.ID)
	if err != nil {
		return scoring.LimitDecision{}, err
	}

	latest, err := s.store.LatestScore(ctx, customer.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return scoring.LimitDecision{}, err
	}

	decision := s.limits.Evaluate(customer, card, latest, scoring.MonthlyObligations(loans, cards))
	if decision.Approved {
		card.CreditLimit = decision.NewLimit
		if err := s.store.SaveCard(ctx, card); err != nil {
			return scoring.LimitDecision{}, err
		}
	}
	return decision, nil
}

// CreditBurden reports the customer's monthly debt service against income.
func (s *Service) CreditBurden(ctx context.Context, customerID string) (*models.CreditBurden, error) {
	customer, err := s.store.Customer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	loans, cards, err := s.customerDebts(ctx, customerID)
	if err != nil {
		return nil, err
	}

	burden := &models.CreditBurden{
		MonthlyObligations: scoring.MonthlyObligations(loans, cards),
		MonthlyIncome:      customer.MonthlyIncome,
	}
	if customer.MonthlyIncome.IsPositive() {
		burden.DTIRatio = burden.MonthlyObligations.Div(customer.MonthlyIncome).Round(4)
	}
	return burden, nil
}

// IncomeExpense aggregates applied ledger activity on an account over the
// inclusive date range.
func (s *Service) IncomeExpense(ctx context.Context, accountID string, from, to time.Time) (*models.IncomeExpenseStats, error) {
	events, err := s.store.EventsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	from, to = clock.DateOf(from), clock.DateOf(to)

	stats := &models.IncomeExpenseStats{}
	for _, ev := range events {
		if ev.Outcome != models.OutcomeApplied {
			continue
		}
		d := clock.DateOf(ev.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		switch ev.Kind {
		case models.EventSalary, models.EventDeposit:
			stats.Income = stats.Income.Add(ev.Amount)
		case models.EventBill, models.EventLoanEMI, models.EventLoanPrepay,
			models.EventCardAutopay, models.EventAMBFee, models.EventAMBFeeSettled,
			models.EventWithdrawal:
			stats.Expense = stats.Expense.Add(ev.Amount)
		}
	}
	stats.NetBalance = stats.Income.Sub(stats.Expense)
	return stats, nil
}

// Events returns the full event log in deterministic order.
func (s *Service) Events(ctx context.Context) ([]models.EventLogEntry, error) {
	return s.store.Events(ctx)
}

// AccountEvents returns the event log entries of one account.
func (s *Service) AccountEvents(ctx context.Context, accountID string) ([]models.EventLogEntry, error) {
	if _, err := s.store.Account(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.EventsByAccount(ctx, accountID)
}

// Account returns one account.
func (s *Service) Account(ctx context.Context, id string) (*models.Account, error) {
	return s.store.Account(ctx, id)
}

// Loan returns one loan with its schedule.
func (s *Service) Loan(ctx context.Context, id string) (*models.Loan, error) {
	return s.store.Loan(ctx, id)
}

func (s *Service) customerDebts(ctx context.Context, customerID string) ([]*models.Loan, []*models.Card, error) {
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		return nil, nil, err
	}
	owned := map[string]struct{}{}
	for _, a := range accounts {
		if a.CustomerID == customerID {
			owned[a.ID] = struct{}{}
		}
	}

	allLoans, err := s.store.Loans(ctx)
	if err != nil {
		return nil, nil, err
	}
	var loans []*models.Loan
	for _, l := range allLoans {
		if _, ok := owned[l.AccountID]; ok {
			loans = append(loans, l)
		}
	}

	allCards, err := s.store.Cards(ctx)
	if err != nil {
		return nil, nil, err
	}
	var cards []*models.Card
	for _, c := range allCards {
		if c.CustomerID == customerID {
			cards = append(cards, c)
		}
	}
	return loans, cards, nil
}
