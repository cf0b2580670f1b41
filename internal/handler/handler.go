package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rkamath/bank-office/internal/clock"
	"github.com/rkamath/bank-office/internal/models"
	"github.com/rkamath/bank-office/internal/repository"
	"github.com/rkamath/bank-office/internal/service"
)

// Handler exposes the simulation over HTTP.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, clock.ErrInvalidTimeTravel):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Clock reports the current simulated date.
func (h *Handler) Clock(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"today": h.svc.Today().Format("2006-01-02"),
	})
}

// AdvanceClock moves the simulation forward to a target date or by a number
// of days.
func (h *Handler) AdvanceClock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
		Days int    `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		today time.Time
		err   error
	)
	if req.Date != "" {
		var target time.Time
		target, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		today, err = h.svc.AdvanceTo(r.Context(), target)
	} else {
		today, err = h.svc.AdvanceDays(r.Context(), req.Days)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"today": today.Format("2006-01-02")})
}

// CreateCustomer handles customer creation
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string          `json:"name"`
		Email         string          `json:"email"`
		MonthlyIncome decimal.Decimal `json:"monthly_income"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	customer, err := h.svc.CreateCustomer(r.Context(), req.Name, req.Email, req.MonthlyIncome)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID     string             `json:"customer_id"`
		Tier           models.AccountTier `json:"tier"`
		OpeningBalance decimal.Decimal    `json:"opening_balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	account, err := h.svc.CreateAccount(r.Context(), req.CustomerID, req.Tier, req.OpeningBalance)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

// GetAccount returns one account
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.Account(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

type moveRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type moveResponse struct {
	Account *models.Account `json:"account"`
	Outcome models.Outcome  `json:"outcome"`
}

// Deposit credits an account
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	account, outcome, err := h.svc.Deposit(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, moveResponse{Account: account, Outcome: outcome})
}

// Withdraw debits an account
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	account, outcome, err := h.svc.Withdraw(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, moveResponse{Account: account, Outcome: outcome})
}

// CreateLoan originates a loan
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string          `json:"account_id"`
		Principal   decimal.Decimal `json:"principal"`
		AnnualRate  decimal.Decimal `json:"annual_rate"`
		TermPeriods int             `json:"term_periods"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	l, err := h.svc.CreateLoan(r.Context(), req.AccountID, req.Principal, req.AnnualRate, req.TermPeriods)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, l)
}

// GetLoan returns one loan with its schedule
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Loan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

// PrepayLoan pays down loan principal early
func (h *Handler) PrepayLoan(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	l, outcome, err := h.svc.PrepayLoan(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"loan": l, "outcome": outcome})
}

// CreateObligation registers a recurring bill or salary credit
func (h *Handler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string                `json:"account_id"`
		Kind      models.ObligationKind `json:"kind"`
		Name      string                `json:"name"`
		Category  string                `json:"category"`
		Amount    decimal.Decimal       `json:"amount"`
		Frequency models.Frequency      `json:"frequency"`
		FirstDue  string                `json:"first_due"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	firstDue, err := time.Parse("2006-01-02", req.FirstDue)
	if err != nil {
		http.Error(w, "invalid first_due, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	ob, err := h.svc.CreateObligation(r.Context(), req.AccountID, req.Kind, req.Name, req.Category, req.Amount, req.Frequency, firstDue)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ob)
}

// CreateCard issues a credit card
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string               `json:"account_id"`
		CreditLimit decimal.Decimal      `json:"credit_limit"`
		BillingDay  int                  `json:"billing_day"`
		Autopay     models.AutopayPolicy `json:"autopay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Autopay == "" {
		req.Autopay = models.AutopayNone
	}
	card, err := h.svc.CreateCard(r.Context(), req.AccountID, req.CreditLimit, req.BillingDay, req.Autopay)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, card)
}

// CardPurchase draws on a card's credit line
func (h *Handler) CardPurchase(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	card, err := h.svc.CardPurchase(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// ReviewLimit runs a credit limit review for a card
func (h *Handler) ReviewLimit(w http.ResponseWriter, r *http.Request) {
	decision, err := h.svc.ReviewLimit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// GetScore returns the customer's latest credit score
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.LatestScore(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// GetCreditBurden reports monthly debt service against income
func (h *Handler) GetCreditBurden(w http.ResponseWriter, r *http.Request) {
	burden, err := h.svc.CreditBurden(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, burden)
}

// GetEvents returns the full event log
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.Events(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// GetAccountEvents returns one account's event log
func (h *Handler) GetAccountEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.AccountEvents(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// GetIncomeExpense aggregates applied ledger activity over a date range
func (h *Handler) GetIncomeExpense(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		http.Error(w, "invalid from, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		http.Error(w, "invalid to, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	stats, err := h.svc.IncomeExpense(r.Context(), mux.Vars(r)["id"], from, to)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
