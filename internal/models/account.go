package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus represents the lifecycle state of an account
type AccountStatus string

const (
	AccountActive  AccountStatus = "ACTIVE"
	AccountFrozen  AccountStatus = "FROZEN"
	AccountDormant AccountStatus = "DORMANT"
	AccountClosed  AccountStatus = "CLOSED"
)

// AccountTier identifies the product tier of an account. Each tier carries
// its own minimum-balance and AMB fee policy.
type AccountTier string

const (
	TierPride   AccountTier = "Pride"
	TierBespoke AccountTier = "Bespoke"
	TierClub    AccountTier = "Club"
	TierDelite  AccountTier = "Delite"
	TierFuture  AccountTier = "Future"
)

// TierPolicy holds the balance rules for one account tier.
type TierPolicy struct {
	MinBalance     decimal.Decimal // operational floor debits may not breach
	AMBRequirement decimal.Decimal // average monthly balance threshold
	AMBFee         decimal.Decimal // fee charged when AMB falls below the threshold
}

// AMBExempt reports whether the tier is exempt from AMB penalties.
func (p TierPolicy) AMBExempt() bool {
	return p.AMBRequirement.IsZero()
}

// TierPolicies is the closed set of account tiers and their balance rules.
var TierPolicies = map[AccountTier]TierPolicy{
	TierPride:   {MinBalance: decimal.NewFromInt(300), AMBRequirement: decimal.NewFromInt(2000), AMBFee: decimal.NewFromInt(300)},
	TierBespoke: {MinBalance: decimal.NewFromInt(300), AMBRequirement: decimal.NewFromInt(200000), AMBFee: decimal.NewFromInt(300)},
	TierClub:    {MinBalance: decimal.NewFromInt(300), AMBRequirement: decimal.NewFromInt(10000), AMBFee: decimal.NewFromInt(300)},
	TierDelite:  {MinBalance: decimal.NewFromInt(300), AMBRequirement: decimal.NewFromInt(5000), AMBFee: decimal.NewFromInt(300)},
	TierFuture:  {MinBalance: decimal.Zero, AMBRequirement: decimal.Zero, AMBFee: decimal.Zero},
}

// Account represents a bank account. Balance is mutated exclusively through
// the ledger service.
type Account struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customer_id"`
	Tier           AccountTier     `json:"tier"`
	Status         AccountStatus   `json:"status"`
	Balance        decimal.Decimal `json:"balance"`
	OpenedOn       time.Time       `json:"opened_on"`
	PendingAMBFees decimal.Decimal `json:"pending_amb_fees"`

	// AMB statement-window tracking. WeightedSum accumulates balance*days
	// since WindowStart; LastAccrued marks the date up to which the sum
	// is current.
	WindowStart time.Time       `json:"window_start"`
	WeightedSum decimal.Decimal `json:"weighted_sum"`
	LastAccrued time.Time       `json:"last_accrued"`
}

// Policy returns the balance policy for the account's tier.
func (a *Account) Policy() TierPolicy {
	return TierPolicies[a.Tier]
}

// IsActive reports whether ledger operations may touch the account.
func (a *Account) IsActive() bool {
	return a.Status == AccountActive
}
