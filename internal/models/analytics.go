package models

import "github.com/shopspring/decimal"

// IncomeExpenseStats represents income and expense totals over a window
type IncomeExpenseStats struct {
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	NetBalance decimal.Decimal `json:"net_balance"`
}

// CreditBurden represents debt obligation analytics for a customer
type CreditBurden struct {
	MonthlyObligations decimal.Decimal `json:"monthly_obligations"`
	MonthlyIncome      decimal.Decimal `json:"monthly_income"`
	DTIRatio           decimal.Decimal `json:"dti_ratio"` // MonthlyObligations / MonthlyIncome
}
