package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultExchangeRate is the current ETB per USD default.
var DefaultExchangeRate = decimal.NewFromInt(180)

// LegacyExchangeRate is the default shipped by earlier releases. Settings rows
// still carrying it are moved to DefaultExchangeRate on load.
var LegacyExchangeRate = decimal.NewFromInt(57)

// DefaultSettings returns the settings used for new users and signed-out state.
func DefaultSettings() Settings {
	return Settings{
		ExchangeRate:     DefaultExchangeRate,
		SavingsGoalUSD:   decimal.NewFromInt(10000),
		RecurringEnabled: true,
		UserName:         "Freelancer",
		MonthlyBudget:    decimal.NewFromInt(1000),
		Theme:            Light,
	}
}

// MigrateSettings upgrades stored values from older releases. It reports
// whether anything changed.
func MigrateSettings(s Settings) (Settings, bool) {
	if s.ExchangeRate.Equal(LegacyExchangeRate) {
		s.ExchangeRate = DefaultExchangeRate
		return s, true
	}
	return s, false
}

// DefaultExpenses returns the demo expenses shown when nobody is signed in.
func DefaultExpenses(now time.Time) []Expense {
	today := Today(now)
	firstOfMonth := NewDate(today.Year(), int(today.Month()), 1)
	return []Expense{
		{ID: "1", Title: "Lunch at cafe", Amount: decimal.NewFromInt(450), Category: Food, Date: today, Note: "Lunch at cafe"},
		{ID: "2", Title: "Uber to meeting", Amount: decimal.NewFromInt(300), Category: Transport, Date: today, Note: "Uber to meeting"},
		{ID: "3", Title: "EthioTelecom", Amount: decimal.NewFromInt(1200), Category: Internet, Date: today.AddDays(-1), IsRecurring: true, Frequency: Monthly, Note: "EthioTelecom"},
		{ID: "4", Title: "Groceries", Amount: decimal.NewFromInt(800), Category: Food, Date: today.AddDays(-2), Note: "Groceries"},
		{ID: "5", Title: "Apartment Rent", Amount: decimal.NewFromInt(25000), Category: Rent, Date: firstOfMonth, IsRecurring: true, Frequency: Monthly, Note: "Apartment Rent"},
	}
}

// DefaultIncomes returns the demo incomes shown when nobody is signed in.
func DefaultIncomes(now time.Time) []Income {
	today := Today(now)
	firstOfMonth := NewDate(today.Year(), int(today.Month()), 1)
	return []Income{
		{ID: "1", Amount: decimal.NewFromInt(2000), Source: "Retainer Client A", Date: firstOfMonth, Type: Stable},
		{ID: "1b", Amount: decimal.NewFromInt(500), Source: "Maintenance Contract", Date: firstOfMonth, Type: Stable},
		{ID: "2", Amount: decimal.NewFromInt(450), Source: "Upwork Project", Date: today.AddDays(-5), Type: Variable},
		{ID: "3", Amount: decimal.NewFromInt(300), Source: "Consultation", Date: today.AddDays(-10), Type: Variable},
	}
}

// DefaultAssets returns the demo assets shown when nobody is signed in.
func DefaultAssets() []Asset {
	return []Asset{
		{ID: "1", Name: "Emergency Fund", Amount: decimal.NewFromInt(5000), Type: Cash, Currency: USD},
		{ID: "2", Name: "Bitcoin Cold Storage", Amount: decimal.NewFromInt(2500), Type: Crypto, Currency: USD},
		{ID: "3", Name: "Tech ETF", Amount: decimal.NewFromInt(1500), Type: Stock, Currency: USD},
	}
}
