package remote

import (
	"fmt"

	"github.com/shopspring/decimal"

	"nomadfinance/internal/core"
)

// Account is a row of the users collection.
type Account struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Rows mirror the service columns. Numeric columns are kept as core.Number
// because services may send them as text.
type (
	ExpenseRow struct {
		ID          string      `json:"id"`
		UserID      string      `json:"user_id"`
		Title       string      `json:"title"`
		Amount      core.Number `json:"amount"`
		Category    string      `json:"category"`
		Date        string      `json:"date"`
		IsRecurring bool        `json:"is_recurring"`
		Frequency   string      `json:"frequency,omitempty"`
		Note        string      `json:"note,omitempty"`
	}

	IncomeRow struct {
		ID     string      `json:"id"`
		UserID string      `json:"user_id"`
		Amount core.Number `json:"amount"`
		Source string      `json:"source"`
		Date   string      `json:"date"`
		Type   string      `json:"type"`
	}

	AssetRow struct {
		ID       string      `json:"id"`
		UserID   string      `json:"user_id"`
		Name     string      `json:"name"`
		Amount   core.Number `json:"amount"`
		Type     string      `json:"type"`
		Currency string      `json:"currency"`
	}

	SettingsRow struct {
		UserID           string      `json:"user_id"`
		ExchangeRate     core.Number `json:"exchange_rate"`
		SavingsGoalUSD   core.Number `json:"savings_goal_usd"`
		RecurringEnabled bool        `json:"recurring_enabled"`
		UserName         string      `json:"user_name"`
		MonthlyBudget    core.Number `json:"monthly_budget"`
		Theme            string      `json:"theme"`
	}
)

func ExpenseRowFrom(e core.Expense) ExpenseRow {
	return ExpenseRow{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      core.NumberOf(e.Amount),
		Category:    string(e.Category),
		Date:        e.Date.String(),
		IsRecurring: e.IsRecurring,
		Frequency:   string(e.Frequency),
		Note:        e.Note,
	}
}

// Expense converts the row, coercing the amount and parsing the date.
func (r ExpenseRow) Expense() (core.Expense, error) {
	amount, err := r.Amount.Decimal()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s amount: %w", r.ID, err)
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s date %q: %w", r.ID, r.Date, err)
	}
	return core.Expense{
		ID:          r.ID,
		Title:       r.Title,
		Amount:      amount,
		Category:    core.Category(r.Category),
		Date:        date,
		IsRecurring: r.IsRecurring,
		Frequency:   core.Frequency(r.Frequency),
		Note:        r.Note,
	}, nil
}

func IncomeRowFrom(i core.Income) IncomeRow {
	return IncomeRow{
		ID:     i.ID,
		Amount: core.NumberOf(i.Amount),
		Source: i.Source,
		Date:   i.Date.String(),
		Type:   string(i.Type),
	}
}

func (r IncomeRow) Income() (core.Income, error) {
	amount, err := r.Amount.Decimal()
	if err != nil {
		return core.Income{}, fmt.Errorf("income %s amount: %w", r.ID, err)
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Income{}, fmt.Errorf("income %s date %q: %w", r.ID, r.Date, err)
	}
	return core.Income{
		ID:     r.ID,
		Amount: amount,
		Source: r.Source,
		Date:   date,
		Type:   core.IncomeType(r.Type),
	}, nil
}

func AssetRowFrom(a core.Asset) AssetRow {
	return AssetRow{
		ID:       a.ID,
		Name:     a.Name,
		Amount:   core.NumberOf(a.Amount),
		Type:     string(a.Type),
		Currency: string(a.Currency),
	}
}

func (r AssetRow) Asset() (core.Asset, error) {
	amount, err := r.Amount.Decimal()
	if err != nil {
		return core.Asset{}, fmt.Errorf("asset %s amount: %w", r.ID, err)
	}
	return core.Asset{
		ID:       r.ID,
		Name:     r.Name,
		Amount:   amount,
		Type:     core.AssetType(r.Type),
		Currency: core.Currency(r.Currency),
	}, nil
}

func SettingsRowFrom(s core.Settings) SettingsRow {
	return SettingsRow{
		ExchangeRate:     core.NumberOf(s.ExchangeRate),
		SavingsGoalUSD:   core.NumberOf(s.SavingsGoalUSD),
		RecurringEnabled: s.RecurringEnabled,
		UserName:         s.UserName,
		MonthlyBudget:    core.NumberOf(s.MonthlyBudget),
		Theme:            string(s.Theme),
	}
}

// Settings converts the row. Missing numeric columns fall back to the
// defaults rather than zero.
func (r SettingsRow) Settings() (core.Settings, error) {
	s := core.DefaultSettings()
	fields := []struct {
		name string
		n    core.Number
		dst  *decimal.Decimal
	}{
		{"exchange_rate", r.ExchangeRate, &s.ExchangeRate},
		{"savings_goal_usd", r.SavingsGoalUSD, &s.SavingsGoalUSD},
		{"monthly_budget", r.MonthlyBudget, &s.MonthlyBudget},
	}
	for _, f := range fields {
		if f.n.Raw() == nil {
			continue
		}
		d, err := f.n.Decimal()
		if err != nil {
			return core.Settings{}, fmt.Errorf("settings %s: %w", f.name, err)
		}
		*f.dst = d
	}
	s.RecurringEnabled = r.RecurringEnabled
	if r.UserName != "" {
		s.UserName = r.UserName
	}
	if r.Theme != "" {
		s.Theme = core.Theme(r.Theme)
	}
	return s, nil
}
