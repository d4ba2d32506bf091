package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Food          Category = "Food"
	Coffee        Category = "Coffee"
	Item          Category = "Item"
	Transport     Category = "Transport"
	Rent          Category = "Rent"
	Internet      Category = "Internet"
	Entertainment Category = "Entertainment"
	Other         Category = "Other"
)

const (
	Daily   Frequency = "Daily"
	Weekly  Frequency = "Weekly"
	Monthly Frequency = "Monthly"
)

const (
	Stable   IncomeType = "Stable"
	Variable IncomeType = "Variable"
)

const (
	Cash       AssetType = "Cash"
	Crypto     AssetType = "Crypto"
	Stock      AssetType = "Stock"
	RealEstate AssetType = "Real Estate"
	Debt       AssetType = "Debt"
	OtherAsset AssetType = "Other"
)

const (
	USD Currency = "USD"
	ETB Currency = "ETB"
)

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

type (
	// Category is open-ended: values outside the catalog are kept as-is.
	Category   string
	Frequency  string
	IncomeType string
	AssetType  string
	Currency   string
	Theme      string

	// CategoryOption is a catalog entry shown in pickers and reports.
	CategoryOption struct {
		Label string
		Value Category
	}

	Expense struct {
		ID          string          `json:"id"`
		Title       string          `json:"title"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		Date        Date            `json:"date"`
		IsRecurring bool            `json:"isRecurring"`
		Frequency   Frequency       `json:"frequency,omitempty"`
		Note        string          `json:"note,omitempty"`
	}

	Income struct {
		ID     string          `json:"id"`
		Amount decimal.Decimal `json:"amount"`
		Source string          `json:"source"`
		Date   Date            `json:"date"`
		Type   IncomeType      `json:"type"`
	}

	Asset struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Amount   decimal.Decimal `json:"amount"`
		Type     AssetType       `json:"type"`
		Currency Currency        `json:"currency"`
	}

	// Settings is the per-user singleton.
	Settings struct {
		ExchangeRate     decimal.Decimal `json:"exchangeRate"` // ETB per 1 USD
		SavingsGoalUSD   decimal.Decimal `json:"savingsGoalUSD"`
		RecurringEnabled bool            `json:"recurringEnabled"`
		UserName         string          `json:"userName"`
		MonthlyBudget    decimal.Decimal `json:"monthly_budget"`
		Theme            Theme           `json:"theme"`
	}

	// SettingsPatch is a partial settings update; nil fields are left unchanged.
	SettingsPatch struct {
		ExchangeRate     *decimal.Decimal `json:"exchangeRate,omitempty"`
		SavingsGoalUSD   *decimal.Decimal `json:"savingsGoalUSD,omitempty"`
		RecurringEnabled *bool            `json:"recurringEnabled,omitempty"`
		UserName         *string          `json:"userName,omitempty"`
		MonthlyBudget    *decimal.Decimal `json:"monthly_budget,omitempty"`
		Theme            *Theme           `json:"theme,omitempty"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyTitle          = errors.New("empty title")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrEmptySource         = errors.New("empty income source")
	ErrInvalidIncomeType   = errors.New("invalid income type")
	ErrEmptyName           = errors.New("empty asset name")
	ErrInvalidAssetType    = errors.New("invalid asset type")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidExchangeRate = errors.New("exchange rate must be positive")
	ErrInvalidTheme        = errors.New("invalid theme")
)

var categoryCatalog = []CategoryOption{
	{Label: "Food", Value: Food},
	{Label: "Coffee", Value: Coffee},
	{Label: "Item", Value: Item},
	{Label: "Transport", Value: Transport},
	{Label: "Rent", Value: Rent},
	{Label: "Internet", Value: Internet},
	{Label: "Fun", Value: Entertainment},
	{Label: "Other", Value: Other},
}

// Categories returns the category catalog in display order.
func Categories() []CategoryOption {
	return append([]CategoryOption(nil), categoryCatalog...)
}

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	default:
		return false
	}
}

func (t IncomeType) IsValid() bool {
	return t == Stable || t == Variable
}

func (t AssetType) IsValid() bool {
	switch t {
	case Cash, Crypto, Stock, RealEstate, Debt, OtherAsset:
		return true
	default:
		return false
	}
}

func (c Currency) IsValid() bool {
	return c == USD || c == ETB
}

func (t Theme) IsValid() bool {
	return t == Light || t == Dark
}

func validateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := validateAmount(e.Amount); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if strings.TrimSpace(string(e.Category)) == "" {
		return ErrEmptyCategory
	}
	if e.Frequency != "" && !e.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	return nil
}

func (i Income) Validate() error {
	if err := validateAmount(i.Amount); err != nil {
		return err
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if !i.Type.IsValid() {
		return ErrInvalidIncomeType
	}
	return nil
}

func (a Asset) Validate() error {
	if err := validateAmount(a.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.IsValid() {
		return ErrInvalidAssetType
	}
	if !a.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	return nil
}

func (s Settings) Validate() error {
	if !s.ExchangeRate.IsPositive() {
		return ErrInvalidExchangeRate
	}
	if s.SavingsGoalUSD.IsNegative() || s.MonthlyBudget.IsNegative() {
		return ErrInvalidAmount
	}
	if s.Theme != "" && !s.Theme.IsValid() {
		return ErrInvalidTheme
	}
	return nil
}

// Merge applies the non-nil fields of p on top of s.
func (s Settings) Merge(p SettingsPatch) Settings {
	if p.ExchangeRate != nil {
		s.ExchangeRate = *p.ExchangeRate
	}
	if p.SavingsGoalUSD != nil {
		s.SavingsGoalUSD = *p.SavingsGoalUSD
	}
	if p.RecurringEnabled != nil {
		s.RecurringEnabled = *p.RecurringEnabled
	}
	if p.UserName != nil {
		s.UserName = *p.UserName
	}
	if p.MonthlyBudget != nil {
		s.MonthlyBudget = *p.MonthlyBudget
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	return s
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.ExchangeRate == nil && p.SavingsGoalUSD == nil && p.RecurringEnabled == nil &&
		p.UserName == nil && p.MonthlyBudget == nil && p.Theme == nil
}
