package views

import (
	"github.com/shopspring/decimal"

	"nomadfinance/internal/core"
)

// ToUSD converts an ETB amount at rate ETB per USD. A non-positive rate
// yields zero.
func ToUSD(amountETB, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return amountETB.Div(rate)
}

// NetWorthUSD sums assets in USD. ETB holdings are converted and debts are
// subtracted.
func NetWorthUSD(assets []core.Asset, rate decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range assets {
		v := a.Amount
		if a.Currency == core.ETB {
			v = ToUSD(v, rate)
		}
		if a.Type == core.Debt {
			v = v.Neg()
		}
		total = total.Add(v)
	}
	return total
}

// MonthlyIncome sums incomes dated in today's month.
func MonthlyIncome(incomes []core.Income, today core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, i := range incomes {
		if i.Date.SameMonth(today) {
			total = total.Add(i.Amount)
		}
	}
	return total
}

// StableIncome sums the Stable incomes of today's month.
func StableIncome(incomes []core.Income, today core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, i := range incomes {
		if i.Type == core.Stable && i.Date.SameMonth(today) {
			total = total.Add(i.Amount)
		}
	}
	return total
}

// BudgetRemaining is the monthly budget (USD) minus this month's spend
// converted to USD. It goes negative once the budget is exceeded.
func BudgetRemaining(expenses []core.Expense, s core.Settings, today core.Date) decimal.Decimal {
	spent := ToUSD(MonthTotal(expenses, today), s.ExchangeRate)
	return s.MonthlyBudget.Sub(spent)
}

// SavingsProgress is net worth as a percentage of the savings goal, capped
// at 100.
func SavingsProgress(assets []core.Asset, s core.Settings) decimal.Decimal {
	if !s.SavingsGoalUSD.IsPositive() {
		return decimal.Zero
	}
	pct := NetWorthUSD(assets, s.ExchangeRate).Div(s.SavingsGoalUSD).Mul(decimal.NewFromInt(100))
	hundred := decimal.NewFromInt(100)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	if pct.IsNegative() {
		return decimal.Zero
	}
	return pct.Round(1)
}

type Overview struct {
	NetWorthUSD      decimal.Decimal `json:"netWorthUSD"`
	MonthlyIncomeUSD decimal.Decimal `json:"monthlyIncomeUSD"`
	StableIncomeUSD  decimal.Decimal `json:"stableIncomeUSD"`
	MonthSpentETB    decimal.Decimal `json:"monthSpentETB"`
	MonthSpentUSD    decimal.Decimal `json:"monthSpentUSD"`
	BudgetRemaining  decimal.Decimal `json:"budgetRemainingUSD"`
	SavingsProgress  decimal.Decimal `json:"savingsProgressPct"`
	Upcoming         []DueItem       `json:"upcoming,omitempty"`
}

// BuildOverview computes the dashboard figures. Incomes are recorded in USD.
func BuildOverview(expenses []core.Expense, incomes []core.Income, assets []core.Asset, s core.Settings, today core.Date) Overview {
	spent := MonthTotal(expenses, today)
	o := Overview{
		NetWorthUSD:      NetWorthUSD(assets, s.ExchangeRate).Round(2),
		MonthlyIncomeUSD: MonthlyIncome(incomes, today),
		StableIncomeUSD:  StableIncome(incomes, today),
		MonthSpentETB:    spent,
		MonthSpentUSD:    ToUSD(spent, s.ExchangeRate).Round(2),
		BudgetRemaining:  BudgetRemaining(expenses, s, today).Round(2),
		SavingsProgress:  SavingsProgress(assets, s),
	}
	if s.RecurringEnabled {
		o.Upcoming = Upcoming(expenses, today)
	}
	return o
}
