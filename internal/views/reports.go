package views

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"nomadfinance/internal/core"
)

type CategoryTotal struct {
	Category core.Category   `json:"category"`
	Label    string          `json:"label"`
	Icon     string          `json:"icon"`
	Total    decimal.Decimal `json:"total"`
}

// CategoryTotals sums lifetime spend per catalog category. Categories with no
// spend are left out; ties keep catalog order.
func CategoryTotals(expenses []core.Expense) []CategoryTotal {
	sums := map[core.Category]decimal.Decimal{}
	for _, e := range expenses {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}

	var out []CategoryTotal
	for _, opt := range core.Categories() {
		total := sums[opt.Value]
		if !total.IsPositive() {
			continue
		}
		out = append(out, CategoryTotal{Category: opt.Value, Label: opt.Label, Icon: CategoryIcon(opt.Value), Total: total})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out
}

type Period string

const (
	Week  Period = "week"
	Month Period = "month"
)

// ParsePeriod accepts "week" or "month". Empty means week.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "week", "Week", "":
		return Week, nil
	case "month", "Month":
		return Month, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Days is the length of the trailing window.
func (p Period) Days() int {
	if p == Month {
		return 30
	}
	return 7
}

type TrendPoint struct {
	Date  core.Date       `json:"date"`
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// Trend returns one point per day for the trailing window ending today,
// oldest first. Days without spend are zero.
func Trend(expenses []core.Expense, p Period, today core.Date) []TrendPoint {
	byDay := map[string]decimal.Decimal{}
	for _, e := range expenses {
		byDay[e.Date.String()] = byDay[e.Date.String()].Add(e.Amount)
	}

	n := p.Days()
	points := make([]TrendPoint, n)
	for i := 0; i < n; i++ {
		day := today.AddDays(i - (n - 1))
		label := strconv.Itoa(day.Day())
		if p == Week {
			label = day.Format("Mon")
		}
		points[i] = TrendPoint{Date: day, Label: label, Total: byDay[day.String()]}
	}
	return points
}

func LifetimeTotal(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// AverageDaily divides the lifetime total by the number of distinct days with
// spend, or by one when there are none.
func AverageDaily(expenses []core.Expense) decimal.Decimal {
	days := map[string]struct{}{}
	for _, e := range expenses {
		days[e.Date.String()] = struct{}{}
	}
	n := int64(len(days))
	if n == 0 {
		n = 1
	}
	return LifetimeTotal(expenses).Div(decimal.NewFromInt(n))
}

// Report bundles everything the reports tab shows.
type Report struct {
	Period       Period          `json:"period"`
	Categories   []CategoryTotal `json:"categories"`
	Trend        []TrendPoint    `json:"trend"`
	TotalSpent   decimal.Decimal `json:"totalSpent"`
	AverageDaily decimal.Decimal `json:"averageDaily"`
}

func BuildReport(expenses []core.Expense, p Period, today core.Date) Report {
	return Report{
		Period:       p,
		Categories:   CategoryTotals(expenses),
		Trend:        Trend(expenses, p, today),
		TotalSpent:   LifetimeTotal(expenses),
		AverageDaily: AverageDaily(expenses).Round(0),
	}
}
