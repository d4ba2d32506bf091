// Package views derives the aggregates shown by the mini-app tabs from a
// store snapshot. Everything here is a pure function of its inputs.
package views

import (
	"sort"

	"github.com/shopspring/decimal"

	"nomadfinance/internal/core"
)

// DayGroup is one calendar day of the expense list.
type DayGroup struct {
	Date     core.Date       `json:"date"`
	Label    string          `json:"label"`
	Total    decimal.Decimal `json:"total"`
	IsToday  bool            `json:"isToday"`
	Expenses []core.Expense  `json:"expenses"`
}

// GroupByDay buckets expenses by date, newest day first. Expenses keep their
// input order inside a bucket.
func GroupByDay(expenses []core.Expense, today core.Date) []DayGroup {
	index := map[string]int{}
	var groups []DayGroup
	for _, e := range expenses {
		key := e.Date.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{
				Date:    e.Date,
				Label:   e.Date.Format("Mon, Jan 2"),
				IsToday: IsToday(e.Date, today),
			})
		}
		groups[i].Total = groups[i].Total.Add(e.Amount)
		groups[i].Expenses = append(groups[i].Expenses, e)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[j].Date.Before(groups[i].Date)
	})
	return groups
}

// IsToday compares the canonical text of both days.
func IsToday(day, today core.Date) bool {
	return day.String() == today.String()
}

var categoryIcons = map[core.Category]string{
	core.Food:          "utensils",
	core.Coffee:        "coffee",
	core.Transport:     "car",
	core.Rent:          "home",
	core.Internet:      "wifi",
	core.Entertainment: "coffee",
	core.Other:         "layers",
}

// DefaultIcon is used for categories without a dedicated glyph.
const DefaultIcon = "layers"

func CategoryIcon(c core.Category) string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return DefaultIcon
}

// MonthTotal sums the expenses dated in today's year and month.
func MonthTotal(expenses []core.Expense, today core.Date) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.Date.SameMonth(today) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// FrequencyLabel is the cadence shown under a recurring expense.
func FrequencyLabel(e core.Expense) string {
	if !e.IsRecurring {
		return ""
	}
	if e.Frequency == "" {
		return string(core.Monthly)
	}
	return string(e.Frequency)
}
