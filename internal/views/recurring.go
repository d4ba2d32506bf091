package views

import (
	"fmt"
	"sort"
	"time"

	"nomadfinance/internal/core"
)

// DueScheduler computes the next occurrence of a recurring expense.
// Each frequency has its own implementation.
type DueScheduler interface {
	// NextDue returns the first occurrence on or after today for a series
	// anchored at start.
	NextDue(start, today core.Date) core.Date
}

type DailyScheduler struct{}

func (DailyScheduler) NextDue(start, today core.Date) core.Date {
	if today.Before(start) {
		return start
	}
	return today
}

type WeeklyScheduler struct{}

// NextDue keeps the weekday of start.
func (WeeklyScheduler) NextDue(start, today core.Date) core.Date {
	if today.Before(start) {
		return start
	}
	days := int(today.Sub(start.Time).Hours() / 24)
	offset := (7 - days%7) % 7
	return today.AddDays(offset)
}

type MonthlyScheduler struct{}

// NextDue keeps the day of month of start, clamped to shorter months.
func (MonthlyScheduler) NextDue(start, today core.Date) core.Date {
	if today.Before(start) {
		return start
	}
	due := clampedDay(today.Year(), today.Month(), start.Day())
	if due.Before(today) {
		next := today.AddDays(-today.Day()+1).Time.AddDate(0, 1, 0)
		due = clampedDay(next.Year(), next.Month(), start.Day())
	}
	return due
}

func clampedDay(year int, month time.Month, day int) core.Date {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return core.NewDate(year, int(month), day)
}

var dueSchedulers = map[core.Frequency]DueScheduler{
	core.Daily:   DailyScheduler{},
	core.Weekly:  WeeklyScheduler{},
	core.Monthly: MonthlyScheduler{},
}

// SchedulerFor returns the scheduler for f.
func SchedulerFor(f core.Frequency) (DueScheduler, error) {
	s, ok := dueSchedulers[f]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %q", f)
	}
	return s, nil
}

// DueItem is an upcoming occurrence of a recurring expense.
type DueItem struct {
	Expense core.Expense   `json:"expense"`
	Due     core.Date      `json:"due"`
	Cadence core.Frequency `json:"cadence"`
}

// Upcoming lists the next occurrence of every recurring expense, soonest
// first. Recurring expenses without a frequency are treated as monthly.
func Upcoming(expenses []core.Expense, today core.Date) []DueItem {
	var out []DueItem
	for _, e := range expenses {
		if !e.IsRecurring {
			continue
		}
		freq := core.Frequency(FrequencyLabel(e))
		s, err := SchedulerFor(freq)
		if err != nil {
			continue
		}
		out = append(out, DueItem{Expense: e, Due: s.NextDue(e.Date, today), Cadence: freq})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Due.Before(out[j].Due)
	})
	return out
}
