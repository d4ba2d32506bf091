package finance

import (
	"slices"

	"nomadfinance/internal/core"
)

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	UserID   string                `json:"userId,omitempty"`
	SignedIn bool                  `json:"signedIn"`
	Expenses []Entry[core.Expense] `json:"expenses"`
	Incomes  []Entry[core.Income]  `json:"incomes"`
	Assets   []Entry[core.Asset]   `json:"assets"`
	Settings core.Settings         `json:"settings"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		UserID:   s.userID,
		SignedIn: s.signedIn,
		Expenses: nonNil(slices.Clone(s.expenses)),
		Incomes:  nonNil(slices.Clone(s.incomes)),
		Assets:   nonNil(slices.Clone(s.assets)),
		Settings: s.settings,
	}
}

// Settings returns the current settings.
func (s *Store) Settings() core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (snap Snapshot) ExpenseRecords() []core.Expense { return Records(snap.Expenses) }
func (snap Snapshot) IncomeRecords() []core.Income   { return Records(snap.Incomes) }
func (snap Snapshot) AssetRecords() []core.Asset     { return Records(snap.Assets) }

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
