package finance

import (
	"context"

	"nomadfinance/internal/core"
	"nomadfinance/internal/remote"
)

// kind binds one record collection to its slot in the store and its calls on
// the data service.
type kind[T, R any] struct {
	name    string
	entries func(*Store) *[]Entry[T]
	setID   func(*T, string)
	toRow   func(T) R
	fromRow func(R) (T, error)
	rowID   func(R) string
	list    func(remote.DataService, context.Context, string) ([]R, error)
	insert  func(remote.DataService, context.Context, string, R) (R, error)
	delete  func(remote.DataService, context.Context, string, string) error
}

// key scopes a record ID to the collection.
func (k kind[T, R]) key(id string) string {
	return k.name + "/" + id
}

var expenses = kind[core.Expense, remote.ExpenseRow]{
	name:    remote.CollectionExpenses,
	entries: func(s *Store) *[]Entry[core.Expense] { return &s.expenses },
	setID:   func(e *core.Expense, id string) { e.ID = id },
	toRow:   remote.ExpenseRowFrom,
	fromRow: remote.ExpenseRow.Expense,
	rowID:   func(r remote.ExpenseRow) string { return r.ID },
	list:    remote.DataService.ListExpenses,
	insert:  remote.DataService.InsertExpense,
	delete:  remote.DataService.DeleteExpense,
}

var incomes = kind[core.Income, remote.IncomeRow]{
	name:    remote.CollectionIncomes,
	entries: func(s *Store) *[]Entry[core.Income] { return &s.incomes },
	setID:   func(i *core.Income, id string) { i.ID = id },
	toRow:   remote.IncomeRowFrom,
	fromRow: remote.IncomeRow.Income,
	rowID:   func(r remote.IncomeRow) string { return r.ID },
	list:    remote.DataService.ListIncomes,
	insert:  remote.DataService.InsertIncome,
	delete:  remote.DataService.DeleteIncome,
}

var assets = kind[core.Asset, remote.AssetRow]{
	name:    remote.CollectionAssets,
	entries: func(s *Store) *[]Entry[core.Asset] { return &s.assets },
	setID:   func(a *core.Asset, id string) { a.ID = id },
	toRow:   remote.AssetRowFrom,
	fromRow: remote.AssetRow.Asset,
	rowID:   func(r remote.AssetRow) string { return r.ID },
	list:    remote.DataService.ListAssets,
	insert:  remote.DataService.InsertAsset,
	delete:  remote.DataService.DeleteAsset,
}
