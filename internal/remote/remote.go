// Package remote declares the collaborators that persist accounts and finance
// rows. Backends live under internal/storage.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by point lookups when the row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable reports a service that cannot be reached.
	ErrUnavailable = errors.New("service unavailable")
)

// Collection names used on the wire, in logs and in events.
const (
	CollectionExpenses = "expenses"
	CollectionIncomes  = "incomes"
	CollectionAssets   = "assets"
	CollectionSettings = "settings"
	CollectionUsers    = "users"
)

// AccountService is the row store for user accounts, keyed by the stringified
// host identity.
type AccountService interface {
	GetAccount(ctx context.Context, id string) (Account, error)
	UpsertAccount(ctx context.Context, a Account) error
}

// DataService stores the four per-user finance collections. Every call is
// scoped by userID.
type DataService interface {
	// ListExpenses and ListIncomes return rows ordered by date descending.
	ListExpenses(ctx context.Context, userID string) ([]ExpenseRow, error)
	ListIncomes(ctx context.Context, userID string) ([]IncomeRow, error)
	ListAssets(ctx context.Context, userID string) ([]AssetRow, error)

	// Insert* store the row and return it with the service-assigned ID.
	InsertExpense(ctx context.Context, userID string, row ExpenseRow) (ExpenseRow, error)
	InsertIncome(ctx context.Context, userID string, row IncomeRow) (IncomeRow, error)
	InsertAsset(ctx context.Context, userID string, row AssetRow) (AssetRow, error)

	DeleteExpense(ctx context.Context, userID, id string) error
	DeleteIncome(ctx context.Context, userID, id string) error
	DeleteAsset(ctx context.Context, userID, id string) error

	GetSettings(ctx context.Context, userID string) (SettingsRow, error)
	UpsertSettings(ctx context.Context, userID string, row SettingsRow) error
}

// Service bundles both collaborators behind one connection.
type Service interface {
	AccountService
	DataService
	Close() error
}
