package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"nomadfinance/internal/core"
	"nomadfinance/internal/remote"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "finance.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetAccount(ctx, "42"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("GetAccount on empty db = %v, want ErrNotFound", err)
	}

	acc := remote.Account{ID: "42", Username: "abebe", FirstName: "Abebe", Password: "abc123"}
	if err := s.UpsertAccount(ctx, acc); err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}
	acc.LastName = "Bikila"
	if err := s.UpsertAccount(ctx, acc); err != nil {
		t.Fatalf("second UpsertAccount: %v", err)
	}

	got, err := s.GetAccount(ctx, "42")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got != acc {
		t.Errorf("GetAccount = %+v, want %+v", got, acc)
	}
}

func TestExpensesAreScopedAndOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insert := func(user, title, date string, amount int64) remote.ExpenseRow {
		t.Helper()
		row, err := s.InsertExpense(ctx, user, remote.ExpenseRow{
			Title: title, Amount: core.NumberOf(amount), Category: "Food", Date: date,
		})
		if err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
		if row.ID == "" || row.UserID != user {
			t.Fatalf("insert returned %+v", row)
		}
		return row
	}

	insert("a", "older", "2024-01-09", 800)
	newer := insert("a", "newer", "2024-01-10", 450)
	insert("b", "other user", "2024-01-11", 1)

	rows, err := s.ListExpenses(ctx, "a")
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Title != "newer" || rows[1].Title != "older" {
		t.Errorf("rows not ordered by date desc: %q, %q", rows[0].Title, rows[1].Title)
	}
	if raw, ok := rows[0].Amount.Raw().(string); !ok || raw != "450.00" {
		t.Errorf("amount raw = %#v, want text \"450.00\"", rows[0].Amount.Raw())
	}

	if err := s.DeleteExpense(ctx, "b", newer.ID); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("cross-user delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteExpense(ctx, "a", newer.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	rows, _ = s.ListExpenses(ctx, "a")
	if len(rows) != 1 {
		t.Errorf("after delete got %d rows, want 1", len(rows))
	}
}

func TestIncomesAndAssets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inc, err := s.InsertIncome(ctx, "a", remote.IncomeRow{Amount: core.NumberOf("2000"), Source: "Retainer", Date: "2024-01-01", Type: "Stable"})
	if err != nil {
		t.Fatalf("InsertIncome: %v", err)
	}
	if err := s.DeleteIncome(ctx, "a", inc.ID); err != nil {
		t.Errorf("DeleteIncome: %v", err)
	}

	if _, err := s.InsertAsset(ctx, "a", remote.AssetRow{Name: "Fund", Amount: core.NumberOf(5000), Type: "Cash", Currency: "USD"}); err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}
	assets, err := s.ListAssets(ctx, "a")
	if err != nil || len(assets) != 1 {
		t.Fatalf("ListAssets = %v, %v", assets, err)
	}
	a, err := assets[0].Asset()
	if err != nil || !a.Amount.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("asset = %+v, %v", a, err)
	}

	if _, err := s.InsertAsset(ctx, "a", remote.AssetRow{Name: "Bad", Amount: core.NumberOf("n/a")}); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestSettingsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSettings(ctx, "a"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("GetSettings = %v, want ErrNotFound", err)
	}

	want := core.DefaultSettings()
	if err := s.UpsertSettings(ctx, "a", remote.SettingsRowFrom(want)); err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}
	want.Theme = core.Dark
	if err := s.UpsertSettings(ctx, "a", remote.SettingsRowFrom(want)); err != nil {
		t.Fatalf("second UpsertSettings: %v", err)
	}

	row, err := s.GetSettings(ctx, "a")
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	got, err := row.Settings()
	if err != nil {
		t.Fatalf("Settings(): %v", err)
	}
	if got.Theme != core.Dark || !got.ExchangeRate.Equal(want.ExchangeRate) || !got.RecurringEnabled {
		t.Errorf("settings = %+v", got)
	}
}
