// Package sqlite is the default remote.Service backend, an embedded SQLite
// database. Amount columns are stored as text and handed back as-is, so
// callers coerce them like any other remote row.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"nomadfinance/internal/core"
	"nomadfinance/internal/remote"
)

type Store struct {
	db *sql.DB
}

var _ remote.Service = (*Store)(nil)

// Open creates the database file if needed and migrates it.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps SQLITE_BUSY away under concurrent store reloads.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) GetAccount(ctx context.Context, id string) (remote.Account, error) {
	var a remote.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, first_name, last_name, password FROM users WHERE id = ?`, id).
		Scan(&a.ID, &a.Username, &a.FirstName, &a.LastName, &a.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.Account{}, remote.ErrNotFound
	}
	if err != nil {
		return remote.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

func (s *Store) UpsertAccount(ctx context.Context, a remote.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name, password)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			password = excluded.password,
			updated_at = CURRENT_TIMESTAMP`,
		a.ID, a.Username, a.FirstName, a.LastName, a.Password)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string) ([]remote.ExpenseRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, amount, category, date, is_recurring, frequency, note
		FROM expenses WHERE user_id = ?
		ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []remote.ExpenseRow
	for rows.Next() {
		var r remote.ExpenseRow
		var amount string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &amount, &r.Category, &r.Date, &r.IsRecurring, &r.Frequency, &r.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		r.Amount = core.NumberOf(amount)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertExpense(ctx context.Context, userID string, row remote.ExpenseRow) (remote.ExpenseRow, error) {
	amount, err := amountText(row.Amount)
	if err != nil {
		return remote.ExpenseRow{}, err
	}
	row.ID = uuid.NewString()
	row.UserID = userID
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, title, amount, category, date, is_recurring, frequency, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, userID, row.Title, amount, row.Category, row.Date, row.IsRecurring, row.Frequency, row.Note)
	if err != nil {
		return remote.ExpenseRow{}, fmt.Errorf("insert expense: %w", err)
	}
	row.Amount = core.NumberOf(amount)
	return row, nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.delete(ctx, "expenses", userID, id)
}

func (s *Store) ListIncomes(ctx context.Context, userID string) ([]remote.IncomeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, source, date, type
		FROM incomes WHERE user_id = ?
		ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []remote.IncomeRow
	for rows.Next() {
		var r remote.IncomeRow
		var amount string
		if err := rows.Scan(&r.ID, &r.UserID, &amount, &r.Source, &r.Date, &r.Type); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		r.Amount = core.NumberOf(amount)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertIncome(ctx context.Context, userID string, row remote.IncomeRow) (remote.IncomeRow, error) {
	amount, err := amountText(row.Amount)
	if err != nil {
		return remote.IncomeRow{}, err
	}
	row.ID = uuid.NewString()
	row.UserID = userID
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO incomes (id, user_id, amount, source, date, type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, userID, amount, row.Source, row.Date, row.Type)
	if err != nil {
		return remote.IncomeRow{}, fmt.Errorf("insert income: %w", err)
	}
	row.Amount = core.NumberOf(amount)
	return row, nil
}

func (s *Store) DeleteIncome(ctx context.Context, userID, id string) error {
	return s.delete(ctx, "incomes", userID, id)
}

func (s *Store) ListAssets(ctx context.Context, userID string) ([]remote.AssetRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, amount, type, currency
		FROM assets WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []remote.AssetRow
	for rows.Next() {
		var r remote.AssetRow
		var amount string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &amount, &r.Type, &r.Currency); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		r.Amount = core.NumberOf(amount)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertAsset(ctx context.Context, userID string, row remote.AssetRow) (remote.AssetRow, error) {
	amount, err := amountText(row.Amount)
	if err != nil {
		return remote.AssetRow{}, err
	}
	row.ID = uuid.NewString()
	row.UserID = userID
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assets (id, user_id, name, amount, type, currency)
		VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, userID, row.Name, amount, row.Type, row.Currency)
	if err != nil {
		return remote.AssetRow{}, fmt.Errorf("insert asset: %w", err)
	}
	row.Amount = core.NumberOf(amount)
	return row, nil
}

func (s *Store) DeleteAsset(ctx context.Context, userID, id string) error {
	return s.delete(ctx, "assets", userID, id)
}

func (s *Store) GetSettings(ctx context.Context, userID string) (remote.SettingsRow, error) {
	var r remote.SettingsRow
	var rate, goal, budget string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, exchange_rate, savings_goal_usd, recurring_enabled, user_name, monthly_budget, theme
		FROM settings WHERE user_id = ?`, userID).
		Scan(&r.UserID, &rate, &goal, &r.RecurringEnabled, &r.UserName, &budget, &r.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.SettingsRow{}, remote.ErrNotFound
	}
	if err != nil {
		return remote.SettingsRow{}, fmt.Errorf("get settings: %w", err)
	}
	r.ExchangeRate = core.NumberOf(rate)
	r.SavingsGoalUSD = core.NumberOf(goal)
	r.MonthlyBudget = core.NumberOf(budget)
	return r, nil
}

func (s *Store) UpsertSettings(ctx context.Context, userID string, row remote.SettingsRow) error {
	rate, err := numericText(row.ExchangeRate, 4)
	if err != nil {
		return err
	}
	goal, err := amountText(row.SavingsGoalUSD)
	if err != nil {
		return err
	}
	budget, err := amountText(row.MonthlyBudget)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, exchange_rate, savings_goal_usd, recurring_enabled, user_name, monthly_budget, theme)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			exchange_rate = excluded.exchange_rate,
			savings_goal_usd = excluded.savings_goal_usd,
			recurring_enabled = excluded.recurring_enabled,
			user_name = excluded.user_name,
			monthly_budget = excluded.monthly_budget,
			theme = excluded.theme,
			updated_at = CURRENT_TIMESTAMP`,
		userID, rate, goal, row.RecurringEnabled, row.UserName, budget, row.Theme)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// delete removes one row; table is always one of the fixed collection names.
func (s *Store) delete(ctx context.Context, table, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete %s %s: %w", table, id, remote.ErrNotFound)
	}
	return nil
}

func amountText(n core.Number) (string, error) {
	return numericText(n, 2)
}

func numericText(n core.Number, places int32) (string, error) {
	d, err := n.Decimal()
	if err != nil {
		return "", err
	}
	return d.StringFixed(places), nil
}
