// Package postgres is the remote.Service backend for a shared PostgreSQL
// database.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nomadfinance/internal/core"
	"nomadfinance/internal/remote"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool *pgxpool.Pool
}

var _ remote.Service = (*Store)(nil)

// Connect runs migrations and opens a pool against databaseURL.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RunMigrations applies the embedded schema through the pgx/v5 migrate driver.
func RunMigrations(databaseURL string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateURL swaps the scheme for the one the pgx/v5 migrate driver registers.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) GetAccount(ctx context.Context, id string) (remote.Account, error) {
	var a remote.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, first_name, last_name, password FROM users WHERE id = $1`, id).
		Scan(&a.ID, &a.Username, &a.FirstName, &a.LastName, &a.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return remote.Account{}, remote.ErrNotFound
	}
	if err != nil {
		return remote.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

func (s *Store) UpsertAccount(ctx context.Context, a remote.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, first_name, last_name, password)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			password = EXCLUDED.password,
			updated_at = now()`,
		a.ID, a.Username, a.FirstName, a.LastName, a.Password)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string) ([]remote.ExpenseRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id, title, amount::text, category, date::text, is_recurring, frequency, note
		FROM expenses WHERE user_id = $1
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
	amount, err := numericText(row.Amount)
	if err != nil {
		return remote.ExpenseRow{}, err
	}
	row.ID = uuid.NewString()
	row.UserID = userID
	var stored string
	err = s.pool.QueryRow(ctx, `
		INSERT INTO expenses (id, user_id, title, amount, category, date, is_recurring, frequency, note)
		VALUES ($1::uuid, $2, $3, $4::text::numeric, $5, $6::text::date, $7, $8, $9)
		RETURNING amount::text`,
		row.ID, userID, row.Title, amount, row.Category, row.Date, row.IsRecurring, row.Frequency, row.Note).
		Scan(&stored)
	if err != nil {
		return remote.ExpenseRow{}, fmt.Errorf("insert expense: %w", err)
	}
	row.Amount = core.NumberOf(stored)
	return row, nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.delete(ctx, "expenses", userID, id)
}

func (s *Store) ListIncomes(ctx context.Context, userID string) ([]remote.IncomeRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id, amount::text, source, date::text, type
		FROM incomes WHERE user_id = $1
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
	amount, err := numericText(row.Amount)
	if err != nil {
		return remote.IncomeRow{}, err
	}
	row.ID = uuid.NewString()
	row.UserID = userID
	_, err = s.pool.Exec(ctx, `
		INSERT INTO incomes (id, user_id, amount, source, date, type)
		VALUES ($1::uuid, $2, $3::text::numeric, $4, $5::text::date, $6)`,
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
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id, name, amount::text, type, currency
		FROM assets WHERE user_id = $1
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
	amount, err := numericText(row.Amount)
	if err != nil {
		return remote.AssetRow{}, err
	}
	row.ID = uuid.NewString()
	row.UserID = userID
	_, err = s.pool.Exec(ctx, `
		INSERT INTO assets (id, user_id, name, amount, type, currency)
		VALUES ($1::uuid, $2, $3, $4::text::numeric, $5, $6)`,
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
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, exchange_rate::text, savings_goal_usd::text, recurring_enabled, user_name, monthly_budget::text, theme
		FROM settings WHERE user_id = $1`, userID).
		Scan(&r.UserID, &rate, &goal, &r.RecurringEnabled, &r.UserName, &budget, &r.Theme)
	if errors.Is(err, pgx.ErrNoRows) {
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
	rate, err := numericText(row.ExchangeRate)
	if err != nil {
		return err
	}
	goal, err := numericText(row.SavingsGoalUSD)
	if err != nil {
		return err
	}
	budget, err := numericText(row.MonthlyBudget)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO settings (user_id, exchange_rate, savings_goal_usd, recurring_enabled, user_name, monthly_budget, theme)
		VALUES ($1, $2::text::numeric, $3::text::numeric, $4, $5, $6::text::numeric, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			exchange_rate = EXCLUDED.exchange_rate,
			savings_goal_usd = EXCLUDED.savings_goal_usd,
			recurring_enabled = EXCLUDED.recurring_enabled,
			user_name = EXCLUDED.user_name,
			monthly_budget = EXCLUDED.monthly_budget,
			theme = EXCLUDED.theme,
			updated_at = now()`,
		userID, rate, goal, row.RecurringEnabled, row.UserName, budget, row.Theme)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, table, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, remote.ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1::uuid AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s %s: %w", table, id, remote.ErrNotFound)
	}
	return nil
}

func numericText(n core.Number) (string, error) {
	d, err := n.Decimal()
	if err != nil {
		return "", err
	}
	return d.String(), nil
}
