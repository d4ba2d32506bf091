// Package local keeps every collection in memory and, when given a path,
// mirrors it to a single JSON file. It backs offline demo mode and tests.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"nomadfinance/internal/remote"
)

// snapshot is the on-disk layout. Keys are fixed so existing cache files keep
// loading across releases.
type snapshot struct {
	Users    map[string]remote.Account     `json:"users"`
	Expenses []remote.ExpenseRow           `json:"expenses"`
	Incomes  []remote.IncomeRow            `json:"incomes"`
	Assets   []remote.AssetRow             `json:"assets"`
	Settings map[string]remote.SettingsRow `json:"settings"`
}

type Store struct {
	mu   sync.Mutex
	path string
	data snapshot
}

var _ remote.Service = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: emptySnapshot()}
}

// Open loads path if it exists. An empty path behaves like New.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: emptySnapshot()}
	if path == "" {
		return s, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local cache: %w", err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("decode local cache %s: %w", path, err)
	}
	if s.data.Users == nil {
		s.data.Users = map[string]remote.Account{}
	}
	if s.data.Settings == nil {
		s.data.Settings = map[string]remote.SettingsRow{}
	}
	return s, nil
}

func emptySnapshot() snapshot {
	return snapshot{
		Users:    map[string]remote.Account{},
		Settings: map[string]remote.SettingsRow{},
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes the snapshot atomically via a temp file.
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local cache: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write local cache: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) GetAccount(_ context.Context, id string) (remote.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.Users[id]
	if !ok {
		return remote.Account{}, remote.ErrNotFound
	}
	return a, nil
}

func (s *Store) UpsertAccount(_ context.Context, a remote.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Users[a.ID] = a
	return s.flushLocked()
}

func (s *Store) ListExpenses(_ context.Context, userID string) ([]remote.ExpenseRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := scoped(s.data.Expenses, func(r remote.ExpenseRow) bool { return r.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) InsertExpense(_ context.Context, userID string, row remote.ExpenseRow) (remote.ExpenseRow, error) {
	if _, err := row.Amount.Decimal(); err != nil {
		return remote.ExpenseRow{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = uuid.NewString()
	row.UserID = userID
	s.data.Expenses = append([]remote.ExpenseRow{row}, s.data.Expenses...)
	return row, s.flushLocked()
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.data.Expenses, ok = without(s.data.Expenses, func(r remote.ExpenseRow) bool { return r.ID == id && r.UserID == userID })
	if !ok {
		return fmt.Errorf("delete expense %s: %w", id, remote.ErrNotFound)
	}
	return s.flushLocked()
}

func (s *Store) ListIncomes(_ context.Context, userID string) ([]remote.IncomeRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := scoped(s.data.Incomes, func(r remote.IncomeRow) bool { return r.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) InsertIncome(_ context.Context, userID string, row remote.IncomeRow) (remote.IncomeRow, error) {
	if _, err := row.Amount.Decimal(); err != nil {
		return remote.IncomeRow{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = uuid.NewString()
	row.UserID = userID
	s.data.Incomes = append([]remote.IncomeRow{row}, s.data.Incomes...)
	return row, s.flushLocked()
}

func (s *Store) DeleteIncome(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.data.Incomes, ok = without(s.data.Incomes, func(r remote.IncomeRow) bool { return r.ID == id && r.UserID == userID })
	if !ok {
		return fmt.Errorf("delete income %s: %w", id, remote.ErrNotFound)
	}
	return s.flushLocked()
}

func (s *Store) ListAssets(_ context.Context, userID string) ([]remote.AssetRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scoped(s.data.Assets, func(r remote.AssetRow) bool { return r.UserID == userID }), nil
}

func (s *Store) InsertAsset(_ context.Context, userID string, row remote.AssetRow) (remote.AssetRow, error) {
	if _, err := row.Amount.Decimal(); err != nil {
		return remote.AssetRow{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID = uuid.NewString()
	row.UserID = userID
	s.data.Assets = append([]remote.AssetRow{row}, s.data.Assets...)
	return row, s.flushLocked()
}

func (s *Store) DeleteAsset(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.data.Assets, ok = without(s.data.Assets, func(r remote.AssetRow) bool { return r.ID == id && r.UserID == userID })
	if !ok {
		return fmt.Errorf("delete asset %s: %w", id, remote.ErrNotFound)
	}
	return s.flushLocked()
}

func (s *Store) GetSettings(_ context.Context, userID string) (remote.SettingsRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.data.Settings[userID]
	if !ok {
		return remote.SettingsRow{}, remote.ErrNotFound
	}
	return row, nil
}

func (s *Store) UpsertSettings(_ context.Context, userID string, row remote.SettingsRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.UserID = userID
	s.data.Settings[userID] = row
	return s.flushLocked()
}

func scoped[T any](rows []T, keep func(T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func without[T any](rows []T, match func(T) bool) ([]T, bool) {
	for i, r := range rows {
		if match(r) {
			return append(rows[:i:i], rows[i+1:]...), true
		}
	}
	return rows, false
}
