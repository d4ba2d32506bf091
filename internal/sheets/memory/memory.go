// Package memory is an in-process exporter used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"nomadfinance/internal/sheets"
)

var _ sheets.Exporter = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows []sheets.Row
	err  error
}

func New() *Store {
	return &Store{}
}

// FailWith makes subsequent appends return err; nil restores normal behavior.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// AppendRows stores the rows and returns a synthetic range reference.
func (s *Store) AppendRows(_ context.Context, rows []sheets.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	first := len(s.rows) + 1
	s.rows = append(s.rows, rows...)
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Row(nil), s.rows...)
}
