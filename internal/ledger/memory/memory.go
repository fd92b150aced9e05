// Package memory keeps the ledger in process memory. It is meant for local
// runs and tests; rows are lost on restart.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows []core.ExpenseRow
}

func New(seed ...core.ExpenseRow) *Store {
	return &Store{rows: append([]core.ExpenseRow(nil), seed...)}
}

// NewFromFile seeds the store from a file with one row per line, cells
// separated by '|' in schema order. Blank lines and '#' comments are skipped.
// A missing file yields an empty store.
func NewFromFile(path string, loc *time.Location) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, err
	}
	defer f.Close()

	idx := core.LedgerSchema.Positional()
	var rows []core.ExpenseRow
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n++
		parts := strings.Split(line, "|")
		cells := make([]any, len(parts))
		for i, p := range parts {
			cells[i] = strings.TrimSpace(p)
		}
		r, ok, err := core.LedgerSchema.Decode(idx, n, cells, loc)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", path, err)
		}
		if ok {
			rows = append(rows, r)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(rows...), nil
}

// Append stores the row after validating it.
func (s *Store) Append(_ context.Context, r core.ExpenseRow) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return nil
}

// ReadAll returns a copy of every row in insertion order.
func (s *Store) ReadAll(_ context.Context) ([]core.ExpenseRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRow(nil), s.rows...), nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
