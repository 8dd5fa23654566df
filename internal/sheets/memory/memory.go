// Package memory is an in-process TransactionMirror used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"saralfin/internal/core"
	"saralfin/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ sheets.TransactionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// Append adds t unless its id is already mirrored, and returns a synthetic row
// reference.
func (m *Mirror) Append(_ context.Context, t core.Transaction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == t.ID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, t)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Delete removes the row with id; a missing id is not an error.
func (m *Mirror) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns the mirrored transactions in append order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...)
}
