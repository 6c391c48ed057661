// Package memory is an in-process LedgerMirror for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fluxo/internal/core"
	"fluxo/internal/sheets"
)

type Mirror struct {
	mu    sync.Mutex
	rows  []core.Transaction
	index map[string]int
}

var _ sheets.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{index: make(map[string]int)}
}

// AppendTransaction stores t once and returns a synthetic row reference.
func (m *Mirror) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.index[t.ID]; ok {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	m.rows = append(m.rows, t)
	m.index[t.ID] = len(m.rows) - 1
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Rows returns a copy of the mirrored transactions in append order.
func (m *Mirror) Rows() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.rows...)
}
