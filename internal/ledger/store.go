package ledger

import (
	"context"
	"sync"

	"github.com/cleared-dev/tally/internal/model"
)

// Store persists the full ledger snapshot. Load on a store that has never been
// saved returns no transactions and no error.
type Store interface {
	Load(ctx context.Context) ([]model.Transaction, error)
	Save(ctx context.Context, txs []model.Transaction) error
}

// MemoryStore keeps the snapshot in memory. Used by tests and dry runs.
type MemoryStore struct {
	mu    sync.Mutex
	txs   []model.Transaction
	saves int
	err   error
}

// NewMemoryStore returns a store seeded with txs.
func NewMemoryStore(txs ...model.Transaction) *MemoryStore {
	return &MemoryStore{txs: append([]model.Transaction(nil), txs...)}
}

func (m *MemoryStore) Load(_ context.Context) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Transaction(nil), m.txs...), nil
}

func (m *MemoryStore) Save(_ context.Context, txs []model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.txs = append([]model.Transaction(nil), txs...)
	m.saves++
	return nil
}

// FailWith makes every subsequent Save return err. Pass nil to clear.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Saves returns how many successful saves have happened.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
