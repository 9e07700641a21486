// Package ledger holds the committed transaction history and its derived aggregates.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

var (
	// ErrNotFound is returned for an unknown transaction ID.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("invalid transaction")
)

// EventKind identifies what changed in the ledger.
type EventKind string

const (
	EventAppended EventKind = "appended"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
	EventLoaded   EventKind = "loaded"
)

// Event is delivered to subscribers after a change has been persisted.
type Event struct {
	Kind EventKind
	IDs  []string
}

// Service owns the in-memory ledger and writes every change through to its Store.
type Service struct {
	mu      sync.Mutex
	store   Store
	log     zerolog.Logger
	txs     []model.Transaction
	subs    map[int]func(Event)
	nextSub int
}

// NewService creates a ledger Service. Call Open before use to load existing data.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "ledger").Logger(),
		subs:  make(map[int]func(Event)),
	}
}

// Open loads the snapshot from the store, replacing anything held in memory.
func (s *Service) Open(ctx context.Context) error {
	txs, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}
	if verrs := Validate(txs); len(verrs) > 0 {
		return fmt.Errorf("loading ledger: %w", joinValidation(verrs))
	}

	s.mu.Lock()
	s.txs = txs
	s.mu.Unlock()

	s.log.Debug().Int("count", len(txs)).Msg("ledger loaded")
	s.notify(Event{Kind: EventLoaded})
	return nil
}

// Append adds one transaction and returns it with its assigned ID.
func (s *Service) Append(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	added, err := s.AppendAll(ctx, []model.Transaction{tx})
	if err != nil {
		return model.Transaction{}, err
	}
	return added[0], nil
}

// AppendAll adds txs as one batch. Entries with an empty ID get the next free
// YYYY-MM-NNN ID for their date. Either every entry is stored or none is.
func (s *Service) AppendAll(ctx context.Context, txs []model.Transaction) ([]model.Transaction, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	ids := make([]string, 0, len(s.txs)+len(txs))
	for _, tx := range s.txs {
		ids = append(ids, tx.ID)
	}

	added := make([]model.Transaction, len(txs))
	for i, tx := range txs {
		if tx.ID == "" {
			year, month := tx.Date.Year(), int(tx.Date.Month())
			tx.ID = id.FormatEntryID(year, month, id.NextSeq(ids, year, month))
		}
		ids = append(ids, tx.ID)
		added[i] = tx
	}

	next := make([]model.Transaction, 0, len(s.txs)+len(added))
	next = append(next, s.txs...)
	next = append(next, added...)

	if err := s.commitLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	addedIDs := make([]string, len(added))
	for i, tx := range added {
		addedIDs[i] = tx.ID
	}
	s.log.Info().Int("count", len(added)).Msg("transactions appended")
	s.notify(Event{Kind: EventAppended, IDs: addedIDs})

	return append([]model.Transaction(nil), added...), nil
}

// Update replaces the transaction with the same ID.
func (s *Service) Update(ctx context.Context, tx model.Transaction) error {
	s.mu.Lock()
	idx := s.indexLocked(tx.ID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("updating %s: %w", tx.ID, ErrNotFound)
	}

	next := append([]model.Transaction(nil), s.txs...)
	next[idx] = tx
	if err := s.commitLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify(Event{Kind: EventUpdated, IDs: []string{tx.ID}})
	return nil
}

// Delete removes the transaction with the given ID.
func (s *Service) Delete(ctx context.Context, txID string) error {
	s.mu.Lock()
	idx := s.indexLocked(txID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("deleting %s: %w", txID, ErrNotFound)
	}

	next := make([]model.Transaction, 0, len(s.txs)-1)
	next = append(next, s.txs[:idx]...)
	next = append(next, s.txs[idx+1:]...)
	if err := s.commitLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.log.Info().Str("id", txID).Msg("transaction deleted")
	s.notify(Event{Kind: EventDeleted, IDs: []string{txID}})
	return nil
}

// All returns a copy of every transaction in insertion order.
func (s *Service) All() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Transaction(nil), s.txs...)
}

// Get returns the transaction with the given ID.
func (s *Service) Get(txID string) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(txID)
	if idx < 0 {
		return model.Transaction{}, fmt.Errorf("getting %s: %w", txID, ErrNotFound)
	}
	return s.txs[idx], nil
}

// Len returns the number of stored transactions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

// Subscribe registers fn to be called after every change. The returned func removes it.
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, key)
		s.mu.Unlock()
	}
}

// commitLocked validates and persists next, then makes it current. Caller holds s.mu.
func (s *Service) commitLocked(ctx context.Context, next []model.Transaction) error {
	if verrs := Validate(next); len(verrs) > 0 {
		return joinValidation(verrs)
	}
	if err := s.store.Save(ctx, next); err != nil {
		s.log.Error().Err(err).Msg("saving ledger")
		return fmt.Errorf("saving ledger: %w", err)
	}
	s.txs = next
	return nil
}

func (s *Service) indexLocked(txID string) int {
	for i, tx := range s.txs {
		if tx.ID == txID {
			return i
		}
	}
	return -1
}

func (s *Service) notify(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
