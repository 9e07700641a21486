// Package review holds one batch of import candidates while the user picks
// which of them to commit to the ledger.
package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/category"
	"github.com/cleared-dev/tally/internal/model"
)

// FilterAll selects every candidate regardless of category.
const FilterAll = "All"

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrAlreadyCommitted  = errors.New("session already committed")
	ErrCommitInProgress  = errors.New("commit in progress")
)

// State is the session lifecycle stage.
type State string

const (
	StateEmpty     State = "empty"
	StateLoaded    State = "loaded"
	StateCommitted State = "committed"
)

// Appender is the ledger side of a commit. The session lock is not held while
// AppendAll runs, so ledger subscribers may read the session. Selection
// changes made from inside AppendAll fail with ErrCommitInProgress.
type Appender interface {
	AppendAll(ctx context.Context, txs []model.Transaction) ([]model.Transaction, error)
}

// CategoryCount is one filter chip: how many candidates carry a category.
type CategoryCount struct {
	Category model.Category
	Count    int
	Color    string
}

// Summary is the read-only projection rendered above the candidate list.
type Summary struct {
	State            State
	Filter           string
	DetectedBank     string
	Total            int
	Selected         int
	SelectedIncome   decimal.Decimal
	SelectedExpenses decimal.Decimal
	Categories       []CategoryCount
}

// CommitResult reports a commit together with the summary of the batch it cut.
type CommitResult struct {
	Committed int
	Summary   Summary
}

// Breakdown is the top of the category summary plus the size of the remainder.
type Breakdown struct {
	Top  []CategoryCount
	More int
}

// Session is safe for concurrent use. Listeners run after the lock is released.
type Session struct {
	mu         sync.Mutex
	state      State
	filter     string
	bank       string
	candidates []model.ParsedTransaction
	committing bool
	generation int // bumped by Load and Reset
	listeners  map[int]func()
	nextID     int
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		state:     StateEmpty,
		filter:    FilterAll,
		listeners: make(map[int]func()),
	}
}

// Load replaces the session contents with candidates. The filter resets to All.
func (s *Session) Load(candidates []model.ParsedTransaction) {
	s.mu.Lock()
	s.generation++
	s.candidates = append([]model.ParsedTransaction(nil), candidates...)
	s.filter = FilterAll
	s.bank = ""
	if len(s.candidates) > 0 {
		s.bank = s.candidates[0].BankName
	}
	s.state = StateLoaded
	if len(s.candidates) == 0 {
		s.state = StateEmpty
	}
	s.mu.Unlock()
	s.notify()
}

// Reset discards all candidates.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	s.candidates = nil
	s.filter = FilterAll
	s.bank = ""
	s.state = StateEmpty
	s.mu.Unlock()
	s.notify()
}

// State returns the lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Filter returns the active filter label.
func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetFilter sets the active filter to "All" or a canonical category label.
// Selection flags are left alone.
func (s *Session) SetFilter(label string) error {
	filter := FilterAll
	if label != FilterAll {
		c, ok := category.Lookup(label)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, label)
		}
		filter = string(c)
	}

	s.mu.Lock()
	changed := s.filter != filter
	s.filter = filter
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// Toggle flips the selection of one candidate.
func (s *Session) Toggle(candidateID string) error {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	found := false
	for i := range s.candidates {
		if s.candidates[i].ID == candidateID {
			s.candidates[i].IsSelected = !s.candidates[i].IsSelected
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return fmt.Errorf("toggling %s: %w", candidateID, ErrCandidateNotFound)
	}
	s.notify()
	return nil
}

// SelectAll selects every candidate matching the active filter.
func (s *Session) SelectAll() error { return s.setAll(true) }

// DeselectAll deselects every candidate matching the active filter.
func (s *Session) DeselectAll() error { return s.setAll(false) }

func (s *Session) setAll(selected bool) error {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	for i := range s.candidates {
		if matches(s.candidates[i], s.filter) {
			s.candidates[i].IsSelected = selected
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Candidates returns copies of the candidates matching filter, in load order.
// An empty filter means the active one.
func (s *Session) Candidates(filter string) []model.ParsedTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if filter == "" {
		filter = s.filter
	} else if filter != FilterAll {
		c, ok := category.Lookup(filter)
		if !ok {
			return nil
		}
		filter = string(c)
	}

	out := make([]model.ParsedTransaction, 0, len(s.candidates))
	for _, c := range s.candidates {
		if matches(c, filter) {
			out = append(out, c)
		}
	}
	return out
}

// Summary returns counts, selected totals and the category chips.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() Summary {
	sum := Summary{
		State:            s.state,
		Filter:           s.filter,
		DetectedBank:     s.bank,
		Total:            len(s.candidates),
		SelectedIncome:   decimal.Zero,
		SelectedExpenses: decimal.Zero,
		Categories:       s.categoryCountsLocked(),
	}
	for _, c := range s.candidates {
		if !c.IsSelected {
			continue
		}
		sum.Selected++
		if c.IsExpense {
			sum.SelectedExpenses = sum.SelectedExpenses.Add(c.Amount)
		} else {
			sum.SelectedIncome = sum.SelectedIncome.Add(c.Amount)
		}
	}
	return sum
}

// Breakdown returns at most limit category chips and how many were left out.
func (s *Session) Breakdown(limit int) Breakdown {
	s.mu.Lock()
	counts := s.categoryCountsLocked()
	s.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	if len(counts) <= limit {
		return Breakdown{Top: counts}
	}
	return Breakdown{Top: counts[:limit], More: len(counts) - limit}
}

// Commit appends every selected candidate to the ledger in one batch and
// returns how many were committed. An empty selection commits nothing and
// leaves the session as it was.
func (s *Session) Commit(ctx context.Context, ledger Appender) (int, error) {
	res, err := s.CommitWithSummary(ctx, ledger)
	return res.Committed, err
}

// CommitWithSummary is Commit, also returning the summary taken when the batch
// was cut. Selection is frozen until the append returns.
func (s *Session) CommitWithSummary(ctx context.Context, ledger Appender) (CommitResult, error) {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return CommitResult{}, err
	}

	var txs []model.Transaction
	for _, c := range s.candidates {
		if c.IsSelected {
			txs = append(txs, c.ToTransaction())
		}
	}
	res := CommitResult{Summary: s.summaryLocked()}
	if len(txs) == 0 {
		s.mu.Unlock()
		return res, nil
	}
	s.committing = true
	generation := s.generation
	s.mu.Unlock()

	_, err := ledger.AppendAll(ctx, txs)

	s.mu.Lock()
	s.committing = false
	if err != nil {
		s.mu.Unlock()
		return CommitResult{}, fmt.Errorf("committing %d transactions: %w", len(txs), err)
	}
	// A Load or Reset during the append replaced the batch; leave the new contents reviewable.
	if s.generation == generation {
		s.state = StateCommitted
		res.Summary.State = StateCommitted
	}
	s.mu.Unlock()

	s.notify()
	res.Committed = len(txs)
	return res, nil
}

// Subscribe registers fn to run after every change. The returned func removes it.
func (s *Session) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	key := s.nextID
	s.nextID++
	s.listeners[key] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, key)
		s.mu.Unlock()
	}
}

func (s *Session) mutableLocked() error {
	if s.committing {
		return ErrCommitInProgress
	}
	if s.state == StateCommitted {
		return ErrAlreadyCommitted
	}
	return nil
}

func (s *Session) categoryCountsLocked() []CategoryCount {
	byCat := make(map[model.Category]int)
	for _, c := range s.candidates {
		byCat[c.Category]++
	}

	out := make([]CategoryCount, 0, len(byCat))
	for c, n := range byCat {
		out = append(out, CategoryCount{Category: c, Count: n, Color: c.Color()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category.Rank() < out[j].Category.Rank()
	})
	return out
}

func matches(c model.ParsedTransaction, filter string) bool {
	return filter == FilterAll || string(c.Category) == filter
}

func (s *Session) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
