package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/pkg/metrics"
)

// MemStore is a Store kept in process memory. Every read and write copies,
// so callers never share slices with the store.
type MemStore struct {
	mu sync.RWMutex

	rules     map[string]model.Rule
	ruleOrder []string

	matches map[string]model.Match

	txs     []model.Transaction
	txIndex map[string]int

	bets     map[string]model.Bet
	betOrder []string

	now func() time.Time
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		rules:   make(map[string]model.Rule),
		matches: make(map[string]model.Match),
		txIndex: make(map[string]int),
		bets:    make(map[string]model.Bet),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

func (s *MemStore) ListRules(_ context.Context) ([]model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Rule, 0, len(s.ruleOrder))
	for _, id := range s.ruleOrder {
		out = append(out, s.rules[id])
	}
	return out, nil
}

func (s *MemStore) GetRule(_ context.Context, id string) (model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return model.Rule{}, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return r, nil
}

func (s *MemStore) CreateRule(_ context.Context, r model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[r.ID]; ok {
		return fmt.Errorf("rule %s: %w", r.ID, ErrConflict)
	}
	s.rules[r.ID] = r
	s.ruleOrder = append(s.ruleOrder, r.ID)
	return nil
}

func (s *MemStore) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	delete(s.rules, id)
	s.ruleOrder = slices.DeleteFunc(s.ruleOrder, func(v string) bool { return v == id })
	return nil
}

// ReplaceRule keeps the catalogue position of the rule it replaces.
func (s *MemStore) ReplaceRule(_ context.Context, oldID string, r model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[oldID]; !ok {
		return fmt.Errorf("rule %s: %w", oldID, ErrNotFound)
	}
	if _, ok := s.rules[r.ID]; ok && r.ID != oldID {
		return fmt.Errorf("rule %s: %w", r.ID, ErrConflict)
	}
	delete(s.rules, oldID)
	s.rules[r.ID] = r
	s.ruleOrder[slices.Index(s.ruleOrder, oldID)] = r.ID
	return nil
}

func (s *MemStore) CreateMatch(_ context.Context, m model.Match) error {
	defer observe("create_match", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return fmt.Errorf("match %s: %w", m.ID, ErrConflict)
	}
	now := s.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *MemStore) GetMatch(_ context.Context, id string) (model.Match, error) {
	defer observe("get_match", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return model.Match{}, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return m.Clone(), nil
}

func (s *MemStore) ListMatches(_ context.Context) ([]model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m.Clone())
	}
	SortMatches(out)
	return out, nil
}

func (s *MemStore) UpdateMatch(ctx context.Context, id string, fn func(*model.Match) error) (model.Match, error) {
	m, _, err := s.CloseMatch(ctx, id, func(m *model.Match) ([]model.Transaction, error) {
		return nil, fn(m)
	})
	return m, err
}

func (s *MemStore) CloseMatch(_ context.Context, id string, fn func(*model.Match) ([]model.Transaction, error)) (model.Match, []model.Transaction, error) {
	defer observe("update_match", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.matches[id]
	if !ok {
		return model.Match{}, nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	m := stored.Clone()
	txs, err := fn(&m)
	if err != nil {
		return stored.Clone(), nil, err
	}
	if err := s.checkNewTransactions(txs); err != nil {
		return stored.Clone(), nil, err
	}
	m.ID = id
	m.UpdatedAt = s.now()
	s.matches[id] = m.Clone()
	s.appendTransactions(txs)
	return m, slices.Clone(txs), nil
}

func (s *MemStore) checkNewTransactions(txs []model.Transaction) error {
	for _, tx := range txs {
		if _, dup := s.txIndex[tx.ID]; dup {
			return fmt.Errorf("transaction %s: %w", tx.ID, ErrConflict)
		}
	}
	return nil
}

func (s *MemStore) appendTransactions(txs []model.Transaction) {
	for _, tx := range txs {
		s.txIndex[tx.ID] = len(s.txs)
		s.txs = append(s.txs, tx)
	}
}

func (s *MemStore) ListTransactions(_ context.Context) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.txs), nil
}

func (s *MemStore) MarkPaid(_ context.Context, id string) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.txIndex[id]
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	s.txs[i].IsPaid = true
	return s.txs[i], nil
}

func cloneBet(b model.Bet) model.Bet {
	b.Participants = slices.Clone(b.Participants)
	return b
}

func (s *MemStore) CreateBet(_ context.Context, b model.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bets[b.ID]; ok {
		return fmt.Errorf("bet %s: %w", b.ID, ErrConflict)
	}
	s.bets[b.ID] = cloneBet(b)
	s.betOrder = append(s.betOrder, b.ID)
	return nil
}

func (s *MemStore) GetBet(_ context.Context, id string) (model.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bets[id]
	if !ok {
		return model.Bet{}, fmt.Errorf("bet %s: %w", id, ErrNotFound)
	}
	return cloneBet(b), nil
}

func (s *MemStore) ListBets(_ context.Context) ([]model.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Bet, 0, len(s.betOrder))
	for _, id := range s.betOrder {
		out = append(out, cloneBet(s.bets[id]))
	}
	return out, nil
}

func (s *MemStore) SettleBet(_ context.Context, id string, fn func(*model.Bet) ([]model.Transaction, error)) (model.Bet, []model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bets[id]
	if !ok {
		return model.Bet{}, nil, fmt.Errorf("bet %s: %w", id, ErrNotFound)
	}
	b := cloneBet(stored)
	txs, err := fn(&b)
	if err != nil {
		return cloneBet(stored), nil, err
	}
	if err := s.checkNewTransactions(txs); err != nil {
		return cloneBet(stored), nil, err
	}
	b.ID = id
	s.bets[id] = cloneBet(b)
	s.appendTransactions(txs)
	return b, slices.Clone(txs), nil
}

// SortMatches orders matches newest first by date, then by creation time.
func SortMatches(ms []model.Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Date != ms[j].Date {
			return ms[i].Date > ms[j].Date
		}
		return ms[i].CreatedAt.After(ms[j].CreatedAt)
	})
}
