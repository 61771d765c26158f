// Package memory is an in-process store.Repository used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// Store keeps everything in maps guarded by one RWMutex.
type Store struct {
	mu           sync.RWMutex
	order        []string
	transactions map[string]store.TransactionRecord
	budgets      map[string]domain.Budget
	outputs      []store.ModelOutput
	now          func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		transactions: make(map[string]store.TransactionRecord),
		budgets:      make(map[string]domain.Budget),
		now:          time.Now,
	}
}

func (s *Store) InsertTransactions(ctx context.Context, documentID string, txs []domain.Transaction) ([]store.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs := store.NewRecords(documentID, txs, s.now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.transactions[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	return recs, nil
}

// ListTransactions returns matches in insertion order.
func (s *Store) ListTransactions(ctx context.Context, f store.Filter) ([]store.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.TransactionRecord, 0, len(s.order))
	for _, id := range s.order {
		r := s.transactions[id]
		if f.MatchRecord(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*store.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, patch store.TransactionPatch) (*store.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	r.Transaction = patch.Apply(r.Transaction)
	s.transactions[id] = r
	return &r, nil
}

func (s *Store) UpdateCategoryByVendor(ctx context.Context, vendor, category string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.transactions {
		if r.MatchesVendor(vendor) {
			r.Category = category
			s.transactions[id] = r
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAllTransactions(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.transactions)
	s.transactions = make(map[string]store.TransactionRecord)
	s.order = nil
	return n, nil
}

// UpsertBudget replaces the limit of a category, matched case-insensitively.
func (s *Store) UpsertBudget(ctx context.Context, b domain.Budget) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[strings.ToLower(strings.TrimSpace(b.Category))] = b
	return nil
}

// ListBudgets returns saved budgets sorted by category.
func (s *Store) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) InsertModelOutput(ctx context.Context, out *store.ModelOutput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = append(s.outputs, *out)
	return nil
}

// ModelOutputs returns a copy of every recorded model output.
func (s *Store) ModelOutputs() []store.ModelOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.ModelOutput(nil), s.outputs...)
}

func (s *Store) Close() error { return nil }

var _ store.Repository = (*Store)(nil)
