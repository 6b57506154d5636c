// Package memdb is an in-process implementation of db.DbInterface. It keeps
// the same conditional-update semantics as the mongo store behind one mutex
// and is used for local runs and service tests.
package memdb

import (
	"context"
	"sync"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
)

type state struct {
	balances    map[string]model.BalanceDocument
	entries     []model.LedgerEntryDocument
	stakes      map[string]model.StakeDocument
	burnLogs    []model.BurnLogDocument
	onchain     map[string]model.OnchainBatchDocument
	mintBatches map[string]model.MintBatchDocument
	rateLimits  map[string]model.RateLimitDocument
	jobLocks    map[string]model.JobLockDocument
	stats       *model.LedgerStatsDocument
}

func newState() *state {
	return &state{
		balances:    map[string]model.BalanceDocument{},
		stakes:      map[string]model.StakeDocument{},
		onchain:     map[string]model.OnchainBatchDocument{},
		mintBatches: map[string]model.MintBatchDocument{},
		rateLimits:  map[string]model.RateLimitDocument{},
		jobLocks:    map[string]model.JobLockDocument{},
	}
}

// clone copies the collections. Documents are values and slices inside them
// are replaced, never modified in place, so a shallow copy of each map is enough.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.balances {
		c.balances[k] = v
	}
	c.entries = append([]model.LedgerEntryDocument(nil), s.entries...)
	for k, v := range s.stakes {
		c.stakes[k] = v
	}
	c.burnLogs = append([]model.BurnLogDocument(nil), s.burnLogs...)
	for k, v := range s.onchain {
		c.onchain[k] = v
	}
	for k, v := range s.mintBatches {
		c.mintBatches[k] = v
	}
	for k, v := range s.rateLimits {
		c.rateLimits[k] = v
	}
	for k, v := range s.jobLocks {
		c.jobLocks[k] = v
	}
	c.stats = s.stats
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state
}

var _ db.DbInterface = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

// lock takes the store mutex unless ctx belongs to a running transaction,
// which already holds it.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

// RunInTransaction serializes fn against every other operation and restores
// the previous state if fn fails.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}
