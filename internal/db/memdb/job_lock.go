package memdb

import (
	"context"
	"time"

	"github.com/uct-network/uct-ledger/internal/db"
	"github.com/uct-network/uct-ledger/internal/db/model"
)

func (s *Store) AcquireJobLock(ctx context.Context, name, owner string, now time.Time, ttl time.Duration) error {
	defer s.lock(ctx)()

	now = now.UTC()
	current, ok := s.state.jobLocks[name]
	if ok && current.Owner != owner && current.ExpiresAt.After(now) {
		return &db.LockHeldError{Name: name, Message: "job lock " + name + " is held by another owner"}
	}

	s.state.jobLocks[name] = model.JobLockDocument{
		Name:      name,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

func (s *Store) ReleaseJobLock(ctx context.Context, name, owner string) error {
	defer s.lock(ctx)()

	if current, ok := s.state.jobLocks[name]; ok && current.Owner == owner {
		delete(s.state.jobLocks, name)
	}
	return nil
}
