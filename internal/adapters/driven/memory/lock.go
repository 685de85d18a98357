package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure Lock implements driven.DistributedLock
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local keyed lock with expiry. It only serialises
// callers inside one process.
type Lock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewLock creates an empty lock table
func NewLock() *Lock {
	return &Lock{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Acquire takes name unless it is held and not yet expired
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, held := l.expires[name]; held && now.Before(exp) {
		return false, nil
	}
	l.expires[name] = now.Add(ttl)
	return true, nil
}

// Extend moves the expiry of a held, unexpired lock to now+ttl
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, held := l.expires[name]; !held || !now.Before(exp) {
		return fmt.Errorf("%w: %s", domain.ErrLockLost, name)
	}
	l.expires[name] = now.Add(ttl)
	return nil
}

// Release frees name
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, name)
	return nil
}

// Ping always succeeds
func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
