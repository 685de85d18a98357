package driven

import (
	"context"
	"time"
)

// DistributedLock serialises work on a named resource across instances.
// Ingestion takes one lock per document id so two callers never index
// the same document concurrently.
type DistributedLock interface {
	// Acquire attempts to take the named lock without blocking.
	// Returns true if acquired, false if another holder has it.
	// The lock expires after ttl where the backend supports expiry.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Extend pushes the expiry of a lock held by this instance out to ttl.
	// Returns an error wrapping domain.ErrLockLost if the lock is no longer ours.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Release releases the named lock if held by this instance.
	// Safe to call when the lock has already expired.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
