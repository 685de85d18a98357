package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func TestLock_AcquireRelease(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "ingest:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "ingest:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	ok, err = l.Acquire(ctx, "ingest:other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different names are independent")

	require.NoError(t, l.Release(ctx, "ingest:abc"))
	ok, err = l.Acquire(ctx, "ingest:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_Expiry(t *testing.T) {
	l := NewLock()
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "x", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, _ = l.Acquire(ctx, "x", time.Second)
	assert.True(t, ok, "expired lock can be taken")
}

func TestLock_Extend(t *testing.T) {
	l := NewLock()
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "x", time.Second)
	require.True(t, ok)

	now = now.Add(900 * time.Millisecond)
	require.NoError(t, l.Extend(ctx, "x", time.Second))

	now = now.Add(900 * time.Millisecond)
	ok, _ = l.Acquire(ctx, "x", time.Second)
	assert.False(t, ok, "extended lock is still held")

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, l.Extend(ctx, "x", time.Second), domain.ErrLockLost)
	assert.ErrorIs(t, l.Extend(ctx, "never", time.Second), domain.ErrLockLost)
}

func TestLock_CancelledContext(t *testing.T) {
	l := NewLock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Acquire(ctx, "x", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, l.Ping(context.Background()))
}
