package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_ExclusivePerKey(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	unlock, err := l.TryLock(ctx, SyncLockKey("a"), time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, SyncLockKey("a"), time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	// A different key is independent.
	unlockB, err := l.TryLock(ctx, SyncLockKey("b"), time.Minute)
	require.NoError(t, err)
	unlockB()

	unlock()
	unlock() // idempotent

	again, err := l.TryLock(ctx, SyncLockKey("a"), time.Minute)
	require.NoError(t, err)
	again()
}

func TestSyncLockKey(t *testing.T) {
	assert.Equal(t, "channeldesk:sync:42", SyncLockKey("42"))
}
