package guard

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sa6mwa/sysexec/adapters/mutexlock"
	"github.com/sa6mwa/sysexec/log"
)

type fakeLock struct {
	lockErr   error
	unlockErr error
	locks     atomic.Int32
	unlocks   atomic.Int32
}

func (f *fakeLock) Lock() error {
	f.locks.Add(1)
	return f.lockErr
}

func (f *fakeLock) Unlock() error {
	f.unlocks.Add(1)
	return f.unlockErr
}

func TestSpawnJoinUncontended(t *testing.T) {
	h, err := Spawn(mutexlock.New(&sync.Mutex{}), 0, 0, WithLogger(log.Nop))
	require.NoError(t, err)

	assert.True(t, h.Join())
	assert.NotEmpty(t, h.ID)
	_, err = uuid.Parse(h.ID)
	assert.NoError(t, err)
}

func TestJoinIsRepeatable(t *testing.T) {
	h, err := Spawn(&fakeLock{}, 0, 0, WithLogger(log.Nop))
	require.NoError(t, err)

	assert.True(t, h.Join())
	assert.True(t, h.Join())
}

func TestSpawnBlocksUnderContention(t *testing.T) {
	var mu sync.Mutex
	lock := mutexlock.New(&mu)
	require.NoError(t, lock.Lock())

	start := time.Now()
	h, err := Spawn(lock, 10*time.Millisecond, 5*time.Millisecond, WithLogger(log.Nop))
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, lock.Unlock())

	assert.True(t, h.Join())
	assert.GreaterOrEqual(t, time.Since(start), 65*time.Millisecond)

	// the worker released the lock
	assert.True(t, mu.TryLock())
	mu.Unlock()
}

func TestSpawnHoldsLockForDuration(t *testing.T) {
	var mu sync.Mutex
	h, err := Spawn(mutexlock.New(&mu), 0, 100*time.Millisecond, WithLogger(log.Nop))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		if mu.TryLock() {
			mu.Unlock()
			return false
		}
		return true
	}, time.Second, time.Millisecond)

	assert.True(t, h.Join())
}

func TestSpawnWaitsBeforeAcquire(t *testing.T) {
	lock := &fakeLock{}
	h, err := Spawn(lock, 50*time.Millisecond, 0, WithLogger(log.Nop))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), lock.locks.Load())
	assert.True(t, h.Join())
	assert.Equal(t, int32(1), lock.locks.Load())
}

func TestLockFailure(t *testing.T) {
	var buf bytes.Buffer
	lock := &fakeLock{lockErr: errors.New("deadlock detected")}
	h, err := Spawn(lock, 0, time.Hour, WithLogger(log.NewSlogLogger(0, &buf)))
	require.NoError(t, err)

	assert.False(t, h.Join())
	assert.Equal(t, int32(0), lock.unlocks.Load())
	assert.Contains(t, buf.String(), "failed to acquire lock")
	assert.Contains(t, buf.String(), "deadlock detected")
}

func TestUnlockFailure(t *testing.T) {
	var buf bytes.Buffer
	lock := &fakeLock{unlockErr: errors.New("not owner")}
	h, err := Spawn(lock, 0, 0, WithLogger(log.NewSlogLogger(0, &buf)))
	require.NoError(t, err)

	assert.False(t, h.Join())
	assert.Equal(t, int32(1), lock.unlocks.Load())
	assert.Contains(t, buf.String(), "failed to release lock")
}

func TestUnlockFailureFromMutexlock(t *testing.T) {
	h, err := Spawn(&stealingLock{inner: mutexlock.New(&sync.Mutex{})}, 0, 0, WithLogger(log.Nop))
	require.NoError(t, err)
	assert.False(t, h.Join())
}

// stealingLock releases the lock behind the worker's back so the worker's
// own release fails.
type stealingLock struct {
	inner *mutexlock.Lock
}

func (s *stealingLock) Lock() error {
	if err := s.inner.Lock(); err != nil {
		return err
	}
	return s.inner.Unlock()
}

func (s *stealingLock) Unlock() error {
	return s.inner.Unlock()
}

func TestSpawnErrors(t *testing.T) {
	_, err := Spawn(nil, 0, 0, WithLogger(log.Nop))
	assert.ErrorIs(t, err, ErrNilLock)

	_, err = Spawn(&fakeLock{}, -time.Millisecond, 0, WithLogger(log.Nop))
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = Spawn(&fakeLock{}, 0, -time.Millisecond, WithLogger(log.Nop))
	assert.ErrorIs(t, err, ErrInvalidDuration)

	entropy := errors.New("entropy exhausted")
	failing := func(o *options) {
		o.newUUID = func() (uuid.UUID, error) { return uuid.Nil, entropy }
	}
	lock := &fakeLock{}
	_, err = Spawn(lock, 0, 0, WithLogger(log.Nop), failing)
	assert.ErrorIs(t, err, ErrSpawn)
	assert.ErrorIs(t, err, entropy)
	assert.Equal(t, int32(0), lock.locks.Load())
}

func TestJoinNilHandle(t *testing.T) {
	var h *Handle
	assert.False(t, h.Join())
	ok, err := h.JoinContext(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestJoinContext(t *testing.T) {
	h, err := Spawn(&fakeLock{}, 0, 0, WithLogger(log.Nop))
	require.NoError(t, err)

	ok, err := h.JoinContext(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJoinContextCancellation(t *testing.T) {
	var mu sync.Mutex
	lock := mutexlock.New(&mu)
	require.NoError(t, lock.Lock())

	h, err := Spawn(lock, 0, 0, WithLogger(log.Nop))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok, err := h.JoinContext(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, lock.Unlock())
	assert.True(t, h.Join())
}

func TestJoinContextAfterJoin(t *testing.T) {
	h, err := Spawn(&fakeLock{}, 0, 0, WithLogger(log.Nop))
	require.NoError(t, err)
	require.True(t, h.Join())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 1000; i++ {
		ok, err := h.JoinContext(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestJoinContextFinishedWorkerWithCancelledContext(t *testing.T) {
	h, err := Spawn(&fakeLock{}, 0, 0, WithLogger(log.Nop))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Eventually(t, func() bool {
		ok, err := h.JoinContext(ctx)
		return ok && err == nil
	}, time.Second, time.Millisecond)
}

func TestJoinContextTimeoutsDoNotAccumulateGoroutines(t *testing.T) {
	var mu sync.Mutex
	lock := mutexlock.New(&mu)
	require.NoError(t, lock.Lock())

	h, err := Spawn(lock, 0, 0, WithLogger(log.Nop))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	before := runtime.NumGoroutine()
	for i := 0; i < 100; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Microsecond)
		ok, err := h.JoinContext(ctx)
		cancel()
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+5)

	require.NoError(t, lock.Unlock())
	assert.True(t, h.Join())
}
