// Package guard runs a worker that waits, acquires a caller-owned lock,
// holds it for a while and releases it. The caller learns whether the
// worker completed by joining it.
//
//	var mu sync.Mutex
//	h, err := guard.Spawn(mutexlock.New(&mu), 10*time.Millisecond, 50*time.Millisecond)
//	if err != nil {
//		return err
//	}
//	if !h.Join() {
//		// lock acquire or release failed
//	}
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sa6mwa/sysexec/log"
	"github.com/sa6mwa/sysexec/port"
)

var (
	ErrNilLock         = errors.New("guard: nil lock")
	ErrInvalidDuration = errors.New("guard: negative duration")
	ErrSpawn           = errors.New("guard: unable to start worker")
	ErrLock            = errors.New("guard: lock operation failed")
)

type options struct {
	logger  log.Logger
	newUUID func() (uuid.UUID, error)
}

// Option configures Spawn.
type Option func(*options)

// WithLogger sets the logger worker diagnostics are reported to.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// task is owned by the worker goroutine for its whole lifetime.
type task struct {
	id            string
	lock          port.Locker
	waitToAcquire time.Duration
	waitToHold    time.Duration
	logger        log.Logger
}

// Handle refers to a running worker. result is written by the worker
// before done is closed and is only read after done is closed.
type Handle struct {
	ID     string
	done   <-chan struct{}
	result bool
}

// Spawn starts a worker that sleeps for waitToAcquire, acquires lock, sleeps
// for waitToHold and releases lock. Lock acquisition blocks for as long as
// the lock is held elsewhere. An error means no worker was started.
func Spawn(lock port.Locker, waitToAcquire, waitToHold time.Duration, opts ...Option) (*Handle, error) {
	o := options{newUUID: uuid.NewRandom}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if lock == nil {
		o.logger.Error("worker not started", "error", ErrNilLock)
		return nil, ErrNilLock
	}
	if waitToAcquire < 0 || waitToHold < 0 {
		o.logger.Error("worker not started", "error", ErrInvalidDuration,
			"wait_to_acquire", waitToAcquire, "wait_to_hold", waitToHold)
		return nil, ErrInvalidDuration
	}
	id, err := o.newUUID()
	if err != nil {
		o.logger.Error("worker not started", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	t := &task{
		id:            id.String(),
		lock:          lock,
		waitToAcquire: waitToAcquire,
		waitToHold:    waitToHold,
		logger:        o.logger,
	}
	done := make(chan struct{})
	h := &Handle{ID: t.id, done: done}
	go func() {
		h.result = t.run()
		close(done)
	}()
	t.logger.Debug("worker started", "worker", t.id,
		"wait_to_acquire", waitToAcquire, "wait_to_hold", waitToHold)
	return h, nil
}

func (t *task) run() bool {
	time.Sleep(t.waitToAcquire)
	if err := t.lock.Lock(); err != nil {
		t.logger.Error("failed to acquire lock", "worker", t.id, "error", fmt.Errorf("%w: %w", ErrLock, err))
		return false
	}
	t.logger.Debug("lock acquired", "worker", t.id)
	time.Sleep(t.waitToHold)
	if err := t.lock.Unlock(); err != nil {
		t.logger.Error("failed to release lock", "worker", t.id, "error", fmt.Errorf("%w: %w", ErrLock, err))
		return false
	}
	t.logger.Debug("lock released", "worker", t.id)
	return true
}

// Join blocks until the worker finishes and reports whether it acquired and
// released the lock. Later calls return the same value. A nil Handle
// reports false.
func (h *Handle) Join() bool {
	if h == nil {
		return false
	}
	<-h.done
	return h.result
}

// JoinContext is Join bounded by ctx. Cancellation stops the wait, not the
// worker; a later Join still observes the worker's result. A worker that
// has already finished is reported even when ctx is done.
func (h *Handle) JoinContext(ctx context.Context) (bool, error) {
	if h == nil {
		return false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-h.done:
		return h.result, nil
	default:
	}
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
