package mutexlock

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sa6mwa/sysexec/port"
)

// ErrNotHeld is returned by Unlock when the lock is not held.
var ErrNotHeld = errors.New("mutexlock: unlock of a lock that is not held")

// Lock adapts a caller-owned sync.Locker to port.Locker. Releasing a lock
// that is not held returns ErrNotHeld instead of crashing the process.
type Lock struct {
	l    sync.Locker
	held atomic.Bool
}

var _ port.Locker = (*Lock)(nil)

// New wraps l, which stays owned by the caller.
func New(l sync.Locker) *Lock {
	return &Lock{l: l}
}

// Lock blocks until l is acquired. It never fails.
func (m *Lock) Lock() error {
	m.l.Lock()
	m.held.Store(true)
	return nil
}

// Unlock releases l, or returns ErrNotHeld if it is not held.
func (m *Lock) Unlock() error {
	if !m.held.CompareAndSwap(true, false) {
		return ErrNotHeld
	}
	m.l.Unlock()
	return nil
}
