package port

// Locker is a mutually exclusive lock whose acquire and release may fail.
// The lock is owned by the caller; workers only acquire and release it.
type Locker interface {
	Lock() error
	Unlock() error
}
