package services

import "sync"

// docLocks is a set of per-document try-locks.
// A document ID is held by at most one operation; other callers fail fast.
type docLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newDocLocks() *docLocks {
	return &docLocks{held: make(map[string]struct{})}
}

// tryAcquire takes the lock for id and reports whether it succeeded.
func (l *docLocks) tryAcquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[id]; busy {
		return false
	}
	l.held[id] = struct{}{}
	return true
}

// release frees the lock for id.
func (l *docLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
}

// isHeld reports whether an operation currently holds id.
func (l *docLocks) isHeld(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.held[id]
	return busy
}
