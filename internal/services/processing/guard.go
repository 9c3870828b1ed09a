package processing

import (
	"sync"

	"github.com/google/uuid"
)

// SessionGuard serializes processing per session: at most one in-flight run
// per session id. Acquire never blocks; contenders fail immediately and must
// retry later rather than queue up.
type SessionGuard struct {
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewSessionGuard() *SessionGuard {
	return &SessionGuard{}
}

// Acquire reports whether the caller now owns the session lock.
func (g *SessionGuard) Acquire(sessionID uuid.UUID) bool {
	v, _ := g.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex).TryLock()
}

// Release unlocks the session's mutex. The registry entry is left in place:
// deleting it would let an Acquire that already loaded the old mutex lock it
// while a later Acquire creates and locks a fresh one, giving two owners.
// Idle entries are cheap and sessions are finite, so they simply linger.
func (g *SessionGuard) Release(sessionID uuid.UUID) {
	v, ok := g.locks.Load(sessionID)
	if !ok {
		return
	}
	v.(*sync.Mutex).Unlock()
}
