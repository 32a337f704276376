package app

import (
	"sync"

	"lead_qualification_bot/internal/domain/survey"
)

// SessionRegistry is the in-memory home of active sessions, keyed by
// participant ID. Besides the sessions themselves it owns the per-participant
// locks that serialize event processing: events for one participant are
// handled one at a time in arrival order, while different participants stay
// fully independent.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[int64]*survey.Session
	locks    map[int64]*sync.Mutex
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[int64]*survey.Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Lock acquires the participant's event lock and returns the unlock func.
// Participant locks are never removed; the map is bounded by the number of
// participants seen by this process.
func (r *SessionRegistry) Lock(participantID int64) func() {
	r.mu.Lock()
	lock, ok := r.locks[participantID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[participantID] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (r *SessionRegistry) Get(participantID int64) (*survey.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[participantID]
	return sess, ok
}

func (r *SessionRegistry) Put(sess *survey.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ParticipantID] = sess
}

// Delete collapses the ephemeral session; durable progress lives in the
// participant record.
func (r *SessionRegistry) Delete(participantID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, participantID)
}
