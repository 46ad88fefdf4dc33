package session

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Store is the process-wide session registry. Get initializes sessions
// lazily, so it is safe to call at the start of every request cycle without
// clobbering state from a prior interaction.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *logrus.Logger
}

// NewStore creates an empty session store.
func NewStore(logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Get returns the session with the given ID, creating it on first access.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.Touch()
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	// Re-check under the write lock.
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s = newSession(id)
	st.sessions[id] = s
	st.logger.Debugf("Initialized session %s", id)
	return s
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Purge drops sessions idle for longer than maxIdle and returns how many
// were removed. A session with a run still in progress is never purged.
func (st *Store) Purge(maxIdle time.Duration) int {
	deadline := time.Now().Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		s.mu.RLock()
		idle := s.lastSeen.Before(deadline) && !s.running
		s.mu.RUnlock()
		if idle {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.logger.Infof("Purged %d idle sessions", removed)
	}
	return removed
}
