package workspace

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of sessions kept before the least recently
// updated one is evicted.
const DefaultCapacity = 200

// Store is a mutex-guarded in-memory session store.
type Store struct {
	mu       sync.Mutex
	capacity int
	sessions map[string]*Session
	now      func() time.Time
}

// NewStore constructs a store holding at most capacity sessions.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		sessions: make(map[string]*Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new idle session.
func (s *Store) Create() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{ID: uuid.NewString(), State: StateIdle, CreatedAt: now, UpdatedAt: now}
	if len(s.sessions) >= s.capacity {
		s.evictLocked()
	}
	s.sessions[sess.ID] = sess
	return sess.clone()
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess.clone(), nil
}

// Update applies fn to the stored session under the store lock. Changes are
// kept only when fn succeeds.
func (s *Store) Update(id string, fn func(sess *Session, now time.Time) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	draft := sess.clone()
	now := s.now()
	if err := fn(&draft, now); err != nil {
		return sess.clone(), err
	}
	draft.UpdatedAt = now
	s.sessions[id] = &draft
	return draft.clone(), nil
}

// Len reports the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) evictLocked() {
	var oldest *Session
	for _, sess := range s.sessions {
		if sess.State.Busy() {
			continue
		}
		if oldest == nil || sess.UpdatedAt.Before(oldest.UpdatedAt) {
			oldest = sess
		}
	}
	if oldest != nil {
		delete(s.sessions, oldest.ID)
	}
}
