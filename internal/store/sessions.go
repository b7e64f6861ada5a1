package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/camara12-arth/weather-app/internal/search"
)

var (
	// ErrNotFound is returned when no live session has the given id.
	ErrNotFound = errors.New("session not found")
)

type entry struct {
	session  *search.Session
	lastSeen time.Time
}

// SessionStore is a concurrency-safe in-memory registry of search sessions.
type SessionStore struct {
	mu sync.Mutex

	// key: session id
	data map[string]*entry

	// retention configuration
	maxSessions int           // oldest sessions are evicted beyond this
	maxIdle     time.Duration // sessions unused for longer are reaped

	now func() time.Time
}

// NewSessionStore creates a new SessionStore with optional limits.
// If maxSessions or maxIdle is <= 0, that limit is not enforced.
func NewSessionStore(maxSessions int, maxIdle time.Duration) *SessionStore {
	return &SessionStore{
		data:        make(map[string]*entry),
		maxSessions: maxSessions,
		maxIdle:     maxIdle,
		now:         time.Now,
	}
}

// Put registers a session and enforces the size limit by evicting the
// least recently used sessions.
func (s *SessionStore) Put(sess *search.Session) {
	s.mu.Lock()
	if old, ok := s.data[sess.ID()]; ok && old.session != sess {
		defer old.session.Close()
	}
	s.data[sess.ID()] = &entry{session: sess, lastSeen: s.now()}

	var evicted []*search.Session
	if s.maxSessions > 0 && len(s.data) > s.maxSessions {
		evicted = s.evictOldest(len(s.data) - s.maxSessions)
	}
	s.mu.Unlock()

	// Close outside the lock: it waits for the session loop.
	for _, e := range evicted {
		e.Close()
	}
}

// Get returns the session and marks it as used.
func (s *SessionStore) Get(id string) (*search.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = s.now()
	return e.session, nil
}

// Delete removes and closes the session.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.data[id]
	delete(s.data, id)
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	e.session.Close()
	return nil
}

// Reap closes every session idle since before now-maxIdle and returns how
// many were removed.
func (s *SessionStore) Reap(now time.Time) int {
	if s.maxIdle <= 0 {
		return 0
	}
	cutoff := now.Add(-s.maxIdle)

	s.mu.Lock()
	var expired []*search.Session
	for id, e := range s.data {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.session)
			delete(s.data, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// CloseAll closes and forgets every session. Used on shutdown.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	all := make([]*search.Session, 0, len(s.data))
	for _, e := range s.data {
		all = append(all, e.session)
	}
	s.data = make(map[string]*entry)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
}

// evictOldest must be called with mu held.
func (s *SessionStore) evictOldest(n int) []*search.Session {
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.data[ids[i]].lastSeen.Before(s.data[ids[j]].lastSeen)
	})

	out := make([]*search.Session, 0, n)
	for _, id := range ids[:n] {
		out = append(out, s.data[id].session)
		delete(s.data, id)
	}
	return out
}
