package pipeline

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Session is a page load kept alive so later route changes can be applied
// to it.
type Session struct {
	mu sync.Mutex

	ID   string `json:"session_id"`
	Path string `json:"path"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	load *PageLoad
}

// NewSession wraps pl.
func NewSession(id, path string, pl *PageLoad, now time.Time) *Session {
	return &Session{ID: id, Path: path, CreatedAt: now, UpdatedAt: now, load: pl}
}

// Load returns the page load of the session.
func (s *Session) Load() *PageLoad {
	return s.load
}

// Touch marks the session as used at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdatedAt
}

// SessionSnapshot is a read-only, JSON-safe copy of session state.
type SessionSnapshot struct {
	ID        string           `json:"session_id"`
	Path      string           `json:"path"`
	Phase     string           `json:"phase"`
	Route     string           `json:"route"`
	Hero      bool             `json:"hero"`
	Tabs      []string         `json:"tabs"`
	Active    string           `json:"active,omitempty"`
	Delayed   string           `json:"delayed"`
	Durations map[string]int64 `json:"durations_ms"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	snap := SessionSnapshot{
		ID:        s.ID,
		Path:      s.Path,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Tabs:      []string{},
		Delayed:   "unscheduled",
		Durations: map[string]int64{},
	}
	s.mu.Unlock()

	pl := s.load
	phase, _ := pl.Phase()
	snap.Phase = phase.String()
	snap.Route = pl.Router.CurrentRoute()
	res := pl.AutoBlocks()
	snap.Hero = res.Hero
	if tabs := res.Tabs; tabs != nil {
		// Tab state lives in the document; route changes rewrite it.
		_ = pl.Page.Exclusive(func() error {
			snap.Tabs = tabs.IDs()
			snap.Active = tabs.ActiveID()
			return nil
		})
	}
	if d := pl.Delayed(); d != nil {
		snap.Delayed = d.State().String()
	}
	for p, d := range pl.Durations() {
		snap.Durations[p.String()] = d.Milliseconds()
	}
	if err := pl.Err(); err != nil {
		snap.Error = err.Error()
	}
	return snap
}

// SessionStore is a thread-safe in-memory session registry with TTL
// eviction.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	clock    clockwork.Clock
}

func NewSessionStore(ttl time.Duration, clock clockwork.Clock) *SessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		clock:    clock,
	}
}

func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Get returns the session and marks it used, or nil.
func (s *SessionStore) Get(id string) *Session {
	s.mu.Lock()
	sess := s.sessions[id]
	s.mu.Unlock()
	if sess != nil {
		sess.Touch(s.clock.Now())
	}
	return sess
}

// Delete removes and closes a session. It reports whether one existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.load.Close()
	}
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes and closes expired sessions, and returns how many.
func (s *SessionStore) Cleanup() int {
	now := s.clock.Now()
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.idleSince()) > s.ttl {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.load.Close()
	}
	return len(expired)
}

// CloseAll removes and closes every session.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.load.Close()
	}
}
