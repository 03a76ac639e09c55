// Package session keeps per-browser state that never reaches the database:
// the comparison selection and undo/redo history of list edit drafts.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"collab-lists/pkg/comparison"
	"collab-lists/pkg/forms"
	"collab-lists/pkg/history"
)

// CookieName is the cookie carrying the session id
const CookieName = "session_id"

// Draft is the undo/redo history of one list's edit form
type Draft = history.Store[forms.ListInput]

// Session is the state of one browser. All access goes through its
// methods, which serialize concurrent requests from the same browser.
type Session struct {
	ID string

	mu         sync.Mutex
	comparison *comparison.Selection
	drafts     map[string]*Draft
	lastSeen   time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		comparison: comparison.New(),
		drafts:     make(map[string]*Draft),
		lastSeen:   now,
	}
}

// Comparison runs fn with exclusive access to the comparison selection.
func (s *Session) Comparison(fn func(sel *comparison.Selection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.comparison)
}

// Draft runs fn with exclusive access to the draft history of listID,
// creating an empty one on first use.
func (s *Session) Draft(listID string, fn func(d *Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[listID]
	if !ok {
		d = history.New[forms.ListInput]()
		s.drafts[listID] = d
	}
	fn(d)
}

// DiscardDraft forgets the draft history of listID.
func (s *Session) DiscardDraft(listID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, listID)
}

// Manager hands out sessions keyed by the session cookie.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	secure   bool
	now      func() time.Time
}

// NewManager creates a session manager. secure marks issued cookies
// Secure, for deployments behind TLS.
func NewManager(secure bool) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		secure:   secure,
		now:      time.Now,
	}
}

// Get returns the session named by the request cookie. When the cookie is
// missing or unknown a new session is created and its cookie set on w.
func (m *Manager) Get(w http.ResponseWriter, r *http.Request) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if c, err := r.Cookie(CookieName); err == nil {
		if s, ok := m.sessions[c.Value]; ok {
			s.lastSeen = now
			return s
		}
	}

	s := newSession(uuid.New().String(), now)
	m.sessions[s.ID] = s
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
