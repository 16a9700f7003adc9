package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kpauljoseph/ankix/internal/collection"
	"github.com/kpauljoseph/ankix/internal/feedback"
	"github.com/kpauljoseph/ankix/internal/importer"
	"github.com/kpauljoseph/ankix/internal/pdf"
	"github.com/kpauljoseph/ankix/internal/upload"
	"github.com/kpauljoseph/ankix/pkg/logger"
)

const (
	CookieName = "ankix_session"
	DefaultTTL = time.Hour
)

// Session is everything one browser has selected, generated and edited.
type Session struct {
	ID         string
	Upload     *upload.Controller
	Collection *collection.Collection
	Feedback   *feedback.Form

	mu       sync.Mutex
	download *importer.Download
	lastSeen time.Time
}

func (s *Session) SetDownload(d importer.Download) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.download = &d
}

func (s *Session) Download() *importer.Download {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.download == nil {
		return nil
	}
	d := *s.download
	return &d
}

// TakeDownload forgets the last download and returns it, nil if none.
func (s *Session) TakeDownload() *importer.Download {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.download
	s.download = nil
	return d
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Deps are the shared collaborators every session is built from.
type Deps struct {
	Generator          upload.Generator
	Inspector          pdf.PDFInspector
	Counter            upload.Incrementer
	FeedbackSender     feedback.Sender
	FeedbackLimiter    *rate.Limiter
	FeedbackClearAfter time.Duration
	Logger             *logger.Logger
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
	ttl      time.Duration
	now      func() time.Time
	secure   bool
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithSecureCookie marks the session cookie Secure for HTTPS deployments.
func WithSecureCookie(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

func NewManager(deps Deps, ttl time.Duration, options ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		deps:     deps,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Manager) Create() *Session {
	coll := collection.New()
	s := &Session{
		ID:         uuid.NewString(),
		Collection: coll,
		Upload:     upload.NewController(m.deps.Generator, m.deps.Inspector, m.deps.Counter, coll, m.deps.Logger),
		Feedback: feedback.NewForm(m.deps.FeedbackSender, m.deps.Logger,
			feedback.WithLimiter(m.deps.FeedbackLimiter),
			feedback.WithClearAfter(m.deps.FeedbackClearAfter),
			feedback.WithClock(m.now),
		),
		lastSeen: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	m.deps.Logger.Debug("Created session %s (%d active)", s.ID, len(m.sessions))
	return s
}

// Get returns a live session. A session past its TTL is dropped here
// rather than waiting for the next Sweep.
func (m *Manager) Get(id string) (*Session, bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if s.idleSince(now) >= m.ttl {
		delete(m.sessions, id)
		m.deps.Logger.Debug("Session %s expired", id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// Resolve returns the caller's session, creating one and setting the cookie
// when the request has none or an expired one.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) *Session {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if s, ok := m.Get(cookie.Value); ok {
			return s
		}
	}

	s := m.Create()
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

// Sweep evicts sessions idle for longer than the TTL.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.idleSince(now) >= m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.deps.Logger.Debug("Evicted %d idle sessions", removed)
	}
	return removed
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
