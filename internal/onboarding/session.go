package onboarding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"crm-copy/portal-backend/internal/notifications"
	"crm-copy/portal-backend/internal/settings"
)

// ErrSessionNotFound is returned for unknown, expired or foreign sessions
var ErrSessionNotFound = errors.New("onboarding session not found")

// BrandStore is the settings backend used by sessions
type BrandStore interface {
	SaveBrand(ctx context.Context, userID, companyName string, tone settings.BrandTone) error
	SetConnectionStatus(ctx context.Context, userID string, connected bool, accountEmail string) (*settings.ConnectionStatus, error)
}

// ToastSink forwards toasts outside the session, e.g. to open WebSocket clients
type ToastSink interface {
	Notify(ctx context.Context, userID string, severity notifications.Severity, message string)
}

// Effects collects the toasts and navigation requested while one action runs
type Effects struct {
	mu         sync.Mutex
	toasts     []notifications.Toast
	navigateTo string
}

type effectsKey struct{}

// WithEffects returns a context whose Navigate and Notify calls are recorded in the returned Effects
func WithEffects(ctx context.Context) (context.Context, *Effects) {
	e := &Effects{toasts: []notifications.Toast{}}
	return context.WithValue(ctx, effectsKey{}, e), e
}

func effectsFrom(ctx context.Context) *Effects {
	e, _ := ctx.Value(effectsKey{}).(*Effects)
	return e
}

// Toasts returns the toasts recorded so far
func (e *Effects) Toasts() []notifications.Toast {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notifications.Toast{}, e.toasts...)
}

// NavigateTo returns the last requested destination, empty when none
func (e *Effects) NavigateTo() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.navigateTo
}

// Session holds the screens mounted by one browser tab
type Session struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	Connection *ConnectionScreen
	Form       *Form

	mu       sync.Mutex
	lastSeen time.Time
	sink     ToastSink
}

// Navigate records the destination on the Effects carried by ctx
func (s *Session) Navigate(ctx context.Context, destination string) {
	if e := effectsFrom(ctx); e != nil {
		e.mu.Lock()
		e.navigateTo = destination
		e.mu.Unlock()
	}
}

// Notify records the toast on the Effects carried by ctx and forwards it to the sink
func (s *Session) Notify(ctx context.Context, severity notifications.Severity, message string) {
	if e := effectsFrom(ctx); e != nil {
		e.mu.Lock()
		e.toasts = append(e.toasts, notifications.Toast{Severity: severity, Message: message})
		e.mu.Unlock()
	}

	if s.sink != nil {
		s.sink.Notify(ctx, s.UserID, severity, message)
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// userSaver binds a BrandStore to the session owner
type userSaver struct {
	store  BrandStore
	userID string
}

func (u userSaver) Save(ctx context.Context, companyName string, tone settings.BrandTone) error {
	return u.store.SaveBrand(ctx, u.userID, companyName, tone)
}

// SessionStore keeps mounted sessions in memory
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      Config
	ttl      time.Duration
	brands   BrandStore
	sink     ToastSink
	now      func() time.Time
}

// NewSessionStore creates a store; sessions idle longer than ttl are dropped by Sweep
func NewSessionStore(cfg Config, ttl time.Duration, brands BrandStore, sink ToastSink) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		ttl:      ttl,
		brands:   brands,
		sink:     sink,
		now:      time.Now,
	}
}

// Mount creates fresh screens for userID
func (st *SessionStore) Mount(userID string) *Session {
	now := st.now()
	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		lastSeen:  now,
		sink:      st.sink,
	}
	s.Connection = NewConnectionScreen(s, st.cfg)
	s.Form = NewForm(userSaver{store: st.brands, userID: userID}, s, s, st.cfg)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	return s
}

// Get returns the session if it belongs to userID
func (st *SessionStore) Get(id, userID string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()

	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	s.touch(st.now())
	return s, nil
}

// Unmount discards the session. An in-flight save still completes.
func (st *SessionStore) Unmount(id, userID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok || s.UserID != userID {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Sweep drops idle sessions and returns how many were removed
func (st *SessionStore) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.ttl && !s.Form.IsSaving() {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of mounted sessions
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
