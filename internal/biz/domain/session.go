package domain

import (
	"sync"
	"sync/atomic"
)

// Settings keys under which registration credentials are persisted
const (
	SettingToken      = "token"
	SettingSessionID  = "session_id"
	SettingSessionKey = "session_key"
	SettingHostTime   = "host_time"
)

// Credentials are the long-lived registration credentials obtained by SMS verification.
// They are replaced wholesale on re-registration, never patched.
type Credentials struct {
	Token      string
	SessionKey string
	SessionID  string
	HostTime   uint32
}

// IsZero reports whether no token is present
func (c Credentials) IsZero() bool {
	return c.Token == ""
}

// Session is the descriptor of an active session.
// Everything but FetchBaseURL is fixed once the session is started.
type Session struct {
	Credentials Credentials
	AimSID      string // Session id used to authenticate calls
	AimID       string // Account id of the logged in user
	// FetchBaseURL is the single-use long-poll cursor, rotated after every poll
	FetchBaseURL string
}

// SessionSlot is the account-level owner of the active session.
// Readers take a copy; the cursor and the session itself are only written under the write lock.
type SessionSlot struct {
	mu      sync.RWMutex
	session *Session

	closed   atomic.Bool
	doneOnce sync.Once
	done     chan struct{}
}

// NewSessionSlot creates an empty slot
func NewSessionSlot() *SessionSlot {
	return &SessionSlot{done: make(chan struct{})}
}

// Install replaces the active session
func (s *SessionSlot) Install(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
}

// Session returns a copy of the active session
func (s *SessionSlot) Session() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return Session{}, ErrNoSession
	}
	return *s.session, nil
}

// SetCursor installs the next long-poll target
func (s *SessionSlot) SetCursor(fetchBaseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoSession
	}
	s.session.FetchBaseURL = fetchBaseURL
	return nil
}

// Close marks the session closed and discards the descriptor.
// Pollers observe this at the top of their loop.
func (s *SessionSlot) Close() {
	s.closed.Store(true)
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

// Closed reports whether Close was called
func (s *SessionSlot) Closed() bool {
	return s.closed.Load()
}

// Done is closed when the slot is closed
func (s *SessionSlot) Done() <-chan struct{} {
	return s.done
}
