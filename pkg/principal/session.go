package principal

import "sync"

// Session tracks the currently signed-in principal.
// Safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	current *Principal
	changed chan struct{}
}

// NewSession creates a session with no principal.
func NewSession() *Session {
	return &Session{changed: make(chan struct{})}
}

// NewSessionWith creates a session already signed in as p.
func NewSessionWith(p *Principal) *Session {
	s := NewSession()
	s.current = p
	return s
}

// Current returns the signed-in principal.
// The second value is false when nobody is signed in.
func (s *Session) Current() (*Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// SignIn replaces the current principal and notifies watchers.
// A nil principal is equivalent to SignOut.
func (s *Session) SignIn(p *Principal) {
	s.set(p)
}

// SignOut clears the current principal and notifies watchers.
func (s *Session) SignOut() {
	s.set(nil)
}

// Changed returns a channel closed on the next SignIn or SignOut.
// Call it again after it fires to wait for the following change.
func (s *Session) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

func (s *Session) set(p *Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = p
	close(s.changed)
	s.changed = make(chan struct{})
}
