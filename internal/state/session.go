package state

import (
	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/model"
)

// SessionState is the authentication slice.
type SessionState struct {
	Identity        *model.User
	IsAuthenticated bool
	// IsLoading is true while any session operation is in flight.
	IsLoading bool
	Error     string
}

func (s SessionState) clone() SessionState {
	if s.Identity != nil {
		u := *s.Identity
		u.Roles = append([]string(nil), u.Roles...)
		s.Identity = &u
	}
	return s
}

// SessionPending marks a session operation as started and clears the error.
func (s *Store) SessionPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionInflight++
	s.session.IsLoading = true
	s.session.Error = ""
	s.commit()
}

func (s *Store) sessionSettled() {
	if s.sessionInflight > 0 {
		s.sessionInflight--
	}
	s.session.IsLoading = s.sessionInflight > 0
}

// LoginFulfilled records the authenticated identity.
func (s *Store) LoginFulfilled(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionSettled()
	s.session.Identity = &user
	s.session.IsAuthenticated = true
	s.commit()
}

// LoginRejected records a failed login; the session is unauthenticated.
func (s *Store) LoginRejected(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionSettled()
	s.session.IsAuthenticated = false
	s.session.Error = message
	s.commit()
}

// RegisterFulfilled settles a registration. Registration does not log in.
func (s *Store) RegisterFulfilled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionSettled()
	s.commit()
}

// IdentityFulfilled replaces the identity without touching IsAuthenticated.
func (s *Store) IdentityFulfilled(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionSettled()
	s.session.Identity = &user
	s.commit()
}

// SessionRejected settles a failed register or identity fetch.
func (s *Store) SessionRejected(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionSettled()
	s.session.Error = message
	s.commit()
}

// MarkAuthenticated flags a session restored from stored credentials.
func (s *Store) MarkAuthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.IsAuthenticated = true
	s.commit()
}

// LogoutFulfilled settles a logout and returns the slice to its initial
// unauthenticated state.
func (s *Store) LogoutFulfilled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionSettled()
	s.session = SessionState{IsLoading: s.sessionInflight > 0}
	s.commit()
}

// SessionExpired resets the slice and reports the forced logout.
func (s *Store) SessionExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = SessionState{
		IsLoading: s.sessionInflight > 0,
		Error:     apierror.SessionExpiredMessage,
	}
	s.commit()
}

// ClearSessionError empties the session error.
func (s *Store) ClearSessionError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Error == "" {
		return
	}
	s.session.Error = ""
	s.commit()
}
