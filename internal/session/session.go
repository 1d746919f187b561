// Package session is the explicit lifecycle object for an authenticated user.
// A session is initialised from a bearer token and torn down on logout, at
// which point the token is revoked and every live subscription attached to
// it is closed.
package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
)

// ContextKey is the gin context key holding the current *Session.
const ContextKey = "session"

// Principal is the identity tuple every domain operation is evaluated against.
type Principal struct {
	UserID     uuid.UUID   `json:"user_id"`
	Role       entity.Role `json:"role"`
	Department string      `json:"department"`
	Year       int         `json:"year"`
}

func (p Principal) IsStudent() bool { return p.Role == entity.RoleStudent }
func (p Principal) IsFaculty() bool { return p.Role == entity.RoleFaculty }
func (p Principal) IsAdmin() bool   { return p.Role == entity.RoleAdmin }

// PrincipalOf builds the identity tuple of a stored user.
func PrincipalOf(u *entity.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role, Department: u.Department, Year: u.Year}
}

type Session struct {
	ID        string
	Principal Principal
	ExpiresAt time.Time

	mu      sync.Mutex
	closers map[int]io.Closer
	nextKey int
	closed  bool
}

func newSession(id string, p Principal, expiresAt time.Time) *Session {
	return &Session{ID: id, Principal: p, ExpiresAt: expiresAt, closers: make(map[int]io.Closer)}
}

// ErrClosed is returned when attaching to a session that was torn down.
var ErrClosed = errors.New("session closed")

// Attach registers a resource to be closed on teardown. The returned detach
// func removes it again without closing it.
func (s *Session) Attach(c io.Closer) (detach func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}, ErrClosed
	}

	key := s.nextKey
	s.nextKey++
	s.closers[key] = c

	return func() {
		s.mu.Lock()
		delete(s.closers, key)
		s.mu.Unlock()
	}, nil
}

// Live reports how many resources are currently attached.
func (s *Session) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.closers)
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = make(map[int]io.Closer)
	s.mu.Unlock()

	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Printf("Failed to close session resource: %v", err)
		}
	}
}

// Current returns the session stored on a request context such as *gin.Context.
func Current(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ContextKey).(*Session)
	return s, ok && s != nil
}
