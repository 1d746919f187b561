package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/pkg/apperror"
)

type Claims struct {
	Role       entity.Role `json:"role"`
	Department string      `json:"department"`
	Year       int         `json:"year"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	store  RevocationStore
	now    func() time.Time

	mu   sync.Mutex
	live map[string]*Session
}

func NewManager(secret string, ttl time.Duration, store RevocationStore) *Manager {
	if store == nil {
		store = NewMemoryRevocationStore()
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		now:    time.Now,
		live:   make(map[string]*Session),
	}
}

// Issue signs a token for the principal.
func (m *Manager) Issue(p Principal) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Role:       p.Role,
		Department: p.Department,
		Year:       p.Year,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Init validates a token and returns its live session.
func (m *Manager) Init(ctx context.Context, tokenString string) (*Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", apperror.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid token claims", apperror.ErrUnauthorized)
	}

	revoked, err := m.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperror.Transport(err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session has ended", apperror.ErrUnauthorized)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.live[claims.ID]; ok && !s.Closed() {
		return s, nil
	}

	s := newSession(claims.ID, Principal{
		UserID:     userID,
		Role:       claims.Role,
		Department: claims.Department,
		Year:       claims.Year,
	}, claims.ExpiresAt.Time)
	m.live[claims.ID] = s
	return s, nil
}

// Teardown revokes the session token and closes everything attached to it.
func (m *Manager) Teardown(ctx context.Context, s *Session) error {
	m.mu.Lock()
	delete(m.live, s.ID)
	m.mu.Unlock()

	s.close()

	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.store.Revoke(ctx, s.ID, ttl); err != nil {
		return apperror.Transport(err)
	}
	return nil
}

// Sweep drops expired sessions from the live table and closes their resources.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.live {
		if now.After(s.ExpiresAt) {
			expired = append(expired, s)
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}
