// Package auth turns the shared access key into a Session that is carried
// in the request context and required by every order operation.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"orderdesk/internal/entity"

	"github.com/google/uuid"
)

const SystemSubject = "system"

type Session struct {
	ID        uuid.UUID `json:"session_id"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) ExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}

type Guard struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type Option func(*Guard)

func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

func NewGuard(accessKey string, ttl time.Duration, opts ...Option) (*Guard, error) {
	const op = "auth.NewGuard"

	if accessKey == "" {
		return nil, fmt.Errorf("%s: access key is empty", op)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%s: session ttl must be positive", op)
	}

	g := &Guard{key: []byte(accessKey), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Login checks key against the configured access key.
func (g *Guard) Login(key string) (Session, error) {
	if key == "" || subtle.ConstantTimeCompare([]byte(key), g.key) != 1 {
		return Session{}, entity.ErrUnauthorized
	}

	return g.issue("operator"), nil
}

// System issues a session for in-process callers such as the Kafka intake.
func (g *Guard) System() Session {
	return g.issue(SystemSubject)
}

func (g *Guard) issue(subject string) Session {
	now := g.now()
	return Session{
		ID:        uuid.New(),
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(g.ttl),
	}
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Require fails with ErrUnauthorized when ctx carries no session.
func Require(ctx context.Context) (Session, error) {
	s, ok := SessionFrom(ctx)
	if !ok {
		return Session{}, entity.ErrUnauthorized
	}
	return s, nil
}
