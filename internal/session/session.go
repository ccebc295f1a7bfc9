// Package session holds the authentication context shared by the request
// layer and the shell.
//
// A Session owns the bearer token and its durable copy. Invalidation (a 401
// from the backend, or an expired credential) clears both and notifies every
// registered observer; that notification is how the client moves back to the
// login state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore persists the bearer token across process restarts.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// ErrNoToken is returned by TokenStore.LoadToken when nothing is stored.
var ErrNoToken = errors.New("no stored token")

// Session is the explicit authentication context. Safe for concurrent use.
type Session struct {
	store TokenStore

	mu        sync.RWMutex
	token     string
	observers []func()
}

func New(store TokenStore) *Session {
	return &Session{store: store}
}

// Restore loads the durable token into memory. It reports whether a token
// was found.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	token, err := s.store.LoadToken(ctx)
	if errors.Is(err, ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token != "", nil
}

// Token returns the current bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken stores a freshly issued token in memory and durably.
func (s *Session) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear forgets the token without notifying observers. Used for explicit
// sign-out, where the caller already drives the state change.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Invalidate clears the token and notifies observers. Observers run
// synchronously on the calling goroutine after the lock is released.
func (s *Session) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	observers := append([]func(){}, s.observers...)
	s.mu.Unlock()

	err := s.store.ClearToken(ctx)

	for _, fn := range observers {
		fn()
	}

	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// OnInvalidate registers fn to run on every invalidation.
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Expired reports whether token is a JWT whose exp claim is before now.
// Tokens that are not JWTs, or carry no exp, are never considered expired
// here; the backend remains the authority for those.
func Expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
