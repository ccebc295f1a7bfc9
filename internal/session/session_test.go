package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeStore struct {
	token    string
	saveErr  error
	clearErr error
	cleared  int
}

func (f *fakeStore) LoadToken(context.Context) (string, error) {
	if f.token == "" {
		return "", ErrNoToken
	}
	return f.token, nil
}

func (f *fakeStore) SaveToken(_ context.Context, token string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.token = token
	return nil
}

func (f *fakeStore) ClearToken(context.Context) error {
	f.cleared++
	f.token = ""
	return f.clearErr
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	empty := New(&fakeStore{})
	ok, err := empty.Restore(ctx)
	if err != nil || ok {
		t.Fatalf("Restore on empty store = %v, %v", ok, err)
	}

	s := New(&fakeStore{token: "abc"})
	ok, err = s.Restore(ctx)
	if err != nil || !ok {
		t.Fatalf("Restore = %v, %v", ok, err)
	}
	if s.Token() != "abc" || !s.Authenticated() {
		t.Errorf("token = %q", s.Token())
	}
}

func TestSetTokenPersists(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	if err := s.SetToken(context.Background(), "t1"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if store.token != "t1" {
		t.Errorf("store token = %q", store.token)
	}

	store.saveErr = errors.New("disk full")
	if err := s.SetToken(context.Background(), "t2"); err == nil {
		t.Error("expected save error")
	}
	if s.Token() != "t2" {
		t.Error("in-memory token should still be updated when persistence fails")
	}
}

func TestInvalidateNotifiesObservers(t *testing.T) {
	store := &fakeStore{token: "abc"}
	s := New(store)
	s.Restore(context.Background())

	calls := 0
	s.OnInvalidate(func() {
		calls++
		if s.Authenticated() {
			t.Error("observer ran before the token was cleared")
		}
	})

	if err := s.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if calls != 1 {
		t.Errorf("observer calls = %d, want 1", calls)
	}
	if store.cleared != 1 || store.token != "" {
		t.Errorf("durable token not cleared: %+v", store)
	}
}

func TestClearDoesNotNotify(t *testing.T) {
	s := New(&fakeStore{token: "abc"})
	s.OnInvalidate(func() { t.Error("Clear must not notify observers") })
	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Authenticated() {
		t.Error("token still held after Clear")
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	sign := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(exp),
		})
		s, err := tok.SignedString([]byte("k"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"expired jwt", sign(now.Add(-time.Minute)), true},
		{"valid jwt", sign(now.Add(time.Hour)), false},
		{"opaque token", "not-a-jwt", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expired(tt.token, now); got != tt.want {
				t.Errorf("Expired = %v, want %v", got, tt.want)
			}
		})
	}
}
