package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/badoux/checkmail"

	"financeflow/internal/core"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthResult is the body of a successful login or registration.
type AuthResult struct {
	User  core.User `json:"user"`
	Token string    `json:"token"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService struct {
	client *Client
}

func NewAuthService(c *Client) *AuthService {
	return &AuthService{client: c}
}

// ValidateCredentials checks email format and a non-empty password.
func ValidateCredentials(email, password string) error {
	if err := checkmail.ValidateFormat(strings.TrimSpace(email)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidCredentials)
	}
	return nil
}

// Login authenticates and stores the issued token in the session.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	return s.authenticate(ctx, "/auth/login", email, password)
}

// Register creates an account and stores the issued token in the session.
func (s *AuthService) Register(ctx context.Context, email, password string) (AuthResult, error) {
	return s.authenticate(ctx, "/auth/register", email, password)
}

func (s *AuthService) authenticate(ctx context.Context, path, email, password string) (AuthResult, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return AuthResult{}, err
	}

	var res AuthResult
	body := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := s.client.Do(ctx, http.MethodPost, path, body, &res); err != nil {
		return AuthResult{}, err
	}
	if res.Token == "" {
		return AuthResult{}, fmt.Errorf("authenticate: backend returned no token")
	}
	if err := s.client.session.SetToken(ctx, res.Token); err != nil {
		return AuthResult{}, err
	}
	return res, nil
}

// CurrentUser resolves the user behind the session token.
func (s *AuthService) CurrentUser(ctx context.Context) (core.User, error) {
	var u core.User
	if err := s.client.Do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// Logout is local only: the backend keeps no session state.
func (s *AuthService) Logout(ctx context.Context) error {
	return s.client.session.Clear(ctx)
}
