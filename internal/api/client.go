// Package api is the remote access layer for the FinanceFlow backend.
//
// Every call goes through Client.Do, which attaches the bearer token of the
// session, decodes JSON responses and turns non-2xx answers into errors. A
// 401 invalidates the session before the error is returned; callers can
// treat errors matching ErrUnauthorized as already handled.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"financeflow/internal/log"
	"financeflow/internal/session"
)

var ErrUnauthorized = errors.New("unauthorized")

const (
	fallbackMessage = "An error occurred"
	noMessage       = "API request failed"
)

// APIError is a non-2xx response. A 401 APIError matches ErrUnauthorized
// under errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Client performs authenticated requests against the backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAPI) }
}

// NewClient creates a client for baseURL (e.g. http://localhost:5000/api).
// The http.Client has no timeout; cancellation is through the context.
func NewClient(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		session: sess,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// Do sends one request. body, when non-nil, is encoded as JSON. out, when
// non-nil, receives the decoded response; an empty body decodes nothing.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
		if resp.StatusCode == http.StatusUnauthorized {
			c.logger.WarnContext(ctx, "Session rejected by backend", log.FieldMethod, method, log.FieldPath, path)
			if c.session != nil {
				if err := c.session.Invalidate(ctx); err != nil {
					c.logger.ErrorContext(ctx, "Failed to clear stored credential", log.FieldError, err)
				}
			}
			return apiErr
		}
		c.logger.DebugContext(ctx, "Backend request failed",
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldStatusCode, resp.StatusCode,
			log.FieldError, apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var body struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return fallbackMessage
	}
	if body.Message == nil || *body.Message == "" {
		return noMessage
	}
	return *body.Message
}
