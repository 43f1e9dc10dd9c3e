// Package client is a Go client for the PrivaChat stat ledger HTTP API.
//
//	c := client.New("http://localhost:8080", client.WithToken(tok))
//	s := c.Session("@alice:matrix.org")
//	stats, err := s.MessageSent(ctx)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Profile mirrors the server's profile document.
type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileUpdate is a merge update: nil fields are left untouched, a pointer
// to "" clears the field.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

type Stats struct {
	XP       int64 `json:"xp"`
	Messages int64 `json:"messages"`
	Calls    int64 `json:"calls"`
}

type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Counter and event names accepted by the API.
const (
	CounterXP       = "xp"
	CounterMessages = "messages"
	CounterCalls    = "calls"

	EventMessageSent  = "message_sent"
	EventCallPlaced   = "call_placed"
	EventCallAnswered = "call_answered"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ledger: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is a 429 from the API.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends tok as a bearer token on every request.
func WithToken(tok string) Option {
	return func(c *Client) { c.token = tok }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// GetProfile returns the user's profile; IsNotFound(err) when none exists.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, userPath("profile", userID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodPut, userPath("profile", userID), update, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetStats(ctx context.Context, userID string) (*Stats, error) {
	var s Stats
	if err := c.do(ctx, http.MethodGet, userPath("stats", userID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStats adds increment to counter and returns the counters after the write.
func (c *Client) UpdateStats(ctx context.Context, userID, counter string, increment int64) (*Stats, error) {
	body := struct {
		Type      string `json:"type"`
		Increment int64  `json:"increment"`
	}{counter, increment}

	var s Stats
	if err := c.do(ctx, http.MethodPost, userPath("stats", userID), body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) AwardXP(ctx context.Context, userID string, amount int64) (*Stats, error) {
	return c.UpdateStats(ctx, userID, CounterXP, amount)
}

func (c *Client) IncrementMessages(ctx context.Context, userID string) (*Stats, error) {
	return c.UpdateStats(ctx, userID, CounterMessages, 1)
}

func (c *Client) IncrementCalls(ctx context.Context, userID string) (*Stats, error) {
	return c.UpdateStats(ctx, userID, CounterCalls, 1)
}

// RecordEvent reports a chat event and lets the server apply its reward.
func (c *Client) RecordEvent(ctx context.Context, userID, event string) (*Stats, error) {
	body := struct {
		Type string `json:"type"`
	}{event}

	var s Stats
	if err := c.do(ctx, http.MethodPost, userPath("events", userID), body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func userPath(resource, userID string) string {
	return "/api/" + resource + "/" + url.PathEscape(userID)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeAPIError understands both JSON error bodies and the rate limiter's
// plain-text rejection.
func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Field   string `json:"field"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
		apiErr.Field = body.Field
		return apiErr
	}

	apiErr.Code = strings.ReplaceAll(strings.ToLower(http.StatusText(resp.StatusCode)), " ", "_")
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}
