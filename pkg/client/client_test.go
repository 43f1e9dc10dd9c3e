package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privachat/statledger/internal/auth"
	"github.com/privachat/statledger/internal/config"
	"github.com/privachat/statledger/internal/server"
	"github.com/privachat/statledger/pkg/client"
)

func startLedger(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	cfg := config.Config{
		Port:            8080,
		DBDriver:        config.DriverSQLite,
		DBPath:          filepath.Join(t.TempDir(), "ledger.db"),
		RateLimitMax:    1000,
		RateLimitWindow: time.Minute,
		CORSOrigins:     "*",
		LogLevel:        "info",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := server.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts.URL
}

func strp(s string) *string { return &s }

func TestClient_Health(t *testing.T) {
	c := client.New(startLedger(t, nil) + "/")

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestClient_ProfileRoundTrip(t *testing.T) {
	c := client.New(startLedger(t, nil))
	ctx := context.Background()
	user := "@alice:matrix.org"

	_, err := c.GetProfile(ctx, user)
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))

	p, err := c.UpdateProfile(ctx, user, client.ProfileUpdate{DisplayName: strp("Alice"), Bio: strp("hi")})
	require.NoError(t, err)
	assert.Equal(t, user, p.UserID)

	p, err = c.UpdateProfile(ctx, user, client.ProfileUpdate{Bio: strp("")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", *p.DisplayName)
	assert.Nil(t, p.Bio)

	got, err := c.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestClient_ValidationError(t *testing.T) {
	c := client.New(startLedger(t, nil))

	_, err := c.UpdateStats(context.Background(), "u1", "drop table", 1)
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Code)
	assert.Equal(t, "type", apiErr.Field)
}

func TestClient_Counters(t *testing.T) {
	c := client.New(startLedger(t, nil))
	ctx := context.Background()

	_, err := c.AwardXP(ctx, "u1", 7)
	require.NoError(t, err)
	_, err = c.IncrementMessages(ctx, "u1")
	require.NoError(t, err)
	s, err := c.IncrementCalls(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, client.Stats{XP: 7, Messages: 1, Calls: 1}, *s)
}

func TestSession_Events(t *testing.T) {
	c := client.New(startLedger(t, nil))
	ctx := context.Background()
	s := c.Session("@bob:matrix.org")

	_, err := s.MessageSent(ctx)
	require.NoError(t, err)
	_, err = s.CallPlaced(ctx)
	require.NoError(t, err)
	_, err = s.CallAnswered(ctx)
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, client.Stats{XP: 25, Messages: 1, Calls: 2}, *stats)

	_, err = s.UpdateProfile(ctx, client.ProfileUpdate{DisplayName: strp("Bob")})
	require.NoError(t, err)
	p, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bob", *p.DisplayName)
	assert.Equal(t, "@bob:matrix.org", s.UserID())
}

func TestClient_BearerToken(t *testing.T) {
	const secret = "client-test-secret-0123456789"
	url := startLedger(t, func(c *config.Config) { c.JWTSecret = secret })
	ctx := context.Background()

	_, err := client.New(url).IncrementCalls(ctx, "u1")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	tokens, err := auth.NewTokenService(secret)
	require.NoError(t, err)
	tok, err := tokens.Generate("u1")
	require.NoError(t, err)

	s, err := client.New(url, client.WithToken(tok)).IncrementCalls(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Calls)
}

func TestClient_RateLimitedPlainText(t *testing.T) {
	url := startLedger(t, func(c *config.Config) { c.RateLimitMax = 1 })
	c := client.New(url)
	ctx := context.Background()

	_, err := c.Health(ctx)
	require.NoError(t, err)

	_, err = c.Health(ctx)
	require.Error(t, err)
	assert.True(t, client.IsRateLimited(err))

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "too_many_requests", apiErr.Code)
	assert.Contains(t, apiErr.Message, "Too many requests from this IP")
}
