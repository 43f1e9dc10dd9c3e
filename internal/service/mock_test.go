package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
)

// memStore is an in-memory Record Store. It counts write calls so tests can
// assert that rejected requests never reached storage.
type memStore struct {
	mu       sync.Mutex
	profiles map[string]model.Profile
	stats    map[string]model.Stats
	writes   int
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]model.Profile),
		stats:    make(map[string]model.Stats),
	}
}

func (m *memStore) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	return &p, nil
}

func (m *memStore) UpsertProfile(_ context.Context, userID string, u model.ProfileUpdate) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWith != nil {
		return nil, m.failWith
	}
	p := m.profiles[userID]
	p.UserID = userID
	if u.DisplayName != nil {
		p.DisplayName = model.StoredValue(u.DisplayName)
	}
	if u.AvatarURL != nil {
		p.AvatarURL = model.StoredValue(u.AvatarURL)
	}
	if u.Bio != nil {
		p.Bio = model.StoredValue(u.Bio)
	}
	m.profiles[userID] = p
	return &p, nil
}

func (m *memStore) GetStats(_ context.Context, userID string) (*model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	s, ok := m.stats[userID]
	if !ok {
		return model.ZeroStats(userID), nil
	}
	return &s, nil
}

func (m *memStore) IncrementStats(_ context.Context, userID string, d model.StatsDelta) (*model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failWith != nil {
		return nil, m.failWith
	}
	s := m.stats[userID]
	s.UserID = userID
	s.XP += d.XP
	s.Messages += d.Messages
	s.Calls += d.Calls
	m.stats[userID] = s
	return &s, nil
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProfileService(t *testing.T) (*ProfileService, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewProfileService(store, testLogger()), store
}

func newTestStatsService(t *testing.T) (*StatsService, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewStatsService(store, testLogger()), store
}

func strp(s string) *string { return &s }
