package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
)

// newTestDB opens a file-backed database in a per-test temp dir so WAL and
// the connection pragmas are exercised the way production uses them.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strp(s string) *string { return &s }

// =========================================================================
// PROFILE TESTS
// =========================================================================

func TestGetProfile_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetProfile(context.Background(), "@nobody:matrix.org")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "error = %v, want ErrNotFound", err)
}

func TestUpsertProfile_CreatesRow(t *testing.T) {
	db := newTestDB(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	p, err := db.UpsertProfile(context.Background(), "@alice:matrix.org", model.ProfileUpdate{
		DisplayName: strp("Alice"),
	})
	require.NoError(t, err)

	assert.Equal(t, "@alice:matrix.org", p.UserID)
	require.NotNil(t, p.DisplayName)
	assert.Equal(t, "Alice", *p.DisplayName)
	assert.Nil(t, p.AvatarURL)
	assert.Nil(t, p.Bio)
	assert.Equal(t, fixed, p.CreatedAt)

	got, err := db.GetProfile(context.Background(), "@alice:matrix.org")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestUpsertProfile_EmptyUpdateCreatesAllNullRow(t *testing.T) {
	db := newTestDB(t)

	p, err := db.UpsertProfile(context.Background(), "u1", model.ProfileUpdate{})
	require.NoError(t, err)
	assert.Nil(t, p.DisplayName)
	assert.Nil(t, p.AvatarURL)
	assert.Nil(t, p.Bio)

	// An all-null row is still a row, distinct from "no profile".
	_, err = db.GetProfile(context.Background(), "u1")
	assert.NoError(t, err)
}

func TestUpsertProfile_MergesSuppliedFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertProfile(ctx, "u1", model.ProfileUpdate{
		DisplayName: strp("Alice"),
		Bio:         strp("hello"),
	})
	require.NoError(t, err)

	p, err := db.UpsertProfile(ctx, "u1", model.ProfileUpdate{
		AvatarURL: strp("https://example.com/a.png"),
	})
	require.NoError(t, err)

	require.NotNil(t, p.DisplayName)
	assert.Equal(t, "Alice", *p.DisplayName, "omitted field must keep its value")
	require.NotNil(t, p.Bio)
	assert.Equal(t, "hello", *p.Bio)
	require.NotNil(t, p.AvatarURL)
	assert.Equal(t, "https://example.com/a.png", *p.AvatarURL)
}

func TestUpsertProfile_EmptyStringClears(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.UpsertProfile(ctx, "u1", model.ProfileUpdate{DisplayName: strp("Alice"), Bio: strp("bio")})
	require.NoError(t, err)

	p, err := db.UpsertProfile(ctx, "u1", model.ProfileUpdate{Bio: strp("")})
	require.NoError(t, err)

	assert.Nil(t, p.Bio)
	require.NotNil(t, p.DisplayName)
	assert.Equal(t, "Alice", *p.DisplayName)
}

func TestUpsertProfile_CreatedAtImmutable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return first }
	_, err := db.UpsertProfile(ctx, "u1", model.ProfileUpdate{DisplayName: strp("A")})
	require.NoError(t, err)

	db.now = func() time.Time { return first.Add(48 * time.Hour) }
	p, err := db.UpsertProfile(ctx, "u1", model.ProfileUpdate{DisplayName: strp("B")})
	require.NoError(t, err)

	assert.Equal(t, first, p.CreatedAt)
	assert.Equal(t, "B", *p.DisplayName)
}

// =========================================================================
// STATS TESTS
// =========================================================================

func TestGetStats_ZeroDefaultWithoutPersisting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s, err := db.GetStats(ctx, "never-seen")
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.XP)
	assert.Equal(t, int64(0), s.Messages)
	assert.Equal(t, int64(0), s.Calls)

	var count int
	require.NoError(t, db.conn.QueryRow(`SELECT COUNT(*) FROM stats`).Scan(&count))
	assert.Equal(t, 0, count, "reading stats must not create a row")
}

func TestGetStats_IdempotentRead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.IncrementStats(ctx, "u1", model.StatsDelta{XP: 3, Calls: 1})
	require.NoError(t, err)

	a, err := db.GetStats(ctx, "u1")
	require.NoError(t, err)
	b, err := db.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIncrementStats_Additive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, n := range []int64{5, 10, 1} {
		_, err := db.IncrementStats(ctx, "u1", model.DeltaFor(model.CounterXP, n))
		require.NoError(t, err)
	}

	s, err := db.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(16), s.XP)
	assert.Equal(t, int64(0), s.Messages)
	assert.Equal(t, int64(0), s.Calls)
}

func TestIncrementStats_ReturnsSnapshotAndTouchesTimestamp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	db.now = func() time.Time { return at }

	s, err := db.IncrementStats(ctx, "u1", model.StatsDelta{XP: 5, Messages: 1})
	require.NoError(t, err)

	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, int64(5), s.XP)
	assert.Equal(t, int64(1), s.Messages)
	assert.Equal(t, at, s.LastUpdated)
}

func TestIncrementStats_UsersAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.IncrementStats(ctx, "u1", model.DeltaFor(model.CounterCalls, 2))
	require.NoError(t, err)
	_, err = db.IncrementStats(ctx, "u2", model.DeltaFor(model.CounterCalls, 7))
	require.NoError(t, err)

	s1, _ := db.GetStats(ctx, "u1")
	s2, _ := db.GetStats(ctx, "u2")
	assert.Equal(t, int64(2), s1.Calls)
	assert.Equal(t, int64(7), s2.Calls)
}

func TestIncrementStats_ConcurrentNoLostUpdates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.IncrementStats(ctx, "u1", model.DeltaFor(model.CounterMessages, 1)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent increment failed: %v", err)
	}

	s, err := db.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), s.Messages)
}

func TestStorageUnavailableAfterClose(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())

	_, err := db.GetStats(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnavailable), "error = %v, want ErrUnavailable", err)

	_, err = db.IncrementStats(context.Background(), "u1", model.StatsDelta{XP: 1})
	assert.True(t, errors.Is(err, apperror.ErrUnavailable), "error = %v, want ErrUnavailable", err)
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	db, err := New(path)
	require.NoError(t, err)
	_, err = db.IncrementStats(ctx, "u1", model.StatsDelta{XP: 42})
	require.NoError(t, err)
	_, err = db.UpsertProfile(ctx, "u1", model.ProfileUpdate{DisplayName: strp("Alice")})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()

	s, err := db.GetStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), s.XP)

	p, err := db.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", *p.DisplayName)
}

func TestInMemoryDatabase(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.IncrementStats(context.Background(), "u1", model.StatsDelta{Calls: 1})
	require.NoError(t, err)
	s, err := db.GetStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Calls)
}
