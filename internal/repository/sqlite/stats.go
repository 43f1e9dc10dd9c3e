package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
)

// incrementStatsSQL is the only statement that mutates counters. Which
// counter moves is decided by the bound deltas, never by the SQL text, so
// caller input cannot select a column.
const incrementStatsSQL = `
	INSERT INTO stats (user_id, xp, messages, calls, last_updated)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		xp           = stats.xp + excluded.xp,
		messages     = stats.messages + excluded.messages,
		calls        = stats.calls + excluded.calls,
		last_updated = excluded.last_updated
	RETURNING xp, messages, calls, last_updated`

// GetStats returns the user's counters, or a zero snapshot when the user has
// none yet. The read never creates a row.
func (db *DB) GetStats(ctx context.Context, userID string) (*model.Stats, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT xp, messages, calls, last_updated FROM stats WHERE user_id = ?`,
		userID,
	)
	s, err := scanStats(userID, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ZeroStats(userID), nil
		}
		return nil, apperror.StorageUnavailable("reading stats", err)
	}
	return s, nil
}

// IncrementStats applies delta in one upsert. SQLite runs the statement
// under its write lock, so concurrent increments cannot interleave.
func (db *DB) IncrementStats(ctx context.Context, userID string, delta model.StatsDelta) (*model.Stats, error) {
	row := db.conn.QueryRowContext(ctx, incrementStatsSQL,
		userID,
		delta.XP,
		delta.Messages,
		delta.Calls,
		db.now().Unix(),
	)
	s, err := scanStats(userID, row)
	if err != nil {
		return nil, apperror.StorageUnavailable("incrementing stats", err)
	}
	return s, nil
}

func scanStats(userID string, row *sql.Row) (*model.Stats, error) {
	var (
		s           = model.Stats{UserID: userID}
		lastUpdated int64
	)
	if err := row.Scan(&s.XP, &s.Messages, &s.Calls, &lastUpdated); err != nil {
		return nil, err
	}
	s.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	return &s, nil
}
