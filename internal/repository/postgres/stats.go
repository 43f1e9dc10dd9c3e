package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
)

// incrementStatsSQL takes the row lock through ON CONFLICT, so increments to
// one user serialise while other users proceed in parallel.
const incrementStatsSQL = `
	INSERT INTO stats (user_id, xp, messages, calls, last_updated)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id) DO UPDATE SET
		xp           = stats.xp + EXCLUDED.xp,
		messages     = stats.messages + EXCLUDED.messages,
		calls        = stats.calls + EXCLUDED.calls,
		last_updated = EXCLUDED.last_updated
	RETURNING xp, messages, calls, last_updated`

func (db *DB) GetStats(ctx context.Context, userID string) (*model.Stats, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT xp, messages, calls, last_updated FROM stats WHERE user_id = $1`, userID)
	s, err := scanStats(userID, row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ZeroStats(userID), nil
		}
		return nil, apperror.StorageUnavailable("reading stats", err)
	}
	return s, nil
}

func (db *DB) IncrementStats(ctx context.Context, userID string, delta model.StatsDelta) (*model.Stats, error) {
	row := db.pool.QueryRow(ctx, incrementStatsSQL,
		userID, delta.XP, delta.Messages, delta.Calls, db.now().UTC())
	s, err := scanStats(userID, row)
	if err != nil {
		return nil, apperror.StorageUnavailable("incrementing stats", err)
	}
	return s, nil
}

func scanStats(userID string, row pgx.Row) (*model.Stats, error) {
	s := model.Stats{UserID: userID}
	if err := row.Scan(&s.XP, &s.Messages, &s.Calls, &s.LastUpdated); err != nil {
		return nil, err
	}
	s.LastUpdated = s.LastUpdated.UTC()
	return &s, nil
}
