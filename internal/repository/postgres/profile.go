package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
)

const profileColumns = `user_id, display_name, avatar_url, bio, created_at`

const upsertProfileSQL = `
	INSERT INTO profiles (user_id, display_name, avatar_url, bio, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id) DO UPDATE SET
		display_name = CASE WHEN $6::boolean THEN EXCLUDED.display_name ELSE profiles.display_name END,
		avatar_url   = CASE WHEN $7::boolean THEN EXCLUDED.avatar_url   ELSE profiles.avatar_url   END,
		bio          = CASE WHEN $8::boolean THEN EXCLUDED.bio          ELSE profiles.bio          END
	RETURNING ` + profileColumns

func (db *DB) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, apperror.StorageUnavailable("reading profile", err)
	}
	return p, nil
}

// UpsertProfile merges update into the row under the conflict row lock.
func (db *DB) UpsertProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	row := db.pool.QueryRow(ctx, upsertProfileSQL,
		userID,
		model.StoredValue(update.DisplayName),
		model.StoredValue(update.AvatarURL),
		model.StoredValue(update.Bio),
		db.now().UTC(),
		update.DisplayName != nil,
		update.AvatarURL != nil,
		update.Bio != nil,
	)
	p, err := scanProfile(row)
	if err != nil {
		return nil, apperror.StorageUnavailable("writing profile", err)
	}
	return p, nil
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.UserID, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
