package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
)

const profileColumns = `user_id, display_name, avatar_url, bio, created_at`

// upsertProfileSQL inserts a new row or merges the supplied fields into the
// existing one. The three trailing flags say which fields were supplied; an
// unsupplied field keeps its stored value. created_at is written on insert only.
const upsertProfileSQL = `
	INSERT INTO profiles (user_id, display_name, avatar_url, bio, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		display_name = CASE WHEN ? THEN excluded.display_name ELSE profiles.display_name END,
		avatar_url   = CASE WHEN ? THEN excluded.avatar_url   ELSE profiles.avatar_url   END,
		bio          = CASE WHEN ? THEN excluded.bio          ELSE profiles.bio          END
	RETURNING ` + profileColumns

// GetProfile retrieves a profile by user id.
// Returns apperror.ErrNotFound if the user has no profile yet.
func (db *DB) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`,
		userID,
	)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, apperror.StorageUnavailable("reading profile", err)
	}
	return p, nil
}

// UpsertProfile creates the profile or merges update into it in a single statement.
func (db *DB) UpsertProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	row := db.conn.QueryRowContext(ctx, upsertProfileSQL,
		userID,
		nullString(model.StoredValue(update.DisplayName)),
		nullString(model.StoredValue(update.AvatarURL)),
		nullString(model.StoredValue(update.Bio)),
		db.now().Unix(),
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

func scanProfile(row *sql.Row) (*model.Profile, error) {
	var (
		p                        model.Profile
		displayName, avatar, bio sql.NullString
		createdAt                int64
	)
	if err := row.Scan(&p.UserID, &displayName, &avatar, &bio, &createdAt); err != nil {
		return nil, err
	}
	p.DisplayName = stringPtr(displayName)
	p.AvatarURL = stringPtr(avatar)
	p.Bio = stringPtr(bio)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
