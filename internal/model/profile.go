// Package model defines the records owned by the stat ledger.
package model

import "time"

// Profile is the per-user profile row. Optional fields are nil when unset
// and render as JSON null, matching a freshly created row.
type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileUpdate carries the fields supplied by an upsert.
//
// A nil field was not supplied and keeps its stored value. A non-nil empty
// string clears the field. Anything else replaces it.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// StoredValue returns the value a store should persist for a supplied field:
// nil clears the column, otherwise the string itself.
func StoredValue(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
