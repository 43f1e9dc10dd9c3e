// Package repository declares the Record Store contracts. Implementations live
// in the sqlite and postgres subpackages; nothing else mutates profile or stats rows.
package repository

import (
	"context"

	"github.com/privachat/statledger/internal/model"
)

type ProfileRepository interface {
	// GetProfile returns apperror.ErrNotFound when the user has no profile row.
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	// UpsertProfile creates or merges the row in one atomic step and returns it.
	UpsertProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error)
}

type StatsRepository interface {
	// GetStats never reports NotFound: a missing row reads as zeros.
	GetStats(ctx context.Context, userID string) (*model.Stats, error)
	// IncrementStats adds delta to the user's counters atomically, creating a
	// zero row first when none exists, and returns the post-write snapshot.
	IncrementStats(ctx context.Context, userID string, delta model.StatsDelta) (*model.Stats, error)
}

// Store is a complete Record Store backend.
type Store interface {
	ProfileRepository
	StatsRepository
	Ping(ctx context.Context) error
	Close() error
}
