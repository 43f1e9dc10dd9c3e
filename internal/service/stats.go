package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
	"github.com/privachat/statledger/internal/repository"
)

const (
	// DefaultIncrement is applied when a caller does not specify a delta.
	DefaultIncrement int64 = 1
	// MaxIncrement bounds a single increment so counters stay far from overflow.
	MaxIncrement int64 = 1_000_000
)

// StatsService implements the Counter Update Protocol.
type StatsService struct {
	repo   repository.StatsRepository
	logger *slog.Logger
}

func NewStatsService(repo repository.StatsRepository, logger *slog.Logger) *StatsService {
	return &StatsService{
		repo:   repo,
		logger: logger,
	}
}

// Get returns the user's counters; a user with no row reads as zeros.
func (s *StatsService) Get(ctx context.Context, userID string) (*model.Stats, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.GetStats(ctx, userID)
	if err != nil {
		s.logger.Error("failed to read stats",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return stats, nil
}

// Increment adds delta to the counter named counterName. The name must be one
// of xp, messages or calls; anything else is rejected before storage is touched.
// Deltas must be positive: counters only grow.
func (s *StatsService) Increment(ctx context.Context, userID, counterName string, delta int64) (*model.Stats, error) {
	counter, ok := model.ParseCounter(counterName)
	if !ok {
		return nil, apperror.ValidationFailed("type", "Invalid stat type")
	}
	return s.IncrementCounter(ctx, userID, counter, delta)
}

// IncrementCounter is Increment for callers that already hold a Counter.
func (s *StatsService) IncrementCounter(ctx context.Context, userID string, counter model.Counter, delta int64) (*model.Stats, error) {
	if !counter.Valid() {
		return nil, apperror.ValidationFailed("type", "Invalid stat type")
	}
	if err := validateDelta(delta); err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, model.DeltaFor(counter, delta), slog.String("counter", counter.String()))
}

// AwardXP adds amount to the user's xp.
func (s *StatsService) AwardXP(ctx context.Context, userID string, amount int64) (*model.Stats, error) {
	return s.IncrementCounter(ctx, userID, model.CounterXP, amount)
}

// IncrementMessages counts one sent message.
func (s *StatsService) IncrementMessages(ctx context.Context, userID string) (*model.Stats, error) {
	return s.IncrementCounter(ctx, userID, model.CounterMessages, 1)
}

// IncrementCalls counts one placed or answered call.
func (s *StatsService) IncrementCalls(ctx context.Context, userID string) (*model.Stats, error) {
	return s.IncrementCounter(ctx, userID, model.CounterCalls, 1)
}

func (s *StatsService) apply(ctx context.Context, userID string, delta model.StatsDelta, attrs ...any) (*model.Stats, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.IncrementStats(ctx, userID, delta)
	if err != nil {
		s.logger.Error("failed to increment stats",
			append([]any{
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			}, attrs...)...,
		)
		return nil, fmt.Errorf("incrementing stats: %w", err)
	}

	s.logger.Info("stats incremented",
		append([]any{
			slog.String("user_id", userID),
			slog.Int64("xp", stats.XP),
			slog.Int64("messages", stats.Messages),
			slog.Int64("calls", stats.Calls),
		}, attrs...)...,
	)
	return stats, nil
}

func validateDelta(delta int64) error {
	if delta < 1 {
		return apperror.ValidationFailed("increment", "increment must be a positive integer")
	}
	if delta > MaxIncrement {
		return apperror.ValidationFailed("increment",
			fmt.Sprintf("increment must be %d or less", MaxIncrement))
	}
	return nil
}
