// Package service holds the ledger's business rules: input validation, the
// Profile Upsert Protocol, the Counter Update Protocol and the reward table.
//
// Services take repository interfaces and return apperror kinds; they know
// nothing about HTTP. Validation always runs before a repository call, so a
// rejected request never touches storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
	"github.com/privachat/statledger/internal/repository"
)

// Field limits, in characters.
const (
	MaxUserIDLength      = 255
	MaxDisplayNameLength = 100
	MaxAvatarURLLength   = 500
	MaxBioLength         = 500
)

// ProfileService implements profile reads and the merge upsert.
type ProfileService struct {
	repo   repository.ProfileRepository
	logger *slog.Logger
}

func NewProfileService(repo repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		repo:   repo,
		logger: logger,
	}
}

// Get returns the user's profile or apperror.ErrNotFound.
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to read profile",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}
	return p, nil
}

// Upsert validates update and merges it into the user's profile, creating the
// profile when absent. Fields left nil keep their stored values.
func (s *ProfileService) Upsert(ctx context.Context, userID string, update model.ProfileUpdate) (*model.Profile, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	if err := ValidateProfileUpdate(update); err != nil {
		return nil, err
	}

	p, err := s.repo.UpsertProfile(ctx, userID, update)
	if err != nil {
		s.logger.Error("failed to upsert profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("upserting profile: %w", err)
	}

	s.logger.Info("profile upserted", slog.String("user_id", userID))
	return p, nil
}

// ValidateProfileUpdate enforces the per-field length limits. It is pure.
func ValidateProfileUpdate(update model.ProfileUpdate) error {
	checks := []struct {
		field string
		label string
		value *string
		max   int
	}{
		{"display_name", "Display name", update.DisplayName, MaxDisplayNameLength},
		{"avatar_url", "Avatar URL", update.AvatarURL, MaxAvatarURLLength},
		{"bio", "Bio", update.Bio, MaxBioLength},
	}
	for _, c := range checks {
		if c.value != nil && utf8.RuneCountInString(*c.value) > c.max {
			return apperror.ValidationFailed(c.field,
				fmt.Sprintf("%s too long (max %d characters)", c.label, c.max))
		}
	}
	return nil
}

// normalizeUserID trims and bounds an external user identifier.
func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", apperror.ValidationFailed("user_id", "user id is required")
	}
	if utf8.RuneCountInString(userID) > MaxUserIDLength {
		return "", apperror.ValidationFailed("user_id",
			fmt.Sprintf("user id must be %d characters or less", MaxUserIDLength))
	}
	return userID, nil
}
