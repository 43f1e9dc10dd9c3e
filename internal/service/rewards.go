package service

import (
	"context"
	"log/slog"

	"github.com/privachat/statledger/internal/apperror"
	"github.com/privachat/statledger/internal/model"
)

// XP awarded per chat-client event.
const (
	MessageXP = 5
	CallXP    = 10
)

// rewards maps each event to the counters it moves. All of an event's
// counters change in one atomic increment.
var rewards = map[model.Event]model.StatsDelta{
	model.EventMessageSent:  {Messages: 1, XP: MessageXP},
	model.EventCallPlaced:   {Calls: 1, XP: CallXP},
	model.EventCallAnswered: {Calls: 1, XP: CallXP},
}

// RewardFor returns the delta earned by event.
func RewardFor(event model.Event) (model.StatsDelta, bool) {
	d, ok := rewards[event]
	return d, ok
}

// RecordEvent applies the reward for a chat-client event to the user's stats.
func (s *StatsService) RecordEvent(ctx context.Context, userID string, event model.Event) (*model.Stats, error) {
	delta, ok := RewardFor(event)
	if !ok {
		return nil, apperror.ValidationFailed("type", "Invalid event type")
	}
	return s.apply(ctx, userID, delta, slog.String("event", string(event)))
}
