package handler

import (
	"log/slog"
	"net/http"

	"github.com/privachat/statledger/internal/model"
	"github.com/privachat/statledger/internal/service"
)

// StatsHandler serves the counter and event endpoints.
type StatsHandler struct {
	stats  *service.StatsService
	logger *slog.Logger
}

func NewStatsHandler(stats *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// IncrementRequest is the body of POST /api/stats/{user_id}.
// Increment defaults to 1 when omitted.
type IncrementRequest struct {
	Type      string `json:"type"`
	Increment *int64 `json:"increment,omitempty"`
}

// EventRequest is the body of POST /api/events/{user_id}.
type EventRequest struct {
	Type model.Event `json:"type"`
}

// HandleGet returns the user's counters.
//
// HTTP: GET /api/stats/{user_id}
// RESPONSE: {"xp": 15, "messages": 3, "calls": 0}
//
// Never 404: a user without a stats row reads as all zeros.
func (h *StatsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.stats.Get(r.Context(), UserIDParam(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleIncrement adds to one counter.
//
// HTTP: POST /api/stats/{user_id}
// REQUEST BODY: {"type": "xp", "increment": 5}
func (h *StatsHandler) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	var req IncrementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid stats body", slog.String("error", err.Error()))
		writeBadRequest(w, err.Error())
		return
	}

	delta := service.DefaultIncrement
	if req.Increment != nil {
		delta = *req.Increment
	}

	s, err := h.stats.Increment(r.Context(), UserIDParam(r), req.Type, delta)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleEvent applies the reward for a chat-client event.
//
// HTTP: POST /api/events/{user_id}
// REQUEST BODY: {"type": "message_sent"}
func (h *StatsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid event body", slog.String("error", err.Error()))
		writeBadRequest(w, err.Error())
		return
	}

	s, err := h.stats.RecordEvent(r.Context(), UserIDParam(r), req.Type)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
