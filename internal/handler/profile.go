package handler

import (
	"log/slog"
	"net/http"

	"github.com/privachat/statledger/internal/model"
	"github.com/privachat/statledger/internal/service"
)

// ProfileHandler serves the profile endpoints.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGet returns a stored profile.
//
// HTTP: GET /api/profile/{user_id}
// 404 when the user never saved a profile.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), UserIDParam(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpsert creates or updates a profile.
//
// HTTP: PUT /api/profile/{user_id}
// REQUEST BODY: {"display_name": "Alice", "avatar_url": "https://...", "bio": "..."}
//
// Omitted fields keep their stored value, "" clears a field. The response is
// the stored profile after the write.
func (h *ProfileHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var update model.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		h.logger.Warn("invalid profile body", slog.String("error", err.Error()))
		writeBadRequest(w, err.Error())
		return
	}

	p, err := h.profiles.Upsert(r.Context(), UserIDParam(r), update)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
