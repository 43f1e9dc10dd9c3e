package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/privachat/statledger/internal/apperror"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleHealth is the liveness check. It does not touch storage.
//
// HTTP: GET /api/health
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Message: "PrivaChat API is running",
	})
}

// Pinger is satisfied by every repository.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleReady returns a readiness check that checks storage is reachable.
//
// HTTP: GET /api/ready
// 503 storage_unavailable while the store cannot be pinged.
func HandleReady(store Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Error("readiness check failed", slog.String("error", err.Error()))
			WriteError(w, apperror.StorageUnavailable("pinging", err))
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Message: "storage reachable"})
	}
}
