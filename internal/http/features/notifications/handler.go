package notifications

import (
	"log/slog"
	"net/http"

	"github.com/medira/clinic-server/internal/httputil"
	"github.com/medira/clinic-server/internal/notification"
)

// Handler exposes the recent-send history kept by the notification
// send log.
type Handler struct {
	logger *slog.Logger
	sends  *notification.Log
}

// NewHandler creates a new notifications handler.
func NewHandler(logger *slog.Logger, sends *notification.Log) *Handler {
	return &Handler{logger: logger, sends: sends}
}

// List returns recently sent messages, newest first.
// GET /v1/notifications
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{"sends": h.sends.Recent()})
}
