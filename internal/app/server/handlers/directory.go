package handlers

import (
	"log/slog"
	"net/http"

	"ripple/internal/core/services"
	"ripple/pkg/logging"
	"ripple/pkg/middleware"
)

type DirectoryHandler struct {
	directory *services.DirectoryService
	presence  *services.PresenceTracker
}

func NewDirectoryHandler(d *services.DirectoryService, p *services.PresenceTracker) *DirectoryHandler {
	return &DirectoryHandler{directory: d, presence: p}
}

type userEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	Online      bool   `json:"online"`
}

// ListUsers serves the sidebar: every known user with a live online flag.
func (h *DirectoryHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	users, err := h.directory.ListUsers(r.Context())
	if err != nil {
		log.LogAttrs(r.Context(), slog.LevelError, "directory handler - list users failed", logging.Err(err))
		writeError(w, err)
		return
	}
	out := make([]userEntry, 0, len(users))
	for _, u := range users {
		out = append(out, userEntry{
			ID:          u.ID,
			DisplayName: u.DisplayName,
			AvatarRef:   u.AvatarRef,
			Online:      h.presence.IsOnline(u.ID),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
