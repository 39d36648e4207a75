package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"ripple/internal/core/domain"
	"ripple/internal/core/services"
	"ripple/pkg/logging"
	"ripple/pkg/middleware"
)

type GroupHandler struct {
	membership *services.MembershipService
}

func NewGroupHandler(m *services.MembershipService) *GroupHandler {
	return &GroupHandler{membership: m}
}

type groupResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	creatorID, _ := r.Context().Value(middleware.UserIDKey).(string)
	var req struct {
		Name      string   `json:"name"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	conv, err := h.membership.CreateGroup(r.Context(), req.Name, creatorID, req.MemberIDs)
	if err != nil {
		log.LogAttrs(r.Context(), slog.LevelError, "group handler - create failed",
			logging.Sender(creatorID), logging.Err(err))
		writeError(w, err)
		return
	}
	members, err := h.membership.ListMembers(r.Context(), conv.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{
		ID:        conv.ID.String(),
		Name:      conv.Name,
		MemberIDs: members,
	})
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	h.mutateMember(w, r, h.membership.AddMember)
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	h.mutateMember(w, r, h.membership.RemoveMember)
}

func (h *GroupHandler) mutateMember(
	w http.ResponseWriter,
	r *http.Request,
	mutate func(ctx context.Context, convID uuid.UUID, userID string) error,
) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, domain.ErrInvalidConversation)
		return
	}
	userID := r.PathValue("user_id")
	if userID == "" {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		userID = req.UserID
	}
	if err := mutate(r.Context(), convID, userID); err != nil {
		log.LogAttrs(r.Context(), slog.LevelError, "group handler - member mutation failed",
			logging.Conversation(convID.String()), logging.Err(err))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
