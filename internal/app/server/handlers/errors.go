package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ripple/internal/core/domain"
)

// errCode maps a typed failure onto the stable code clients key their
// messaging on. Never the raw error string.
func errCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyDraft):
		return "empty_draft"
	case errors.Is(err, domain.ErrComposeInFlight):
		return "send_in_progress"
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		return "unsupported_media_type"
	case errors.Is(err, domain.ErrMediaTooLarge):
		return "media_too_large"
	case errors.Is(err, domain.ErrMediaRead):
		return "media_read_failed"
	case errors.Is(err, domain.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, domain.ErrInvalidConversation):
		return "invalid_conversation"
	case errors.Is(err, domain.ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, domain.ErrEmptyGroupName):
		return "empty_group_name"
	case errors.Is(err, domain.ErrNoMembers):
		return "no_members"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "internal"
	}
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyDraft),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrUnsupportedMediaType),
		errors.Is(err, domain.ErrMediaTooLarge),
		errors.Is(err, domain.ErrMediaRead),
		errors.Is(err, domain.ErrEmptyGroupName),
		errors.Is(err, domain.ErrNoMembers):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidConversation),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAMember):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrComposeInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"code": errCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
