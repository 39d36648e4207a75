package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/core/domain"
)

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{domain.ErrEmptyDraft, "empty_draft", http.StatusUnprocessableEntity},
		{domain.ErrEmptyMessage, "empty_message", http.StatusUnprocessableEntity},
		{domain.ErrUnsupportedMediaType, "unsupported_media_type", http.StatusUnprocessableEntity},
		{domain.ErrMediaTooLarge, "media_too_large", http.StatusUnprocessableEntity},
		{domain.ErrMediaRead, "media_read_failed", http.StatusUnprocessableEntity},
		{domain.ErrEmptyGroupName, "empty_group_name", http.StatusUnprocessableEntity},
		{domain.ErrNoMembers, "no_members", http.StatusUnprocessableEntity},
		{domain.ErrInvalidConversation, "invalid_conversation", http.StatusNotFound},
		{domain.ErrUserNotFound, "user_not_found", http.StatusNotFound},
		{domain.ErrNotAMember, "not_a_member", http.StatusForbidden},
		{domain.ErrComposeInFlight, "send_in_progress", http.StatusConflict},
		{domain.ErrStorageUnavailable, "storage_unavailable", http.StatusServiceUnavailable},
		{errors.New("surprise"), "internal", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, errCode(tc.err))
		assert.Equal(t, tc.status, errStatus(tc.err))
	}
}

func TestErrorMappingSeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("compose: %w", domain.ErrMediaTooLarge)
	assert.Equal(t, "media_too_large", errCode(wrapped))
	assert.Equal(t, http.StatusUnprocessableEntity, errStatus(wrapped))

	joined := errors.Join(domain.ErrStorageUnavailable, errors.New("dial tcp: refused"))
	assert.Equal(t, "storage_unavailable", errCode(joined))
}

func TestWriteErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, domain.ErrComposeInFlight)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "send_in_progress", body["code"])
}
