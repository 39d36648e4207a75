package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ripple/internal/core/contracts"
	"ripple/internal/core/domain"
	"ripple/internal/core/services"
	"ripple/pkg/logging"
	"ripple/pkg/middleware"
)

// MessageHandler is the polling transport: compose over POST, history over
// GET with an after_seq cursor. Socketless clients live entirely on these
// two routes.
type MessageHandler struct {
	composer   *services.Composer
	convs      *services.ConversationService
	directory  *services.DirectoryService
	appendFeed contracts.AppendFeed
}

func NewMessageHandler(
	composer *services.Composer,
	convs *services.ConversationService,
	directory *services.DirectoryService,
	appendFeed contracts.AppendFeed,
) *MessageHandler {
	return &MessageHandler{
		composer:   composer,
		convs:      convs,
		directory:  directory,
		appendFeed: appendFeed,
	}
}

type messageResponse struct {
	ID             string               `json:"id"`
	ConversationID string               `json:"conversation_id"`
	SenderID       string               `json:"sender_id"`
	Seq            int64                `json:"seq"`
	Text           string               `json:"text"`
	Media          *domain.EncodedMedia `json:"media,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID,
		Seq:            m.Seq,
		Text:           m.Text,
		Media:          m.Media,
		CreatedAt:      m.CreatedAt,
	}
}

// Compose handles one REST send. Each request gets a fresh draft, so the
// in-flight guard here protects against double-submits that share a
// connection, not across requests.
func (h *MessageHandler) Compose(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	senderID, _ := r.Context().Value(middleware.UserIDKey).(string)
	var req struct {
		ToUser         string `json:"to_user,omitempty"`
		ConversationID string `json:"conversation_id,omitempty"`
		Text           string `json:"text"`
		Media          string `json:"media,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if _, err := h.directory.EnsureUser(r.Context(), senderID); err != nil {
		writeError(w, err)
		return
	}
	target := domain.Target{UserID: req.ToUser}
	if req.ConversationID != "" {
		cid, err := uuid.Parse(req.ConversationID)
		if err != nil {
			writeError(w, domain.ErrInvalidConversation)
			return
		}
		target = domain.Target{ConversationID: cid}
	} else if req.ToUser != "" {
		// Direct sends require a known recipient.
		if _, err := h.directory.EnsureUser(r.Context(), req.ToUser); err != nil {
			writeError(w, err)
			return
		}
	}
	var raw *domain.RawMedia
	if req.Media != "" {
		var err error
		if raw, err = services.ParseDataURL(req.Media); err != nil {
			writeError(w, err)
			return
		}
	}
	draft := domain.NewDraft(target)
	msg, err := h.composer.Compose(r.Context(), senderID, draft, req.Text, raw)
	if err != nil {
		log.LogAttrs(r.Context(), slog.LevelError, "message handler - compose failed",
			logging.Sender(senderID), logging.Err(err))
		writeError(w, err)
		return
	}
	if err := h.appendFeed.PublishAppend(r.Context(), msg.ConversationID.String()); err != nil {
		log.LogAttrs(r.Context(), slog.LevelWarn, "message handler - append notify failed",
			logging.Conversation(msg.ConversationID.String()), logging.Err(err))
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(*msg))
}

// History returns messages after the given seq in order, to participants
// only.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	userID, _ := r.Context().Value(middleware.UserIDKey).(string)
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, domain.ErrInvalidConversation)
		return
	}
	var afterSeq int64
	if raw := r.URL.Query().Get("after_seq"); raw != "" {
		if afterSeq, err = strconv.ParseInt(raw, 10, 64); err != nil {
			http.Error(w, "invalid after_seq", http.StatusBadRequest)
			return
		}
	}
	msgs, err := h.convs.History(r.Context(), userID, convID, afterSeq)
	if err != nil {
		log.LogAttrs(r.Context(), slog.LevelError, "message handler - history failed",
			logging.Conversation(convID.String()), logging.Err(err))
		writeError(w, err)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}
