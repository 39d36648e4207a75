package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ripple/internal/app/registry"
	"ripple/internal/app/server/ws"
	"ripple/internal/core/contracts"
	"ripple/internal/core/domain"
	"ripple/internal/core/services"
	"ripple/pkg/logging"
	"ripple/pkg/middleware"
)

// WSHandler upgrades one authenticated connection into a conversation
// view: presence comes up, history flows through the sync loop, and
// composes arrive over the socket against a single long-lived draft.
type WSHandler struct {
	hub        *registry.Registry
	composer   *services.Composer
	convs      *services.ConversationService
	membership *services.MembershipService
	directory  *services.DirectoryService
	presence   *services.PresenceTracker
	feed       contracts.PresenceFeed
	appendFeed contracts.AppendFeed
}

func NewWSHandler(
	hub *registry.Registry,
	composer *services.Composer,
	convs *services.ConversationService,
	membership *services.MembershipService,
	directory *services.DirectoryService,
	presence *services.PresenceTracker,
	feed contracts.PresenceFeed,
	appendFeed contracts.AppendFeed,
) *WSHandler {
	return &WSHandler{
		hub:        hub,
		composer:   composer,
		convs:      convs,
		membership: membership,
		directory:  directory,
		presence:   presence,
		feed:       feed,
		appendFeed: appendFeed,
	}
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log, _ := r.Context().Value(middleware.LoggerKey).(*slog.Logger)
	span := trace.SpanFromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))
	if _, err := s.directory.EnsureUser(r.Context(), userID); err != nil {
		log.LogAttrs(r.Context(), slog.LevelError, "ws handler - ensure user failed",
			logging.Sender(userID), logging.Err(err))
		writeError(w, err)
		return
	}
	conv, target, err := s.resolveView(r, userID)
	if err != nil {
		log.LogAttrs(r.Context(), slog.LevelError, "ws handler - resolve view failed",
			logging.Sender(userID), logging.Err(err))
		writeError(w, err)
		return
	}

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", "err", err)
		cancel()
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - ws closed", "user_id", userID)
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)

	// The delta is idempotent, so applying locally before the feed echo
	// lands is harmless and makes the handshake snapshot current.
	s.presence.ApplyUpdate(domain.PresenceUpdate{Kind: domain.PresenceDelta, UserID: userID, IsUp: true})
	if err := s.feed.PublishDelta(ctx, userID, true); err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "ws handler - presence up publish failed",
			logging.Sender(userID), logging.Err(err))
	}
	_ = conn.WriteJSON(domain.HandshakeResponse{
		Type:           domain.TypeHandshake,
		ConversationID: conv.ID.String(),
		Online:         s.presence.Snapshot(),
	})
	span.SetAttributes(
		attribute.String("chat.user_id", userID),
		attribute.String("chat.conv_id", conv.ID.String()),
	)
	log.LogAttrs(r.Context(), slog.LevelInfo, "ws handler - ws connection established",
		logging.Sender(userID),
		logging.Conversation(conv.ID.String()),
		logging.TraceID(span.SpanContext().TraceID().String()))

	client := ws.NewClient(ctx, socket, userID, conv.ID.String())
	s.hub.Register(client)
	defer func() {
		s.hub.Unregister(client)
		// Another tab may still hold a connection; the user goes down
		// only with the last one.
		if s.hub.Connected(userID) {
			return
		}
		s.presence.ApplyUpdate(domain.PresenceUpdate{Kind: domain.PresenceDelta, UserID: userID, IsUp: false})
		if err := s.feed.PublishDelta(context.WithoutCancel(ctx), userID, false); err != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "ws handler - presence down publish failed",
				logging.Sender(userID), logging.Err(err))
		}
	}()

	// One draft for the life of the connection: a second compose while one
	// is in flight is rejected, not queued.
	draft := domain.NewDraft(target)
	socket.ReadLoop(func(data []byte) {
		go s.handleCompose(ctx, log, userID, draft, data)
	})
}

// resolveView maps the query to a conversation: conv_id joins an existing
// thread the user belongs to, to_user opens or creates the direct thread
// with a known user.
func (s *WSHandler) resolveView(r *http.Request, userID string) (*domain.Conversation, domain.Target, error) {
	if convID := r.URL.Query().Get("conv_id"); convID != "" {
		cid, err := uuid.Parse(convID)
		if err != nil {
			return nil, domain.Target{}, domain.ErrInvalidConversation
		}
		conv, err := s.convs.GetConversation(r.Context(), cid)
		if err != nil {
			return nil, domain.Target{}, err
		}
		// Members only, direct threads included.
		member, err := s.membership.IsMember(r.Context(), cid, userID)
		if err != nil {
			return nil, domain.Target{}, err
		}
		if !member {
			return nil, domain.Target{}, domain.ErrNotAMember
		}
		return conv, domain.Target{ConversationID: conv.ID}, nil
	}
	toUser := r.URL.Query().Get("to_user")
	if toUser == "" {
		return nil, domain.Target{}, domain.ErrInvalidConversation
	}
	if _, err := s.directory.EnsureUser(r.Context(), toUser); err != nil {
		return nil, domain.Target{}, err
	}
	conv, err := s.convs.EnsureDirect(r.Context(), userID, toUser)
	if err != nil {
		return nil, domain.Target{}, err
	}
	return conv, domain.Target{ConversationID: conv.ID}, nil
}

func (s *WSHandler) handleCompose(ctx context.Context, log *slog.Logger, userID string, draft *domain.Draft, raw []byte) {
	var req domain.ComposeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Error("ws handler - compose - wrong format", "user_id", userID)
		s.hub.SendAck(ctx, userID, domain.AckMessage{
			Type:      domain.TypeAck,
			Status:    domain.AckFailed,
			Code:      "bad_request",
			Timestamp: time.Now(),
		})
		return
	}
	var rawMedia *domain.RawMedia
	if req.Media != "" {
		var err error
		if rawMedia, err = services.ParseDataURL(req.Media); err != nil {
			s.ackFailure(ctx, userID, req.ClientMsgID, err)
			return
		}
	}
	msg, err := s.composer.Compose(ctx, userID, draft, req.Text, rawMedia)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelError, "ws handler - compose failed",
			logging.Sender(userID), logging.ClientMsg(req.ClientMsgID), logging.Err(err))
		s.ackFailure(ctx, userID, req.ClientMsgID, err)
		return
	}
	s.hub.SendAck(ctx, userID, domain.AckMessage{
		Type:        domain.TypeAck,
		ClientMsgID: req.ClientMsgID,
		Status:      domain.AckDelivered,
		Seq:         msg.Seq,
		Timestamp:   time.Now(),
	})
	if err := s.appendFeed.PublishAppend(ctx, msg.ConversationID.String()); err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "ws handler - append notify failed",
			logging.Conversation(msg.ConversationID.String()), logging.Err(err))
	}
	log.LogAttrs(ctx, slog.LevelInfo, "ws handler - compose delivered",
		logging.Sender(userID), logging.Conversation(msg.ConversationID.String()), logging.Sequence(msg.Seq))
}

func (s *WSHandler) ackFailure(ctx context.Context, userID, clientMsgID string, cause error) {
	s.hub.SendAck(ctx, userID, domain.AckMessage{
		Type:        domain.TypeAck,
		ClientMsgID: clientMsgID,
		Status:      domain.AckFailed,
		Code:        errCode(cause),
		Timestamp:   time.Now(),
	})
}
