package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ripple/internal/core/contracts"
	"ripple/internal/core/domain"
)

var tracer = otel.Tracer("conversation-service")

// ConversationService owns the per-conversation ordered message log. Seq
// assignment happens inside one transaction per append, so concurrent
// appends to the same conversation serialize on the sequence row and ids
// come out gapless and strictly increasing.
type ConversationService struct {
	convRepo domain.ConversationRepository
	partRepo domain.ParticipantRepository
	msgRepo  domain.MessageRepository
	tx       contracts.TxManager
	log      *slog.Logger
}

func NewConversationService(
	log *slog.Logger,
	convRepo domain.ConversationRepository,
	partRepo domain.ParticipantRepository,
	msgRepo domain.MessageRepository,
	tx contracts.TxManager,
) *ConversationService {
	return &ConversationService{
		log:      log,
		convRepo: convRepo,
		partRepo: partRepo,
		msgRepo:  msgRepo,
		tx:       tx,
	}
}

// Append validates and persists one message. A user target resolves to the
// direct conversation with the sender, creating it on first contact; a
// conversation target must already exist and groups require membership.
func (s *ConversationService) Append(
	ctx context.Context,
	senderID string,
	target domain.Target,
	text string,
	media *domain.EncodedMedia,
) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "ConversationService.Append", trace.WithAttributes(
		attribute.String("sender_id", senderID),
	))
	defer span.End()
	text = strings.TrimSpace(text)
	if text == "" && media == nil {
		span.RecordError(domain.ErrEmptyMessage)
		return nil, domain.ErrEmptyMessage
	}
	if target.IsZero() || senderID == "" {
		span.RecordError(domain.ErrInvalidConversation)
		return nil, domain.ErrInvalidConversation
	}
	msg := &domain.Message{
		ID:        uuid.New(),
		SenderID:  senderID,
		Text:      text,
		Media:     media,
		CreatedAt: time.Now(),
	}
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		conv, err := s.resolveTarget(txCtx, senderID, target)
		if err != nil {
			return err
		}
		msg.ConversationID = conv.ID
		seq, err := s.msgRepo.AppendWithSeq(txCtx, msg)
		if err != nil {
			return wrapStoreErr(err)
		}
		msg.Seq = seq
		return nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		s.log.ErrorContext(ctx, "conversations - append - persist failed", "sender_id", senderID, "err", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("conv_id", msg.ConversationID.String()),
		attribute.Int64("seq", msg.Seq),
	)
	s.log.InfoContext(ctx, "conversations - append - persist success",
		"conv_id", msg.ConversationID.String(), "sender_id", senderID, "seq", msg.Seq)
	return msg, nil
}

// ReadAfter returns all messages with seq greater than afterSeq in
// ascending seq order. afterSeq zero reads the full history.
func (s *ConversationService) ReadAfter(
	ctx context.Context,
	convID uuid.UUID,
	afterSeq int64,
) ([]domain.Message, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversation
	}
	msgs, err := s.msgRepo.ListAfter(ctx, convID, afterSeq)
	if err != nil {
		s.log.ErrorContext(ctx, "conversations - read after - list failed", "conv_id", convID.String(), "err", err)
		return nil, wrapStoreErr(err)
	}
	return msgs, nil
}

// History is the membership-gated read: it returns the messages after
// afterSeq only when userID is a participant of the conversation.
func (s *ConversationService) History(
	ctx context.Context,
	userID string,
	convID uuid.UUID,
	afterSeq int64,
) ([]domain.Message, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversation
	}
	if _, err := s.convRepo.GetConversationByID(ctx, convID); err != nil {
		return nil, wrapStoreErr(err)
	}
	member, err := s.partRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if !member {
		return nil, domain.ErrNotAMember
	}
	return s.ReadAfter(ctx, convID, afterSeq)
}

// LastSeq reports the current tail position of a conversation. Sync loops
// use it as their starting cursor.
func (s *ConversationService) LastSeq(ctx context.Context, convID uuid.UUID) (int64, error) {
	seq, err := s.msgRepo.LastSeq(ctx, convID)
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return seq, nil
}

func (s *ConversationService) GetConversation(ctx context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return conv, nil
}

// EnsureDirect finds or creates the direct conversation between two users.
func (s *ConversationService) EnsureDirect(ctx context.Context, a, b string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		conv, err = s.ensureDirect(txCtx, a, b)
		return err
	}); err != nil {
		s.log.ErrorContext(ctx, "conversations - ensure direct - failed", "user_a", a, "user_b", b, "err", err)
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) resolveTarget(ctx context.Context, senderID string, target domain.Target) (*domain.Conversation, error) {
	if target.UserID != "" {
		return s.ensureDirect(ctx, senderID, target.UserID)
	}
	conv, err := s.convRepo.GetConversationByID(ctx, target.ConversationID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConversation) {
			return nil, err
		}
		return nil, wrapStoreErr(err)
	}
	// Direct or group, only participants may write. Knowing a direct
	// thread's id must not grant access to it.
	member, err := s.partRepo.IsParticipant(ctx, conv.ID, senderID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if !member {
		return nil, domain.ErrNotAMember
	}
	return conv, nil
}

func (s *ConversationService) ensureDirect(ctx context.Context, a, b string) (*domain.Conversation, error) {
	if a == "" || b == "" || a == b {
		return nil, domain.ErrInvalidConversation
	}
	key := domain.DirectKey(a, b)
	conv, err := s.convRepo.FindDirect(ctx, key)
	if err == nil && conv != nil {
		return conv, nil
	}
	if err != nil && !errors.Is(err, domain.ErrInvalidConversation) {
		return nil, wrapStoreErr(err)
	}
	conv = &domain.Conversation{
		ID:        uuid.New(),
		Kind:      domain.KindDirect,
		CreatedAt: time.Now(),
	}
	if err := s.convRepo.CreateConversation(ctx, conv, key); err != nil {
		return nil, wrapStoreErr(err)
	}
	for _, uid := range []string{a, b} {
		if err := s.partRepo.AddParticipant(ctx, conv.ID, uid); err != nil {
			return nil, wrapStoreErr(err)
		}
	}
	return conv, nil
}

// wrapStoreErr keeps domain sentinels intact and folds driver failures into
// the storage-unavailable class the caller can show to users.
func wrapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidConversation),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrNotAMember),
		errors.Is(err, domain.ErrStorageUnavailable):
		return err
	default:
		return errors.Join(domain.ErrStorageUnavailable, err)
	}
}
