package services

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ripple/internal/core/domain"
)

// Composer drives one send attempt through the draft state machine:
// Idle -> Validating -> (EncodingMedia)? -> Appending -> Delivered | Failed.
// Exactly one attempt may be in flight per draft; a concurrent call is
// rejected, never queued, which is what defuses a double-submit.
type Composer struct {
	media    *MediaEncoder
	convs    *ConversationService
	presence *PresenceTracker
	log      *slog.Logger
}

func NewComposer(
	log *slog.Logger,
	media *MediaEncoder,
	convs *ConversationService,
	presence *PresenceTracker,
) *Composer {
	return &Composer{
		log:      log,
		media:    media,
		convs:    convs,
		presence: presence,
	}
}

// Compose stages text and media into senderID's draft, claims it, and runs
// one send attempt. Staging and claiming happen in one step, so the attempt
// sends exactly this content even when submits race on a shared draft. On
// success the resulting message is returned for UI echo and the draft
// content is discarded; on failure the draft keeps its content and the
// typed cause is both returned and recorded in the draft snapshot.
func (c *Composer) Compose(
	ctx context.Context,
	senderID string,
	draft *domain.Draft,
	text string,
	rawMedia *domain.RawMedia,
) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "Composer.Compose", trace.WithAttributes(
		attribute.String("sender_id", senderID),
	))
	defer span.End()
	if !draft.Begin(text, rawMedia) {
		span.RecordError(domain.ErrComposeInFlight)
		return nil, domain.ErrComposeInFlight
	}
	_, _, target := draft.Content()
	// Checked before any encoding work, mirroring the store-side guard.
	if strings.TrimSpace(text) == "" && rawMedia == nil {
		draft.Fail(domain.ErrEmptyDraft)
		span.RecordError(domain.ErrEmptyDraft)
		return nil, domain.ErrEmptyDraft
	}
	var encoded *domain.EncodedMedia
	if rawMedia != nil {
		draft.Advance(domain.StateEncodingMedia)
		var err error
		if encoded, err = c.media.Encode(rawMedia); err != nil {
			draft.Fail(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "media encode failed")
			c.log.ErrorContext(ctx, "composer - compose - media encode failed", "sender_id", senderID, "err", err)
			return nil, err
		}
	}
	if target.UserID != "" && !c.presence.IsOnline(target.UserID) {
		// Delivery does not depend on the recipient being online; the
		// message lands in the log either way.
		c.log.InfoContext(ctx, "composer - compose - recipient offline", "sender_id", senderID, "recipient_id", target.UserID)
	}
	draft.Advance(domain.StateAppending)
	msg, err := c.convs.Append(ctx, senderID, target, text, encoded)
	if err != nil {
		draft.Fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		c.log.ErrorContext(ctx, "composer - compose - append failed", "sender_id", senderID, "err", err)
		return nil, err
	}
	draft.Deliver(msg)
	span.SetAttributes(
		attribute.String("conv_id", msg.ConversationID.String()),
		attribute.Int64("seq", msg.Seq),
	)
	c.log.InfoContext(ctx, "composer - compose - delivered",
		"conv_id", msg.ConversationID.String(), "sender_id", senderID, "seq", msg.Seq)
	return msg, nil
}
