package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"ripple/internal/core/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

/*
	CREATE TABLE messages (
		id              UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		sender_id       TEXT NOT NULL,
		seq             BIGINT NOT NULL,
		text            TEXT NOT NULL DEFAULT '',
		media_kind      TEXT,
		media_mime      TEXT,
		media_size      BIGINT,
		media_payload   TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (conversation_id, seq)
	);
*/

// AppendWithSeq bumps the conversation sequence and inserts the message.
// The UPDATE takes a row lock on the sequence row, so concurrent appends to
// the same conversation serialize here and seqs come out gapless.
func (r *MessageRepo) AppendWithSeq(ctx context.Context, msg *domain.Message) (int64, error) {
	if msg.ConversationID == uuid.Nil {
		return 0, domain.ErrInvalidConversation
	}
	exec := GetExecutor(ctx, r.db)
	var seq int64
	err := exec.QueryRowContext(ctx, `
        UPDATE conversation_sequences
        SET last_seq = last_seq + 1
        WHERE conversation_id = $1
        RETURNING last_seq
    `, msg.ConversationID).Scan(&seq)
	if err != nil {
		if err == sql.ErrNoRows {
			// No sequence row = conversation does not exist
			return 0, domain.ErrInvalidConversation
		}
		return 0, err
	}
	var kind, mime, payload any
	var size any
	if m := msg.Media; m != nil {
		kind, mime, size, payload = string(m.Kind), m.MimeType, m.SizeBytes, m.Payload
	}
	_, err = exec.ExecContext(ctx, `
        INSERT INTO messages (
            id, conversation_id, sender_id, seq, text,
            media_kind, media_mime, media_size, media_payload, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		seq,
		msg.Text,
		kind,
		mime,
		size,
		payload,
		msg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// ListAfter returns messages with seq > afterSeq in ascending seq order.
func (r *MessageRepo) ListAfter(ctx context.Context, convID uuid.UUID, afterSeq int64) ([]domain.Message, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversation
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, seq, text,
		       media_kind, media_mime, media_size, media_payload, created_at
		FROM messages
		WHERE conversation_id = $1
		  AND seq > $2
		ORDER BY seq ASC
	`, convID, afterSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var kind, mime, payload sql.NullString
		var size sql.NullInt64
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.SenderID,
			&m.Seq,
			&m.Text,
			&kind,
			&mime,
			&size,
			&payload,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		if kind.Valid {
			m.Media = &domain.EncodedMedia{
				Kind:      domain.MediaKind(kind.String),
				MimeType:  mime.String,
				SizeBytes: size.Int64,
				Payload:   payload.String,
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) LastSeq(ctx context.Context, convID uuid.UUID) (int64, error) {
	if convID == uuid.Nil {
		return 0, domain.ErrInvalidConversation
	}
	exec := GetExecutor(ctx, r.db)
	var seq int64
	err := exec.QueryRowContext(ctx, `
		SELECT last_seq FROM conversation_sequences WHERE conversation_id = $1
	`, convID).Scan(&seq)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrInvalidConversation
		}
		return 0, err
	}
	return seq, nil
}
