package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"ripple/internal/core/domain"
)

type ParticipantRepo struct {
	db *sql.DB
}

func NewParticipantRepo(db *sql.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

/*
	CREATE TABLE conversation_participants (
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		user_id         TEXT NOT NULL,
		joined_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (conversation_id, user_id)
	);
*/

// AddParticipant is idempotent; re-adding a present member is a no-op.
func (r *ParticipantRepo) AddParticipant(ctx context.Context, convID uuid.UUID, userID string) error {
	if convID == uuid.Nil {
		return domain.ErrInvalidConversation
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, convID, userID)
	return err
}

// RemoveParticipant is idempotent; removing an absent member is a no-op.
func (r *ParticipantRepo) RemoveParticipant(ctx context.Context, convID uuid.UUID, userID string) error {
	if convID == uuid.Nil {
		return domain.ErrInvalidConversation
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		DELETE FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2
	`, convID, userID)
	return err
}

func (r *ParticipantRepo) ListParticipants(ctx context.Context, convID uuid.UUID) ([]string, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversation
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at ASC
	`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ParticipantRepo) IsParticipant(ctx context.Context, convID uuid.UUID, userID string) (bool, error) {
	if convID == uuid.Nil {
		return false, domain.ErrInvalidConversation
	}
	exec := GetExecutor(ctx, r.db)
	var one int
	err := exec.QueryRowContext(ctx, `
		SELECT 1 FROM conversation_participants
		WHERE conversation_id = $1 AND user_id = $2
	`, convID, userID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
