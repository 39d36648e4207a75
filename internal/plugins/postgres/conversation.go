package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"ripple/internal/core/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

/*
	-- Conversations
	CREATE TABLE conversations (
		id          UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		direct_key  TEXT UNIQUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	-- Sequence row per conversation; the append path serializes on it.
	CREATE TABLE conversation_sequences (
		conversation_id UUID PRIMARY KEY REFERENCES conversations(id),
		last_seq        BIGINT NOT NULL DEFAULT 0
	);
*/

func (r *ConversationRepo) GetConversationByID(ctx context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	conv := &domain.Conversation{ID: convID}
	query := `SELECT kind, name, created_at FROM conversations WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, convID).Scan(&conv.Kind, &conv.Name, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrInvalidConversation
		}
		return nil, err
	}
	return conv, nil
}

func (r *ConversationRepo) FindDirect(ctx context.Context, directKey string) (*domain.Conversation, error) {
	conv := &domain.Conversation{Kind: domain.KindDirect}
	query := `SELECT id, name, created_at FROM conversations WHERE direct_key = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, directKey).Scan(&conv.ID, &conv.Name, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrInvalidConversation
		}
		return nil, err
	}
	return conv, nil
}

// CreateConversation inserts the conversation and its sequence row. The
// caller's transaction makes both visible together, so the first append can
// rely on seq starting from the initialized row.
//
// Two first appends for the same pair can race past FindDirect and both
// try to create the direct thread. The insert is conflict-safe on
// direct_key; the loser adopts the existing row instead of failing.
func (r *ConversationRepo) CreateConversation(ctx context.Context, conv *domain.Conversation, directKey string) error {
	exec := GetExecutor(ctx, r.db)
	var key any
	if directKey != "" {
		key = directKey
	}
	res, err := exec.ExecContext(ctx, `
		INSERT INTO conversations (id, kind, name, direct_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (direct_key) DO NOTHING
	`, conv.ID, conv.Kind, conv.Name, key, conv.CreatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exec.QueryRowContext(ctx, `
			SELECT id, name, created_at FROM conversations WHERE direct_key = $1
		`, directKey).Scan(&conv.ID, &conv.Name, &conv.CreatedAt)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO conversation_sequences (conversation_id, last_seq)
		VALUES ($1, 0)
	`, conv.ID)
	return err
}
