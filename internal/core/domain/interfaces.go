package domain

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository mirrors profiles issued by the identity provider.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	UpsertUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context) ([]User, error)
}

// ConversationRepository handles conversation lifecycle. CreateConversation
// also initializes the per-conversation sequence row so the first append
// gets seq 1.
type ConversationRepository interface {
	GetConversationByID(ctx context.Context, convID uuid.UUID) (*Conversation, error)
	FindDirect(ctx context.Context, directKey string) (*Conversation, error)
	CreateConversation(ctx context.Context, conv *Conversation, directKey string) error
}

// ParticipantRepository owns the member set of a conversation. Add and
// remove are idempotent at the SQL level.
type ParticipantRepository interface {
	AddParticipant(ctx context.Context, convID uuid.UUID, userID string) error
	RemoveParticipant(ctx context.Context, convID uuid.UUID, userID string) error
	ListParticipants(ctx context.Context, convID uuid.UUID) ([]string, error)
	IsParticipant(ctx context.Context, convID uuid.UUID, userID string) (bool, error)
}

// MessageRepository persists the ordered log. AppendWithSeq increments the
// conversation sequence and inserts the message atomically within the
// surrounding transaction, so concurrent appends to one conversation can
// never observe the same seq.
type MessageRepository interface {
	AppendWithSeq(ctx context.Context, msg *Message) (seq int64, err error)
	ListAfter(ctx context.Context, convID uuid.UUID, afterSeq int64) ([]Message, error)
	LastSeq(ctx context.Context, convID uuid.UUID) (int64, error)
}
