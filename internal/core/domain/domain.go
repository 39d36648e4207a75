package domain

import (
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// User is the profile issued by the external identity provider. It is never
// mutated by this core; a changed profile arrives as a fresh upsert.
type User struct {
	ID          string
	DisplayName string
	AvatarRef   string
	CreatedAt   time.Time
}

type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// Conversation is either a two-party direct thread or a named group thread.
// Direct conversations come into existence on the first append between two
// users; groups are created explicitly and carry a non-empty name.
type Conversation struct {
	ID        uuid.UUID
	Kind      ConversationKind
	Name      string
	CreatedAt time.Time
}

// DirectKey produces the stable lookup key for a direct conversation
// between two users, independent of who sent first. Ids are opaque and may
// contain the separator, so the first id is length-prefixed to keep
// distinct pairs from producing the same key.
func DirectKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + ":" + b
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// RawMedia is an attachment as it arrives from a client: a declared MIME
// type and size plus a byte source that may be consumed exactly once.
type RawMedia struct {
	MimeType  string
	SizeBytes int64
	Data      io.Reader
}

// EncodedMedia is the transportable form of an attachment. Immutable once
// produced; ownership moves to the message that carries it.
type EncodedMedia struct {
	Kind      MediaKind `json:"kind"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Payload   string    `json:"payload"`
}

// Message is one persisted conversation entry. Seq is assigned by the store,
// strictly increasing per conversation starting at 1, and is the sole
// ordering key.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Seq            int64
	Text           string
	Media          *EncodedMedia
	CreatedAt      time.Time
}

// Target names where a draft goes: an existing conversation, or a user for a
// direct thread that may not exist yet.
type Target struct {
	ConversationID uuid.UUID
	UserID         string
}

func (t Target) IsZero() bool {
	return t.ConversationID == uuid.Nil && t.UserID == ""
}

// PresenceUpdate is one event from the presence feed.
type PresenceUpdateKind string

const (
	PresenceFullReplace PresenceUpdateKind = "full_replace"
	PresenceDelta       PresenceUpdateKind = "delta"
)

type PresenceUpdate struct {
	Kind   PresenceUpdateKind `json:"kind"`
	Online []string           `json:"online,omitempty"`
	UserID string             `json:"user_id,omitempty"`
	IsUp   bool               `json:"is_up,omitempty"`
}
