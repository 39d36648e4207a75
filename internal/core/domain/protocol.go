package domain

import "time"

const (
	TypeAck       = "ack"
	TypeMessage   = "message"
	TypePresence  = "presence"
	TypeHandshake = "handshake"
	TypeError     = "error"
)

type AckStatus string

const (
	AckDelivered AckStatus = "delivered"
	AckFailed    AckStatus = "failed"
)

// HandshakeResponse is sent once on connect.
type HandshakeResponse struct {
	Type           string   `json:"type"` // "handshake"
	ConversationID string   `json:"conversation_id"`
	Online         []string `json:"online_user_ids"`
}

// ComposeRequest is what a connected client sends to compose a message.
// Media arrives as a data URL, the way browser FileReader produces it.
type ComposeRequest struct {
	ClientMsgID string `json:"client_msg_id"`
	Text        string `json:"text"`
	Media       string `json:"media,omitempty"`
}

// AckMessage is sent only to the sender and carries the compose outcome.
type AckMessage struct {
	Type        string    `json:"type"` // always "ack"
	ClientMsgID string    `json:"client_msg_id"`
	Status      AckStatus `json:"status"`
	Seq         int64     `json:"seq,omitempty"`
	Code        string    `json:"code,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatMessage is broadcast to conversation subscribers.
type ChatMessage struct {
	Type           string        `json:"type"` // "message"
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	Seq            int64         `json:"seq"`
	Text           string        `json:"text"`
	Media          *EncodedMedia `json:"media,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// PresenceEvent is pushed to every connected client when the online set
// changes.
type PresenceEvent struct {
	Type   string   `json:"type"` // "presence"
	Online []string `json:"online_user_ids"`
}

// ErrorMessage is a WS-safe error.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewChatMessage maps a persisted message onto the wire shape.
func NewChatMessage(m Message) ChatMessage {
	return ChatMessage{
		Type:           TypeMessage,
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID,
		Seq:            m.Seq,
		Text:           m.Text,
		Media:          m.Media,
		CreatedAt:      m.CreatedAt,
	}
}
