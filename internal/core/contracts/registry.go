package contracts

import (
	"context"

	"ripple/internal/core/domain"
)

// Registry is the orchestration layer that manages physical client
// connections and fans conversation traffic out to the local hubs.
type Registry interface {
	// Register adds a client to local memory and joins it to its conversation.
	Register(c Client)
	// Unregister removes the client and cleans up its conversation room.
	Unregister(c Client)
	// SendAck targets one local client to deliver a compose outcome.
	SendAck(ctx context.Context, userID string, ack domain.AckMessage)
	// Broadcast sends a message to all local clients in a conversation
	// except the sender, who already has the composer echo.
	Broadcast(ctx context.Context, convID string, msg domain.ChatMessage)
	// BroadcastPresence pushes the online set to every connected client.
	BroadcastPresence(ctx context.Context, ev domain.PresenceEvent)
}

// Client is the minimal surface the registry needs to talk to one
// WebSocket connection.
type Client interface {
	UserID() string
	ConversationID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
