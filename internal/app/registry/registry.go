package registry

import (
	"context"
	"encoding/json"
	"sync"

	"ripple/internal/core/contracts"
	"ripple/internal/core/domain"
)

// Registry tracks connected clients per conversation and owns the
// lifecycle of the per-conversation sync task: started when the first
// client joins a room, cancelled when the last one leaves. A user may hold
// several connections at once, so everything is keyed by connection and
// the per-user view is a set.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]map[contracts.Client]struct{} // user_id → connections
	rooms   map[string]map[contracts.Client]struct{} // conv_id → connections
	syncs   map[string]context.CancelFunc
	runSync func(ctx context.Context, convID string) error
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]map[contracts.Client]struct{}),
		rooms:   make(map[string]map[contracts.Client]struct{}),
		syncs:   make(map[string]context.CancelFunc),
	}
}

// RunSync installs the sync task entrypoint. Must be set before the first
// Register call.
func (h *Registry) RunSync(run func(ctx context.Context, convID string) error) {
	h.runSync = run
}

func (h *Registry) Register(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	convID := c.ConversationID()
	userID := c.UserID()
	if h.rooms[convID] == nil {
		h.rooms[convID] = make(map[contracts.Client]struct{})
		ctx, cancel := context.WithCancel(context.Background())
		h.syncs[convID] = cancel
		go h.runSync(ctx, convID)
	}
	h.rooms[convID][c] = struct{}{}
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[contracts.Client]struct{})
	}
	h.clients[userID][c] = struct{}{}
}

func (h *Registry) Unregister(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	convID := c.ConversationID()
	userID := c.UserID()
	delete(h.rooms[convID], c)
	if len(h.rooms[convID]) == 0 {
		delete(h.rooms, convID)
		if cancel := h.syncs[convID]; cancel != nil {
			cancel()
			delete(h.syncs, convID)
		}
	}
	delete(h.clients[userID], c)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Connected reports whether the user still holds at least one connection.
// The presence-down delta is published only when the last one is gone.
func (h *Registry) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Registry) SendAck(ctx context.Context, userID string, ack domain.AckMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.clients[userID]
	if len(conns) == 0 {
		return
	}
	data, _ := json.Marshal(ack)
	for c := range conns {
		_ = c.Send(ctx, data)
	}
}

// Broadcast fans a message out to the conversation room, skipping the
// sender's connections, which already have the composer echo.
func (h *Registry) Broadcast(ctx context.Context, convID string, msg domain.ChatMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, _ := json.Marshal(msg)
	for c := range h.rooms[convID] {
		if c.UserID() == msg.SenderID {
			continue
		}
		_ = c.Send(ctx, data)
	}
}

// BroadcastPresence pushes the online set to every connected client.
func (h *Registry) BroadcastPresence(ctx context.Context, ev domain.PresenceEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, _ := json.Marshal(ev)
	for _, conns := range h.clients {
		for c := range conns {
			_ = c.Send(ctx, data)
		}
	}
}
