package services

import (
	"log/slog"
	"sort"
	"sync"

	"ripple/internal/core/domain"
)

// PresenceTracker caches which users are currently online. It is a
// best-effort liveness cache, not a source of truth: nothing is persisted
// and the next FullReplace rebuilds the whole set.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
	log    *slog.Logger
}

func NewPresenceTracker(log *slog.Logger) *PresenceTracker {
	return &PresenceTracker{
		online: make(map[string]struct{}),
		log:    log,
	}
}

// ApplyUpdate applies one feed event. A FullReplace swaps the set in one
// step so readers never observe a partial replace; deltas are idempotent.
func (t *PresenceTracker) ApplyUpdate(u domain.PresenceUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch u.Kind {
	case domain.PresenceFullReplace:
		next := make(map[string]struct{}, len(u.Online))
		for _, id := range u.Online {
			next[id] = struct{}{}
		}
		t.online = next
	case domain.PresenceDelta:
		if u.IsUp {
			t.online[u.UserID] = struct{}{}
		} else {
			delete(t.online, u.UserID)
		}
	default:
		t.log.Warn("presence - apply update - unknown update kind", "kind", string(u.Kind))
	}
}

func (t *PresenceTracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[userID]
	return ok
}

// Snapshot returns the online set as a sorted copy.
func (t *PresenceTracker) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.online))
	for id := range t.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
