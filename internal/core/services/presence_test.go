package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"ripple/internal/core/domain"
)

func newTestTracker() *PresenceTracker {
	return NewPresenceTracker(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func up(userID string) domain.PresenceUpdate {
	return domain.PresenceUpdate{Kind: domain.PresenceDelta, UserID: userID, IsUp: true}
}

func down(userID string) domain.PresenceUpdate {
	return domain.PresenceUpdate{Kind: domain.PresenceDelta, UserID: userID, IsUp: false}
}

func TestDeltaMarksUserOnlineAndOffline(t *testing.T) {
	tracker := newTestTracker()

	tracker.ApplyUpdate(up("u1"))
	assert.True(t, tracker.IsOnline("u1"))
	assert.False(t, tracker.IsOnline("u2"))

	tracker.ApplyUpdate(down("u1"))
	assert.False(t, tracker.IsOnline("u1"))
}

func TestDeltaIsIdempotent(t *testing.T) {
	tracker := newTestTracker()

	tracker.ApplyUpdate(up("u1"))
	tracker.ApplyUpdate(up("u1"))
	assert.Equal(t, []string{"u1"}, tracker.Snapshot())

	tracker.ApplyUpdate(down("u1"))
	tracker.ApplyUpdate(down("u1"))
	assert.Empty(t, tracker.Snapshot())

	// Removing a user that was never online is a no-op too.
	tracker.ApplyUpdate(down("ghost"))
	assert.Empty(t, tracker.Snapshot())
}

func TestFullReplaceDiscardsPreviousState(t *testing.T) {
	tracker := newTestTracker()

	tracker.ApplyUpdate(up("u1"))
	tracker.ApplyUpdate(up("u2"))

	tracker.ApplyUpdate(domain.PresenceUpdate{
		Kind:   domain.PresenceFullReplace,
		Online: []string{"u3", "u2"},
	})

	assert.False(t, tracker.IsOnline("u1"))
	assert.True(t, tracker.IsOnline("u2"))
	assert.True(t, tracker.IsOnline("u3"))
	assert.Equal(t, []string{"u2", "u3"}, tracker.Snapshot())
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	tracker := newTestTracker()
	tracker.ApplyUpdate(up("u2"))
	tracker.ApplyUpdate(up("u1"))

	snap := tracker.Snapshot()
	assert.Equal(t, []string{"u1", "u2"}, snap)

	snap[0] = "mutated"
	assert.True(t, tracker.IsOnline("u1"))
	assert.Equal(t, []string{"u1", "u2"}, tracker.Snapshot())
}
