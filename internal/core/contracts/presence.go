package contracts

import (
	"context"

	"ripple/internal/core/domain"
)

// PresenceFeed is the transport behind the presence tracker. Deltas are
// fire-and-forget; a FullReplace snapshot rebuilds the cache after restart.
type PresenceFeed interface {
	// PublishDelta announces one user coming up or going down.
	PublishDelta(ctx context.Context, userID string, up bool) error
	// PublishSnapshot replaces the whole online set on every subscriber.
	PublishSnapshot(ctx context.Context, online []string) error
	// SubscribePresence feeds decoded updates to apply until ctx ends.
	SubscribePresence(ctx context.Context, apply func(domain.PresenceUpdate)) error
}

// AppendFeed propagates append notifications between nodes so remote sync
// loops pick up new tail entries without waiting for their next tick.
type AppendFeed interface {
	PublishAppend(ctx context.Context, convID string) error
	SubscribeAppend(ctx context.Context, nudge func(convID string)) error
}
