package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"ripple/internal/core/domain"
)

const (
	presenceChannel = "feed:presence"
	appendChannel   = "feed:append"
)

// Feed carries presence updates and append notifications over Redis
// pub/sub, so every node sees the same online set and remote sync loops
// get nudged as soon as a message lands.
type Feed struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewFeed(log *slog.Logger, rdb *redis.Client) *Feed {
	return &Feed{rdb: rdb, log: log}
}

func (f *Feed) PublishDelta(ctx context.Context, userID string, up bool) error {
	raw, _ := json.Marshal(domain.PresenceUpdate{
		Kind:   domain.PresenceDelta,
		UserID: userID,
		IsUp:   up,
	})
	return f.rdb.Publish(ctx, presenceChannel, raw).Err()
}

func (f *Feed) PublishSnapshot(ctx context.Context, online []string) error {
	raw, _ := json.Marshal(domain.PresenceUpdate{
		Kind:   domain.PresenceFullReplace,
		Online: online,
	})
	return f.rdb.Publish(ctx, presenceChannel, raw).Err()
}

// SubscribePresence decodes feed events and hands them to apply until ctx
// ends. Malformed events are dropped; the next FullReplace heals the cache.
func (f *Feed) SubscribePresence(ctx context.Context, apply func(domain.PresenceUpdate)) error {
	pubsub := f.rdb.Subscribe(ctx, presenceChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var u domain.PresenceUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
					f.log.Error("feed - subscribe presence - wrong payload", "err", err)
					continue
				}
				apply(u)
			}
		}
	}()
	return nil
}

func (f *Feed) PublishAppend(ctx context.Context, convID string) error {
	return f.rdb.Publish(ctx, appendChannel, convID).Err()
}

func (f *Feed) SubscribeAppend(ctx context.Context, nudge func(convID string)) error {
	pubsub := f.rdb.Subscribe(ctx, appendChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				nudge(msg.Payload)
			}
		}
	}()
	return nil
}
