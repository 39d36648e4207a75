package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ripple/internal/core/contracts"
	"ripple/internal/core/domain"
)

// Runner owns one Loop per conversation with connected clients. The
// registry calls Run when a conversation room comes up and cancels the
// context when the last client leaves; append-feed events land in Nudge.
type Runner struct {
	log      *slog.Logger
	store    Reader
	registry contracts.Registry
	interval time.Duration

	mu    sync.Mutex
	loops map[string]*Loop
}

func NewRunner(log *slog.Logger, store Reader, registry contracts.Registry, interval time.Duration) *Runner {
	return &Runner{
		log:      log,
		store:    store,
		registry: registry,
		interval: interval,
		loops:    make(map[string]*Loop),
	}
}

// Run drives the sync loop for convID until ctx is cancelled. The cursor
// starts at the current tail: connected clients fetch history themselves,
// the loop only pushes what arrives after they joined.
func (r *Runner) Run(ctx context.Context, convID string) error {
	cid, err := uuid.Parse(convID)
	if err != nil {
		r.log.Error("sync - run - wrong conversation id", "conv_id", convID, "err", err)
		return err
	}
	lastSeen, err := r.store.LastSeq(ctx, cid)
	if err != nil {
		r.log.WarnContext(ctx, "sync - run - tail lookup failed, replaying full history", "conv_id", convID, "err", err)
		lastSeen = 0
	}
	loop := NewLoop(r.log, r.store, cid, r.interval, lastSeen)
	r.mu.Lock()
	r.loops[convID] = loop
	r.mu.Unlock()
	loop.Start(ctx, func(batch []domain.Message) {
		for _, m := range batch {
			r.registry.Broadcast(ctx, convID, domain.NewChatMessage(m))
		}
	})
	r.log.InfoContext(ctx, "sync - run - loop started", "conv_id", convID, "last_seen", lastSeen)
	<-ctx.Done()
	loop.Stop()
	r.mu.Lock()
	delete(r.loops, convID)
	r.mu.Unlock()
	r.log.Info("sync - run - loop stopped", "conv_id", convID)
	return nil
}

// Nudge triggers an immediate pass for convID if a loop is running. Events
// for conversations with no local clients are dropped on purpose.
func (r *Runner) Nudge(convID string) {
	r.mu.Lock()
	loop := r.loops[convID]
	r.mu.Unlock()
	if loop != nil {
		loop.Nudge()
	}
}
