package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ripple/internal/core/domain"
)

// Reader is the slice of the conversation store the loop needs.
type Reader interface {
	ReadAfter(ctx context.Context, convID uuid.UUID, afterSeq int64) ([]domain.Message, error)
	LastSeq(ctx context.Context, convID uuid.UUID) (int64, error)
}

// Loop reconciles one open conversation view against the store. Each tick
// reads everything past the last seen seq and hands non-empty batches to
// onBatch in order; a message seq is therefore delivered at most once. A
// push transport can call Nudge to trigger the same pass without waiting
// for the timer.
type Loop struct {
	log      *slog.Logger
	store    Reader
	convID   uuid.UUID
	interval time.Duration
	nudge    chan struct{}

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	lastSeen int64
}

func NewLoop(log *slog.Logger, store Reader, convID uuid.UUID, interval time.Duration, lastSeen int64) *Loop {
	return &Loop{
		log:      log,
		store:    store,
		convID:   convID,
		interval: interval,
		nudge:    make(chan struct{}, 1),
		lastSeen: lastSeen,
	}
}

// Start launches the timer task. Starting an already-running loop is a
// no-op, so a careless double start cannot duplicate timers.
func (l *Loop) Start(ctx context.Context, onBatch func([]domain.Message)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.log.Warn("sync - start - loop already running", "conv_id", l.convID.String())
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done, onBatch)
}

// Stop cancels the timer task and waits for it to drain. After Stop
// returns, no further onBatch calls occur from this loop.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Nudge requests an immediate pass. Safe to call at any time; a pending
// nudge coalesces with the next.
func (l *Loop) Nudge() {
	select {
	case l.nudge <- struct{}{}:
	default:
	}
}

func (l *Loop) run(ctx context.Context, done chan struct{}, onBatch func([]domain.Message)) {
	defer close(done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-l.nudge:
		}
		l.tick(ctx, onBatch)
	}
}

// tick performs one reconciliation pass. Read failures are absorbed; the
// next tick retries with the same cursor.
func (l *Loop) tick(ctx context.Context, onBatch func([]domain.Message)) {
	msgs, err := l.store.ReadAfter(ctx, l.convID, l.lastSeen)
	if err != nil {
		l.log.WarnContext(ctx, "sync - tick - read failed", "conv_id", l.convID.String(), "last_seen", l.lastSeen, "err", err)
		return
	}
	if len(msgs) == 0 {
		return
	}
	onBatch(msgs)
	l.lastSeen = msgs[len(msgs)-1].Seq
}
