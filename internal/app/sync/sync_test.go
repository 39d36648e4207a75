package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	stdsync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/core/domain"
)

// fakeReader serves a growing message log for one conversation.
type fakeReader struct {
	mu     stdsync.Mutex
	convID uuid.UUID
	msgs   []domain.Message
	fail   bool
	reads  int
}

func newFakeReader(convID uuid.UUID, seqs ...int64) *fakeReader {
	r := &fakeReader{convID: convID}
	for _, seq := range seqs {
		r.msgs = append(r.msgs, domain.Message{ID: uuid.New(), ConversationID: convID, Seq: seq})
	}
	return r
}

func (r *fakeReader) append(seq int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, domain.Message{ID: uuid.New(), ConversationID: r.convID, Seq: seq})
}

func (r *fakeReader) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *fakeReader) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func (r *fakeReader) ReadAfter(_ context.Context, convID uuid.UUID, afterSeq int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.fail {
		return nil, errors.New("store down")
	}
	if convID != r.convID {
		return nil, domain.ErrInvalidConversation
	}
	var out []domain.Message
	for _, m := range r.msgs {
		if m.Seq > afterSeq {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeReader) LastSeq(_ context.Context, convID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if convID != r.convID {
		return 0, domain.ErrInvalidConversation
	}
	var last int64
	for _, m := range r.msgs {
		if m.Seq > last {
			last = m.Seq
		}
	}
	return last, nil
}

// batchSink collects everything onBatch delivers.
type batchSink struct {
	mu   stdsync.Mutex
	seqs []int64
}

func (s *batchSink) onBatch(msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.seqs = append(s.seqs, m.Seq)
	}
}

func (s *batchSink) collected() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.seqs...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoopCatchesUpFromCursor(t *testing.T) {
	convID := uuid.New()
	store := newFakeReader(convID, 1, 2, 3, 4, 5)
	sink := &batchSink{}

	loop := NewLoop(testLogger(), store, convID, 10*time.Millisecond, 3)
	loop.Start(context.Background(), sink.onBatch)
	defer loop.Stop()

	require.Eventually(t, func() bool {
		return len(sink.collected()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{4, 5}, sink.collected())

	// Later ticks must not redeliver what was already handed over.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []int64{4, 5}, sink.collected())
}

func TestLoopDeliversNewMessagesInOrder(t *testing.T) {
	convID := uuid.New()
	store := newFakeReader(convID)
	sink := &batchSink{}

	loop := NewLoop(testLogger(), store, convID, 10*time.Millisecond, 0)
	loop.Start(context.Background(), sink.onBatch)
	defer loop.Stop()

	store.append(1)
	require.Eventually(t, func() bool {
		return len(sink.collected()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	store.append(2)
	store.append(3)
	require.Eventually(t, func() bool {
		return len(sink.collected()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3}, sink.collected())
}

func TestStopQuiescesBatches(t *testing.T) {
	convID := uuid.New()
	store := newFakeReader(convID, 1)
	sink := &batchSink{}

	loop := NewLoop(testLogger(), store, convID, 10*time.Millisecond, 0)
	loop.Start(context.Background(), sink.onBatch)

	require.Eventually(t, func() bool {
		return len(sink.collected()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	loop.Stop()
	seen := len(sink.collected())
	store.append(2)
	store.append(3)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sink.collected(), seen)

	// Stopping twice is safe.
	loop.Stop()
}

func TestDoubleStartKeepsSingleTimer(t *testing.T) {
	convID := uuid.New()
	store := newFakeReader(convID, 1, 2)
	sink := &batchSink{}

	loop := NewLoop(testLogger(), store, convID, 10*time.Millisecond, 0)
	loop.Start(context.Background(), sink.onBatch)
	loop.Start(context.Background(), sink.onBatch)
	defer loop.Stop()

	require.Eventually(t, func() bool {
		return len(sink.collected()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Two running timers would deliver each message twice.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []int64{1, 2}, sink.collected())
}

func TestReadFailureRetriesWithSameCursor(t *testing.T) {
	convID := uuid.New()
	store := newFakeReader(convID, 1, 2)
	store.setFail(true)
	sink := &batchSink{}

	loop := NewLoop(testLogger(), store, convID, 10*time.Millisecond, 0)
	loop.Start(context.Background(), sink.onBatch)
	defer loop.Stop()

	require.Eventually(t, func() bool {
		return store.readCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.collected())

	store.setFail(false)
	require.Eventually(t, func() bool {
		return len(sink.collected()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2}, sink.collected())
}

func TestNudgeTriggersImmediatePass(t *testing.T) {
	convID := uuid.New()
	store := newFakeReader(convID, 1)
	sink := &batchSink{}

	// Interval long enough that only a nudge can explain a delivery.
	loop := NewLoop(testLogger(), store, convID, time.Hour, 0)
	loop.Start(context.Background(), sink.onBatch)
	defer loop.Stop()

	loop.Nudge()
	require.Eventually(t, func() bool {
		return len(sink.collected()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1}, sink.collected())

	// A nudge with nothing new delivers nothing.
	loop.Nudge()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []int64{1}, sink.collected())
}
