package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/core/domain"
)

func newTestComposer(t *testing.T) (*Composer, *memStore, *PresenceTracker) {
	t.Helper()
	store := newMemStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	convs := NewConversationService(log, store, store, store, nopTx{})
	tracker := NewPresenceTracker(log)
	media := NewMediaEncoder(log, testMediaConfig())
	return NewComposer(log, media, convs, tracker), store, tracker
}

func TestComposeEmptyDraftNeverTouchesStore(t *testing.T) {
	composer, store, _ := newTestComposer(t)
	draft := domain.NewDraft(domain.Target{UserID: "u2"})

	_, err := composer.Compose(context.Background(), "u1", draft, "   ", nil)
	require.ErrorIs(t, err, domain.ErrEmptyDraft)
	assert.Zero(t, store.appendCalls)

	snap := draft.Snapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.ErrorIs(t, snap.Cause, domain.ErrEmptyDraft)
}

func TestComposeDeliversAndClearsDraft(t *testing.T) {
	composer, _, tracker := newTestComposer(t)
	tracker.ApplyUpdate(up("u2"))

	draft := domain.NewDraft(domain.Target{UserID: "u2"})
	msg, err := composer.Compose(context.Background(), "u1", draft, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.Seq)
	assert.Equal(t, "hello", msg.Text)

	snap := draft.Snapshot()
	assert.Equal(t, domain.StateDelivered, snap.State)
	require.NotNil(t, snap.Message)
	assert.Equal(t, msg.ID, snap.Message.ID)

	text, media, _ := draft.Content()
	assert.Empty(t, text)
	assert.Nil(t, media)
}

func TestComposeOfflineRecipientStillDelivers(t *testing.T) {
	composer, _, _ := newTestComposer(t)

	draft := domain.NewDraft(domain.Target{UserID: "offline-user"})
	msg, err := composer.Compose(context.Background(), "u1", draft, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.Seq)
}

func TestComposeEncodesMedia(t *testing.T) {
	composer, _, _ := newTestComposer(t)

	draft := domain.NewDraft(domain.Target{UserID: "u2"})
	msg, err := composer.Compose(context.Background(), "u1", draft, "look", &domain.RawMedia{
		MimeType:  "image/png",
		SizeBytes: 4,
		Data:      strings.NewReader("ping"),
	})
	require.NoError(t, err)
	require.NotNil(t, msg.Media)
	assert.Equal(t, domain.MediaImage, msg.Media.Kind)
	assert.True(t, strings.HasPrefix(msg.Media.Payload, "data:image/png;base64,"))
}

func TestComposeMediaFailureKeepsDraft(t *testing.T) {
	composer, store, _ := newTestComposer(t)

	draft := domain.NewDraft(domain.Target{UserID: "u2"})
	_, err := composer.Compose(context.Background(), "u1", draft, "doc", &domain.RawMedia{
		MimeType:  "application/pdf",
		SizeBytes: 3,
		Data:      strings.NewReader("pdf"),
	})
	require.ErrorIs(t, err, domain.ErrUnsupportedMediaType)
	assert.Zero(t, store.appendCalls)

	snap := draft.Snapshot()
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.ErrorIs(t, snap.Cause, domain.ErrUnsupportedMediaType)

	// Content survives a failed attempt so the user can fix and retry.
	text, media, _ := draft.Content()
	assert.Equal(t, "doc", text)
	assert.NotNil(t, media)
}

func TestComposeAppendFailureKeepsDraft(t *testing.T) {
	composer, _, _ := newTestComposer(t)

	// Self-directed target fails target resolution during append.
	draft := domain.NewDraft(domain.Target{UserID: "u1"})
	_, err := composer.Compose(context.Background(), "u1", draft, "me, myself", nil)
	require.ErrorIs(t, err, domain.ErrInvalidConversation)

	text, _, _ := draft.Content()
	assert.Equal(t, "me, myself", text)
	assert.Equal(t, domain.StateFailed, draft.Snapshot().State)
}

func TestComposeRacingSubmitCannotSwapContent(t *testing.T) {
	composer, store, _ := newTestComposer(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	store.beforeAppend = func() {
		close(entered)
		<-release
	}

	draft := domain.NewDraft(domain.Target{UserID: "u2"})

	type result struct {
		msg *domain.Message
		err error
	}
	first := make(chan result, 1)
	go func() {
		msg, err := composer.Compose(context.Background(), "u1", draft, "first", nil)
		first <- result{msg, err}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first compose never reached the store")
	}

	// A second submit while the first sits in Appending is rejected
	// outright and must not restage the shared draft's content.
	_, err := composer.Compose(context.Background(), "u1", draft, "second", nil)
	require.ErrorIs(t, err, domain.ErrComposeInFlight)

	text, _, _ := draft.Content()
	assert.Equal(t, "first", text)

	close(release)
	res := <-first
	require.NoError(t, res.err)

	// The delivered message carries the first submit's content; the loser
	// was rejected, not silently swapped in under the winner's ack.
	assert.Equal(t, "first", res.msg.Text)
	assert.Equal(t, 1, store.appendCalls)
	assert.Equal(t, domain.StateDelivered, draft.Snapshot().State)
}

func TestComposeCanRetryAfterFailure(t *testing.T) {
	composer, _, _ := newTestComposer(t)

	draft := domain.NewDraft(domain.Target{UserID: "u2"})
	_, err := composer.Compose(context.Background(), "u1", draft, "  ", nil)
	require.ErrorIs(t, err, domain.ErrEmptyDraft)

	msg, err := composer.Compose(context.Background(), "u1", draft, "second try", nil)
	require.NoError(t, err)
	assert.Equal(t, "second try", msg.Text)
}
