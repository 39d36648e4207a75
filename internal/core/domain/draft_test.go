package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginClaimsSingleAttempt(t *testing.T) {
	d := NewDraft(Target{UserID: "u2"})

	require.True(t, d.Begin("hi", nil))
	assert.Equal(t, StateValidating, d.Snapshot().State)

	// The attempt is in flight until Deliver or Fail.
	assert.False(t, d.Begin("again", nil))
	d.Advance(StateAppending)
	assert.False(t, d.Begin("again", nil))

	d.Deliver(&Message{Seq: 1})
	assert.True(t, d.Begin("next", nil))
}

func TestBeginStagesContentAtomically(t *testing.T) {
	d := NewDraft(Target{UserID: "u2"})

	require.True(t, d.Begin("first", nil))
	text, _, _ := d.Content()
	assert.Equal(t, "first", text)

	// A losing Begin must not clobber the content being sent.
	assert.False(t, d.Begin("second", nil))
	text, _, _ = d.Content()
	assert.Equal(t, "first", text)

	d.Fail(errors.New("boom"))
	assert.True(t, d.Begin("second", nil))
	text, _, _ = d.Content()
	assert.Equal(t, "second", text)
}

func TestDeliverClearsContent(t *testing.T) {
	d := NewDraft(Target{UserID: "u2"})
	require.True(t, d.Begin("hi", &RawMedia{MimeType: "image/png"}))

	msg := &Message{Seq: 7}
	d.Deliver(msg)

	text, media, target := d.Content()
	assert.Empty(t, text)
	assert.Nil(t, media)
	assert.Equal(t, "u2", target.UserID)

	snap := d.Snapshot()
	assert.Equal(t, StateDelivered, snap.State)
	assert.Equal(t, msg, snap.Message)
	assert.Nil(t, snap.Cause)
}

func TestFailKeepsContentAndRecordsCause(t *testing.T) {
	d := NewDraft(Target{UserID: "u2"})
	require.True(t, d.Begin("hi", nil))

	cause := errors.New("store down")
	d.Fail(cause)

	text, _, _ := d.Content()
	assert.Equal(t, "hi", text)

	snap := d.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, cause, snap.Cause)
	assert.Nil(t, snap.Message)
}

func TestBeginResetsPreviousOutcome(t *testing.T) {
	d := NewDraft(Target{UserID: "u2"})
	require.True(t, d.Begin("hi", nil))
	d.Fail(errors.New("first attempt"))

	require.True(t, d.Begin("hi", nil))
	snap := d.Snapshot()
	assert.Equal(t, StateValidating, snap.State)
	assert.Nil(t, snap.Cause)
	assert.Nil(t, snap.Message)
}

func TestComposeStateLabels(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "delivered", StateDelivered.String())
	assert.Equal(t, "failed", StateFailed.String())
}
