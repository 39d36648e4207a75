package domain

import "sync"

// ComposeState tracks one send attempt through the composer.
type ComposeState int32

const (
	StateIdle ComposeState = iota
	StateValidating
	StateEncodingMedia
	StateAppending
	StateDelivered
	StateFailed
)

func (s ComposeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateEncodingMedia:
		return "encoding_media"
	case StateAppending:
		return "appending"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (s ComposeState) inFlight() bool {
	return s == StateValidating || s == StateEncodingMedia || s == StateAppending
}

// Draft is an unsent message-in-progress. The composer owns its state
// machine; presentation layers only ever see Snapshot. Text and media are
// cleared on delivery, never speculatively, so a failed send keeps the
// draft intact for retry.
type Draft struct {
	mu      sync.Mutex
	text    string
	media   *RawMedia
	target  Target
	state   ComposeState
	lastMsg *Message
	lastErr error
}

// ComposeSnapshot is the read-only view of a draft's state machine.
type ComposeSnapshot struct {
	State   ComposeState
	Message *Message
	Cause   error
}

func NewDraft(target Target) *Draft {
	return &Draft{target: target}
}

func (d *Draft) Content() (text string, media *RawMedia, target Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text, d.media, d.target
}

// Begin stages the content and claims the draft for a single compose
// attempt, all under one lock: a concurrent submit can never interleave
// between staging and claiming, so the attempt always sends exactly what
// its caller staged. It fails when an attempt is already in flight, which
// is what turns a double-submit into a rejection instead of a duplicate
// send, and a failed Begin leaves the in-flight content untouched.
func (d *Draft) Begin(text string, media *RawMedia) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.inFlight() {
		return false
	}
	d.text = text
	d.media = media
	d.state = StateValidating
	d.lastMsg = nil
	d.lastErr = nil
	return true
}

// Advance moves an in-flight attempt to its next intermediate state.
func (d *Draft) Advance(s ComposeState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

// Deliver records the appended message and discards the draft content.
func (d *Draft) Deliver(msg *Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateDelivered
	d.lastMsg = msg
	d.text = ""
	d.media = nil
}

// Fail records the typed cause and leaves text and media in place.
func (d *Draft) Fail(cause error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateFailed
	d.lastErr = cause
}

func (d *Draft) Snapshot() ComposeSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ComposeSnapshot{State: d.state, Message: d.lastMsg, Cause: d.lastErr}
}
