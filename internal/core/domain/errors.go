package domain

import "errors"

var (
	// Media encoding
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMediaTooLarge        = errors.New("media exceeds size limit")
	ErrMediaRead            = errors.New("media source read failed")

	// Conversation store
	ErrInvalidConversation = errors.New("invalid conversation")
	ErrEmptyMessage        = errors.New("message has no text and no media")
	ErrStorageUnavailable  = errors.New("storage unavailable")

	// Membership
	ErrEmptyGroupName = errors.New("group name is empty")
	ErrNoMembers      = errors.New("group has no members")
	ErrNotAMember     = errors.New("sender is not a conversation member")

	// Compose
	ErrEmptyDraft      = errors.New("draft has no text and no media")
	ErrComposeInFlight = errors.New("send already in progress")

	// Identity
	ErrUserNotFound = errors.New("user not found")
)
