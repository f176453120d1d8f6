// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the lifecycle state of a message.
type Status string

const (
	// StatusPending marks an assistant placeholder whose request has been
	// issued but has not yet produced a chunk.
	StatusPending Status = "pending"

	// StatusStreaming marks an assistant message that is receiving chunks.
	StatusStreaming Status = "streaming"

	// StatusComplete marks a finished message. User messages are complete
	// from the moment they are appended.
	StatusComplete Status = "complete"

	// StatusCancelled marks a stream stopped by the user. Content is the
	// prefix received up to the cancellation point.
	StatusCancelled Status = "cancelled"

	// StatusError marks a stream that failed in transit. Content already
	// received is preserved.
	StatusError Status = "error"
)

// Terminal reports whether the status is final. Terminal messages are
// immutable.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusCancelled, StatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal,
// monotonic transition: pending -> streaming -> {complete, cancelled, error}.
// Pending may also jump straight to a terminal state (a stream stopped or
// failed before the first chunk arrived). No transition leaves a terminal
// state, not even to itself.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusStreaming || next.Terminal()
	case StatusStreaming:
		return next.Terminal()
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a session.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserMessage creates a user message. User text needs no streaming, so it
// is complete immediately.
func NewUserMessage(content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Status:    StatusComplete,
		CreatedAt: time.Now(),
	}
}

// NewAssistantPlaceholder creates an empty assistant message in pending
// state, ready to receive streamed chunks.
func NewAssistantPlaceholder() *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// IsStreaming reports whether the message is still receiving content.
func (m *Message) IsStreaming() bool {
	return m.Status == StatusPending || m.Status == StatusStreaming
}

// Preview returns the first line of content truncated to maxLen runes.
func (m *Message) Preview(maxLen int) string {
	content := m.Content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Clone returns a copy of the message.
func (m *Message) Clone() *Message {
	clone := *m
	return &clone
}
