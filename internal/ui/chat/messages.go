// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea message types used by the chat view.
// External goroutines (stream controller callbacks, store listeners,
// clipboard expiry) reach the UI exclusively through these messages via
// Program.Send.

package chat

import (
	"time"

	"github.com/driftlabs/drift-tui/internal/store"
	"github.com/driftlabs/drift-tui/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamUpdateMsg carries a stream controller update into the UI loop.
type StreamUpdateMsg struct {
	Update stream.Update
}

// StreamTickMsg drives the fixed-rate redraw while streaming.
type StreamTickMsg struct {
	Time time.Time
}

// ElapsedTickMsg refreshes the elapsed-time display while waiting on a
// response.
type ElapsedTickMsg struct {
	Time time.Time
}

// =============================================================================
// STORE MESSAGES
// =============================================================================

// StoreEventMsg carries a session store event into the UI loop.
type StoreEventMsg struct {
	Event store.Event
}

// =============================================================================
// CLIPBOARD MESSAGES
// =============================================================================

// CopyAckChangedMsg signals that the copy acknowledgment flipped,
// including its timer-driven reset.
type CopyAckChangedMsg struct{}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrMsg surfaces a non-fatal failure in the status line.
type ErrMsg struct {
	Err error
}
