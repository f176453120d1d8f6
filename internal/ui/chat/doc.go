// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the drift chat view: a Bubble Tea model wiring the
// session store, the stream controller, and the clipboard controller to
// the terminal.
//
// The model never mutates sessions directly. User input goes through
// validation, then the store and the stream controller; their events and
// updates come back as Bubble Tea messages via Program.Send, so all
// rendering state changes on the UI goroutine. Streamed chunks are
// coalesced through a StreamingBuffer and drawn on a fixed-rate tick to
// keep redraw cost independent of token rate.
package chat
