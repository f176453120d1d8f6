// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file batches streamed chunks so the viewport re-renders at a
// capped frame rate instead of once per token.

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer accumulates chunks written by the stream controller's
// callback goroutine and signals the render loop when either a
// chunk-count threshold or a frame interval has passed. Without it a
// fast backend forces a full redraw per token; with it the transcript
// redraws at most once per frame.
type StreamingBuffer struct {
	mu        sync.Mutex
	pending   strings.Builder
	chunks    int
	lastFlush time.Time

	batchSize     int
	flushInterval time.Duration
}

const (
	defaultBatchSize = 15
	framesPerSecond  = 30
)

// NewStreamingBuffer creates a buffer tuned for smooth terminal
// rendering (30fps, 15-chunk batches).
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize:     defaultBatchSize,
		flushInterval: time.Second / framesPerSecond,
		lastFlush:     time.Now(),
	}
}

// Write adds one streamed chunk. Called from the streaming goroutine.
func (sb *StreamingBuffer) Write(chunk string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.pending.WriteString(chunk)
	sb.chunks++
}

// Flush returns the accumulated content when a threshold has been
// reached. Called from the render loop on each tick.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.pending.Len() == 0 {
		return "", false
	}
	if sb.chunks < sb.batchSize && time.Since(sb.lastFlush) < sb.flushInterval {
		return "", false
	}
	return sb.drainLocked()
}

// ForceFlush returns everything buffered regardless of thresholds. Used
// when a stream settles so the final tokens are never stranded.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.pending.Len() == 0 {
		return "", false
	}
	return sb.drainLocked()
}

// Reset discards buffered content. Used when the visible session
// changes mid-stream.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.pending.Reset()
	sb.chunks = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of buffered chunks.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.chunks
}

func (sb *StreamingBuffer) drainLocked() (string, bool) {
	content := sb.pending.String()
	sb.pending.Reset()
	sb.chunks = 0
	sb.lastFlush = time.Now()
	return content, true
}

// =============================================================================
// TICK COMMANDS
// =============================================================================

// streamTickCmd schedules the next streaming redraw frame.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/framesPerSecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// elapsedTickCmd schedules the next elapsed-time refresh.
func elapsedTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return ElapsedTickMsg{Time: t}
	})
}
