// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/driftlabs/drift-tui/internal/api"
	"github.com/driftlabs/drift-tui/internal/model"
	"github.com/driftlabs/drift-tui/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrAlreadyStreaming is returned by Start when the session already has
	// a live stream. The caller must Stop it (or wait) before sending again.
	ErrAlreadyStreaming = errors.New("session already has an active stream")

	// ErrEmptyHistory is returned by Start when the session has no messages
	// to send.
	ErrEmptyHistory = errors.New("session has no messages to send")
)

// =============================================================================
// PHASES AND UPDATES
// =============================================================================

// Phase is the lifecycle position of a stream as seen by observers.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseCompleted
	PhaseCancelled
	PhaseErrored
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Update describes a stream state change delivered to the Notify hook.
// Chunk is set only for PhaseStreaming updates; Err only for PhaseErrored.
type Update struct {
	SessionID string
	MessageID string
	Phase     Phase
	Chunk     string
	Err       error
}

// Notify receives stream updates. Called from the streaming goroutine for
// chunk and completion updates, and from the caller's goroutine for Stop.
type Notify func(Update)

// =============================================================================
// STREAMER
// =============================================================================

// Streamer is the API surface the controller drives. *api.Client satisfies
// it; tests substitute a scripted fake.
type Streamer interface {
	ChatStream(ctx context.Context, messages []api.ChatMessage, callback api.StreamCallback) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// handle tracks one live stream. The cancel function is invoked only after
// the controller mutex is released, mirroring the store's
// callbacks-outside-lock rule.
type handle struct {
	sessionID string
	messageID string
	cancel    context.CancelFunc
	phase     Phase
	startedAt time.Time
}

// Controller runs at most one stream per session. It implements
// store.StreamCanceler so deleting a session stops its stream first.
type Controller struct {
	mu      sync.Mutex
	client  Streamer
	store   *store.Store
	notify  Notify
	handles map[string]*handle
}

// New creates a Controller bound to a store and an API client. notify may
// be nil.
func New(client Streamer, st *store.Store, notify Notify) *Controller {
	return &Controller{
		client:  client,
		store:   st,
		notify:  notify,
		handles: make(map[string]*handle),
	}
}

func (c *Controller) emit(up Update) {
	if c.notify != nil {
		c.notify(up)
	}
}

// IsStreaming reports whether the session has a live stream.
func (c *Controller) IsStreaming(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handles[sessionID]
	return ok
}

// Phase returns the session's current phase, PhaseIdle when no stream is
// active.
func (c *Controller) Phase(sessionID string) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[sessionID]; ok {
		return h.phase
	}
	return PhaseIdle
}

// StartedAt returns when the session's stream began, for elapsed-time
// display. The second return is false when no stream is active.
func (c *Controller) StartedAt(sessionID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[sessionID]; ok {
		return h.startedAt, true
	}
	return time.Time{}, false
}

// =============================================================================
// START
// =============================================================================

// Start begins streaming an assistant response for the session, using its
// full message history as context. It appends the placeholder and registers
// the stream handle before returning; the network request runs on a
// goroutine. Returns ErrAlreadyStreaming when the session already has a
// live stream.
func (c *Controller) Start(sessionID string) (string, error) {
	sess, err := c.store.Get(sessionID)
	if err != nil {
		return "", err
	}

	history := buildHistory(sess)
	if len(history) == 0 {
		return "", ErrEmptyHistory
	}

	// Reserve the handle before touching the store so a concurrent Start
	// fails fast, and append the placeholder outside the lock so store
	// listeners can call back into the controller.
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{
		sessionID: sessionID,
		cancel:    cancel,
		phase:     PhaseSending,
		startedAt: time.Now(),
	}

	c.mu.Lock()
	if _, ok := c.handles[sessionID]; ok {
		c.mu.Unlock()
		cancel()
		return "", ErrAlreadyStreaming
	}
	c.handles[sessionID] = h
	c.mu.Unlock()

	placeholder, err := c.store.AppendAssistantPlaceholder(sessionID)
	if err != nil {
		c.mu.Lock()
		delete(c.handles, sessionID)
		c.mu.Unlock()
		cancel()
		return "", err
	}

	c.mu.Lock()
	if _, ok := c.handles[sessionID]; !ok {
		// Stopped while the placeholder was being appended. The context
		// is already cancelled; settle the message and bail.
		c.mu.Unlock()
		c.store.SetMessageStatus(sessionID, placeholder.ID, model.StatusCancelled)
		return placeholder.ID, nil
	}
	h.messageID = placeholder.ID
	c.mu.Unlock()

	c.emit(Update{SessionID: sessionID, MessageID: placeholder.ID, Phase: PhaseSending})

	go c.run(ctx, sessionID, placeholder.ID, history)
	return placeholder.ID, nil
}

// buildHistory converts a session's settled messages into API request
// messages. Pending and streaming placeholders are skipped.
func buildHistory(sess *model.Session) []api.ChatMessage {
	out := make([]api.ChatMessage, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		if msg.Status != model.StatusComplete || msg.Content == "" {
			continue
		}
		out = append(out, api.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// run drives one stream to a terminal state. Chunks are applied to the
// store as they arrive, so partial content survives cancellation and
// errors without any replay.
func (c *Controller) run(ctx context.Context, sessionID, messageID string, history []api.ChatMessage) {
	err := c.client.ChatStream(ctx, history, func(delta api.Delta) {
		if delta.Content == "" {
			return
		}
		// A chunk racing Stop or Delete is rejected by the store; drop it.
		if err := c.store.AppendAssistantContent(sessionID, messageID, delta.Content); err != nil {
			return
		}
		c.setPhase(sessionID, PhaseStreaming)
		c.emit(Update{SessionID: sessionID, MessageID: messageID, Phase: PhaseStreaming, Chunk: delta.Content})
	})
	c.finish(sessionID, messageID, err)
}

func (c *Controller) setPhase(sessionID string, p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[sessionID]; ok {
		h.phase = p
	}
}

// finish settles the stream once ChatStream returns. If Stop already
// released the handle, the terminal state was set there and this is a
// no-op.
func (c *Controller) finish(sessionID, messageID string, err error) {
	c.mu.Lock()
	h, ok := c.handles[sessionID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.handles, sessionID)
	c.mu.Unlock()
	h.cancel()

	switch {
	case err == nil:
		c.store.SetMessageStatus(sessionID, messageID, model.StatusComplete)
		c.emit(Update{SessionID: sessionID, MessageID: messageID, Phase: PhaseCompleted})
	case errors.Is(err, context.Canceled):
		c.store.SetMessageStatus(sessionID, messageID, model.StatusCancelled)
		c.emit(Update{SessionID: sessionID, MessageID: messageID, Phase: PhaseCancelled})
	default:
		c.store.SetMessageStatus(sessionID, messageID, model.StatusError)
		c.emit(Update{SessionID: sessionID, MessageID: messageID, Phase: PhaseErrored, Err: err})
	}
}

// =============================================================================
// STOP
// =============================================================================

// Stop cancels the session's live stream and marks its message cancelled
// before returning. Content received so far is kept. Calling Stop with no
// active stream is a no-op, so repeated presses and delete-during-stream
// are both safe. Stop implements store.StreamCanceler.
func (c *Controller) Stop(sessionID string) {
	c.mu.Lock()
	h, ok := c.handles[sessionID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.handles, sessionID)
	c.mu.Unlock()

	h.cancel()
	if h.messageID != "" {
		c.store.SetMessageStatus(sessionID, h.messageID, model.StatusCancelled)
	}
	c.emit(Update{SessionID: sessionID, MessageID: h.messageID, Phase: PhaseCancelled})
}

// StopAll cancels every live stream, for shutdown.
func (c *Controller) StopAll() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.handles))
	for id := range c.handles {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.Stop(id)
	}
}
