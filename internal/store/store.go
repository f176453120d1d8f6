// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/driftlabs/drift-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned for operations on an unknown session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMessageNotFound is returned for mutations of an unknown message.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidTitle rejects empty or whitespace-only session titles.
	ErrInvalidTitle = errors.New("session title cannot be empty")

	// ErrMessageImmutable rejects content mutation of a terminal message.
	ErrMessageImmutable = errors.New("message is in a terminal state")

	// ErrInvalidTransition rejects a non-monotonic status change.
	ErrInvalidTransition = errors.New("invalid message status transition")
)

// =============================================================================
// CHANGE EVENTS
// =============================================================================

// EventType identifies what changed in the store.
type EventType int

const (
	EventSessionCreated EventType = iota
	EventSessionRenamed
	EventSessionDeleted
	EventMessageAppended
	EventMessageUpdated
)

// Event describes one store mutation.
type Event struct {
	Type      EventType
	SessionID string
	MessageID string
}

// Listener receives change events. Listeners are invoked outside the store
// lock, in subscription order.
type Listener func(Event)

// =============================================================================
// STREAM CANCELER
// =============================================================================

// StreamCanceler cancels an in-flight stream for a session. Delete calls it
// synchronously before removing the session; by the time Stop returns, no
// further chunk may be applied to that session's messages.
type StreamCanceler interface {
	Stop(sessionID string)
}

// =============================================================================
// STORE
// =============================================================================

// Store is the ordered collection of sessions, keyed by ID and listed by
// recency of last activity. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	order    []string // session IDs, most recently active first

	canceler StreamCanceler

	listeners  map[int]Listener
	nextListen int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions:  make(map[string]*model.Session),
		listeners: make(map[int]Listener),
	}
}

// SetCanceler registers the stream canceler consulted on Delete.
func (s *Store) SetCanceler(c StreamCanceler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceler = c
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers a listener and returns its subscription ID.
func (s *Store) Subscribe(fn Listener) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn
	return id
}

// Unsubscribe removes a listener. Unknown IDs are a no-op.
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}

// emit delivers an event to all listeners. Caller must NOT hold the lock.
func (s *Store) emit(ev Event) {
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// =============================================================================
// SESSION CRUD
// =============================================================================

// Create allocates a new empty session and makes it the most recent.
// Returns a copy; the store keeps ownership of the original.
func (s *Store) Create() *model.Session {
	sess := model.NewSession()

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.order = append([]string{sess.ID}, s.order...)
	s.mu.Unlock()

	s.emit(Event{Type: EventSessionCreated, SessionID: sess.ID})
	return sess.Clone()
}

// Restore inserts an archived session at the back of the recency order.
// Callers feed sessions most-recent-first. A session whose ID is already
// present is skipped. Messages archived in a non-terminal state (the
// process died mid-stream) are settled as cancelled: a restored message
// can never still be streaming.
func (s *Store) Restore(sess *model.Session) {
	if sess == nil {
		return
	}
	clone := sess.Clone()
	for _, msg := range clone.Messages {
		if !msg.Status.Terminal() {
			msg.Status = model.StatusCancelled
		}
	}

	s.mu.Lock()
	if _, ok := s.sessions[clone.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.sessions[clone.ID] = clone
	s.order = append(s.order, clone.ID)
	s.mu.Unlock()

	s.emit(Event{Type: EventSessionCreated, SessionID: clone.ID})
}

// Get returns a copy of the session with the given ID.
func (s *Store) Get(id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// List returns session metadata ordered by recency of last activity.
func (s *Store) List() []model.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()

	metas := make([]model.Meta, 0, len(s.order))
	for _, id := range s.order {
		if sess, ok := s.sessions[id]; ok {
			metas = append(metas, sess.Meta())
		}
	}
	return metas
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Rename replaces the session title. Empty or whitespace-only titles are
// rejected with ErrInvalidTitle.
func (s *Store) Rename(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.Title = title
	sess.UpdatedAt = time.Now()
	s.touchLocked(id)
	s.mu.Unlock()

	s.emit(Event{Type: EventSessionRenamed, SessionID: id})
	return nil
}

// Delete removes a session. If the session has a live stream, the registered
// canceler is invoked first and removal proceeds only after it returns, so
// no chunk can mutate a message once Delete returns. Removal is then
// unconditional: a final chunk racing the cancellation is dropped because
// the session is no longer present.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	canceler := s.canceler
	s.mu.Unlock()

	// Cancel outside the lock: the canceler calls back into the store to
	// mark the streaming message cancelled.
	if canceler != nil {
		canceler.Stop(id)
	}

	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		// Removed concurrently while cancelling.
		s.mu.Unlock()
		return nil
	}
	delete(s.sessions, id)
	s.removeFromOrderLocked(id)
	s.mu.Unlock()

	s.emit(Event{Type: EventSessionDeleted, SessionID: id})
	return nil
}

// =============================================================================
// MESSAGE MUTATION
// =============================================================================

// AppendUserMessage appends the user's text optimistically: the message is
// complete immediately and the session becomes the most recent. Returns a
// copy of the appended message.
func (s *Store) AppendUserMessage(id, text string) (*model.Message, error) {
	msg := model.NewUserMessage(text)

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, msg)
	if sess.Title == model.DefaultTitle {
		sess.Title = msg.Preview(50)
	}
	sess.UpdatedAt = msg.CreatedAt
	s.touchLocked(id)
	s.mu.Unlock()

	s.emit(Event{Type: EventMessageAppended, SessionID: id, MessageID: msg.ID})
	return msg.Clone(), nil
}

// AppendAssistantPlaceholder appends an empty pending assistant message for
// the stream controller to fill. Returns a copy of the placeholder.
func (s *Store) AppendAssistantPlaceholder(id string) (*model.Message, error) {
	msg := model.NewAssistantPlaceholder()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = msg.CreatedAt
	s.touchLocked(id)
	s.mu.Unlock()

	s.emit(Event{Type: EventMessageAppended, SessionID: id, MessageID: msg.ID})
	return msg.Clone(), nil
}

// AppendAssistantContent appends one streamed chunk to an assistant message,
// in arrival order. The first chunk moves the message from pending to
// streaming. Chunks for deleted sessions or terminal messages are rejected,
// never applied.
func (s *Store) AppendAssistantContent(sessionID, messageID, chunk string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	msg := sess.MessageByID(messageID)
	if msg == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	if msg.Status.Terminal() {
		s.mu.Unlock()
		return ErrMessageImmutable
	}
	if msg.Status == model.StatusPending {
		msg.Status = model.StatusStreaming
	}
	msg.Content += chunk
	sess.UpdatedAt = time.Now()
	s.touchLocked(sessionID)
	s.mu.Unlock()

	s.emit(Event{Type: EventMessageUpdated, SessionID: sessionID, MessageID: messageID})
	return nil
}

// SetMessageStatus applies a lifecycle transition. Transitions must be
// monotonic; anything out of a terminal state is rejected with
// ErrInvalidTransition.
func (s *Store) SetMessageStatus(sessionID, messageID string, status model.Status) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	msg := sess.MessageByID(messageID)
	if msg == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	if !msg.Status.CanTransitionTo(status) {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	msg.Status = status
	sess.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.emit(Event{Type: EventMessageUpdated, SessionID: sessionID, MessageID: messageID})
	return nil
}

// =============================================================================
// ORDER MAINTENANCE
// =============================================================================

// touchLocked moves a session to the front of the recency order.
// Caller must hold the lock.
func (s *Store) touchLocked(id string) {
	if len(s.order) > 0 && s.order[0] == id {
		return
	}
	s.removeFromOrderLocked(id)
	s.order = append([]string{id}, s.order...)
}

// removeFromOrderLocked drops a session ID from the order slice.
// Caller must hold the lock.
func (s *Store) removeFromOrderLocked(id string) {
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
