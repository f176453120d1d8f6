// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/driftlabs/drift-tui/internal/clipboard"
	"github.com/driftlabs/drift-tui/internal/model"
	"github.com/driftlabs/drift-tui/internal/store"
	"github.com/driftlabs/drift-tui/internal/stream"
	"github.com/driftlabs/drift-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// noteKind selects the status-line treatment for a note.
type noteKind int

const (
	noteInfo noteKind = iota
	noteSuccess
	noteWarning
	noteError
)

// Model is the chat view. It reads sessions from the store and drives
// the stream and clipboard controllers; it owns no message state itself.
type Model struct {
	store *store.Store
	ctrl  *stream.Controller
	clip  *clipboard.Controller

	theme *styles.Theme
	keys  KeyMap

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	// sessionID is the visible session. metas mirrors store.List().
	sessionID string
	metas     []model.Meta

	// Streaming display state for the visible session. The buffer only
	// paces redraws; message content always comes from the store.
	buffer *StreamingBuffer
	liveID string

	width  int
	height int
	ready  bool

	showHelp bool
	note     string
	noteKind noteKind

	exportFormat string

	// renaming repurposes the input line as a title editor; draft holds
	// the in-progress message text until the rename settles.
	renaming bool
	draft    string

	quitting bool
}

// Options configures the chat view.
type Options struct {
	Store          *store.Store
	Controller     *stream.Controller
	Clipboard      *clipboard.Controller
	Theme          *styles.Theme
	RenderMarkdown bool
	WordWrap       int
	// ExportFormat is "markdown" or "json"; anything else falls back
	// to markdown.
	ExportFormat string
}

// New creates the chat view with one fresh session selected.
func New(opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.Prompt = "❯ "
	input.CharLimit = 0
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = opts.Theme.Spinner

	m := &Model{
		store:  opts.Store,
		ctrl:   opts.Controller,
		clip:   opts.Clipboard,
		theme:  opts.Theme,
		keys:   DefaultKeyMap(),
		input:  input,
		spin:   spin,
		buffer: NewStreamingBuffer(),

		exportFormat: opts.ExportFormat,
	}

	if opts.RenderMarkdown {
		wrap := opts.WordWrap
		if wrap <= 0 {
			wrap = 80
		}
		// Plain text fallback when the renderer cannot initialize.
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		); err == nil {
			m.renderer = r
		}
	}

	sess := opts.Store.Create()
	m.sessionID = sess.ID
	m.metas = opts.Store.List()
	return m
}

// setNote replaces the status-line note.
func (m *Model) setNote(kind noteKind, text string) {
	m.noteKind = kind
	m.note = text
}

func (m *Model) clearNote() {
	m.note = ""
}

// Init starts the cursor blink and spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

// SessionID returns the visible session's ID.
func (m *Model) SessionID() string {
	return m.sessionID
}

// =============================================================================
// SESSION NAVIGATION
// =============================================================================

// selectSession switches the visible session and rebuilds the transcript.
func (m *Model) selectSession(id string) {
	if id == m.sessionID {
		return
	}
	m.sessionID = id
	m.buffer.Reset()
	m.liveID = ""
	m.clearNote()
	m.refreshTranscript(true)
}

// cycleSession moves through the session list in recency order.
func (m *Model) cycleSession(step int) {
	if len(m.metas) < 2 {
		return
	}
	cur := 0
	for i, meta := range m.metas {
		if meta.ID == m.sessionID {
			cur = i
			break
		}
	}
	next := (cur + step + len(m.metas)) % len(m.metas)
	m.selectSession(m.metas[next].ID)
}

// visibleSession reads the current session from the store.
func (m *Model) visibleSession() *model.Session {
	sess, err := m.store.Get(m.sessionID)
	if err != nil {
		return nil
	}
	return sess
}

// lastAssistantMessage returns the newest settled assistant message of
// the visible session.
func (m *Model) lastAssistantMessage() *model.Message {
	sess := m.visibleSession()
	if sess == nil {
		return nil
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		msg := sess.Messages[i]
		if msg.Role == model.RoleAssistant && msg.Status == model.StatusComplete {
			return msg
		}
	}
	return nil
}

// =============================================================================
// ELAPSED TIME
// =============================================================================

// streamElapsed returns how long the visible session's stream has been
// running.
func (m *Model) streamElapsed() (time.Duration, bool) {
	started, ok := m.ctrl.StartedAt(m.sessionID)
	if !ok {
		return 0, false
	}
	return time.Since(started), true
}
