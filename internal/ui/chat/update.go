// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftlabs/drift-tui/internal/export"
	"github.com/driftlabs/drift-tui/internal/store"
	"github.com/driftlabs/drift-tui/internal/stream"
	"github.com/driftlabs/drift-tui/internal/validate"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update is the Bubble Tea update loop.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case StreamUpdateMsg:
		return m.handleStreamUpdate(msg.Update)
	case StreamTickMsg:
		return m.handleStreamTick()
	case ElapsedTickMsg:
		if m.ctrl.IsStreaming(m.sessionID) {
			return m, elapsedTickCmd()
		}
		return m, nil
	case StoreEventMsg:
		return m.handleStoreEvent(msg.Event)
	case CopyAckChangedMsg:
		// Ack state lives in the clipboard controller; re-render only.
		return m, nil
	case ErrMsg:
		m.setNote(noteError, msg.Err.Error())
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// RESIZE
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Header, thinking line, input box, status bar.
	const chromeHeight = 6
	vpHeight := msg.Height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = newViewport(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.Width = msg.Width - 6

	m.refreshTranscript(true)
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys

	if m.renaming {
		switch {
		case key.Matches(msg, keys.Submit):
			return m.commitRename()
		case key.Matches(msg, keys.Stop):
			m.exitRename()
			return m, nil
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			m.ctrl.StopAll()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.ctrl.StopAll()
		return m, tea.Quit

	case key.Matches(msg, keys.Submit):
		return m.submit()

	case key.Matches(msg, keys.Stop):
		// Idempotent: harmless when nothing is streaming.
		m.ctrl.Stop(m.sessionID)
		return m, nil

	case key.Matches(msg, keys.Copy):
		return m.copyLastResponse()

	case key.Matches(msg, keys.Export):
		return m.exportVisibleSession()

	case key.Matches(msg, keys.NewSession):
		sess := m.store.Create()
		m.selectSession(sess.ID)
		return m, nil

	case key.Matches(msg, keys.RenameSess):
		return m.enterRename()

	case key.Matches(msg, keys.NextSess):
		m.cycleSession(1)
		return m, nil

	case key.Matches(msg, keys.PrevSess):
		m.cycleSession(-1)
		return m, nil

	case key.Matches(msg, keys.DeleteSess):
		return m.deleteVisibleSession()

	// "?" belongs to the message once the user has started typing one.
	case key.Matches(msg, keys.Help) && m.input.Value() == "":
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit validates the input and starts a stream for the response.
// Invalid input never reaches the store.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	res := validate.Validate(m.input.Value())
	if !res.Valid {
		switch res.Reason {
		case validate.ReasonEmpty:
			m.setNote(noteWarning, "Nothing to send")
		case validate.ReasonTooLarge:
			m.setNote(noteWarning, "Message is too large (32 KiB limit)")
		}
		return m, nil
	}

	if m.ctrl.IsStreaming(m.sessionID) {
		m.setNote(noteInfo, "Wait for the current response, or press Esc to stop it")
		return m, nil
	}

	if _, err := m.store.AppendUserMessage(m.sessionID, res.Content); err != nil {
		m.setNote(noteError, err.Error())
		return m, nil
	}
	m.input.Reset()
	m.clearNote()

	if _, err := m.ctrl.Start(m.sessionID); err != nil {
		if !errors.Is(err, stream.ErrAlreadyStreaming) {
			m.setNote(noteError, err.Error())
		}
		return m, nil
	}

	m.refreshTranscript(true)
	return m, tea.Batch(streamTickCmd(), elapsedTickCmd())
}

// copyLastResponse copies the newest complete assistant message.
func (m *Model) copyLastResponse() (tea.Model, tea.Cmd) {
	msg := m.lastAssistantMessage()
	if msg == nil {
		m.setNote(noteInfo, "No response to copy yet")
		return m, nil
	}
	if err := m.clip.Copy(msg.ID, msg.Content); err != nil {
		m.setNote(noteError, "Copy failed: "+err.Error())
		return m, nil
	}
	m.clearNote()
	return m, nil
}

// enterRename turns the input line into a title editor, parking the
// message draft until the rename settles.
func (m *Model) enterRename() (tea.Model, tea.Cmd) {
	sess := m.visibleSession()
	if sess == nil {
		return m, nil
	}
	m.renaming = true
	m.draft = m.input.Value()
	m.input.SetValue(sess.Title)
	m.input.CursorEnd()
	m.setNote(noteInfo, "Renaming session (Enter to save, Esc to cancel)")
	return m, nil
}

func (m *Model) commitRename() (tea.Model, tea.Cmd) {
	if err := m.store.Rename(m.sessionID, m.input.Value()); err != nil {
		if errors.Is(err, store.ErrInvalidTitle) {
			m.setNote(noteWarning, "Title cannot be empty")
		} else {
			m.setNote(noteError, err.Error())
		}
		return m, nil
	}
	m.metas = m.store.List()
	m.exitRename()
	return m, nil
}

func (m *Model) exitRename() {
	m.renaming = false
	m.input.SetValue(m.draft)
	m.input.CursorEnd()
	m.draft = ""
	m.clearNote()
}

// exportVisibleSession writes the current transcript in the configured
// export format.
func (m *Model) exportVisibleSession() (tea.Model, tea.Cmd) {
	sess := m.visibleSession()
	if sess == nil {
		m.setNote(noteInfo, "Nothing to export")
		return m, nil
	}
	var exp export.Exporter
	switch m.exportFormat {
	case "json":
		exp = export.NewJSONExporter(nil)
	default:
		exp = export.NewMarkdownExporter(nil)
	}
	path, err := export.WriteFile(sess, exp, nil)
	if err != nil {
		if errors.Is(err, export.ErrNoContent) {
			m.setNote(noteInfo, "Nothing to export yet")
		} else {
			m.setNote(noteError, "Export failed: "+err.Error())
		}
		return m, nil
	}
	m.setNote(noteSuccess, "Exported to "+path)
	return m, nil
}

// deleteVisibleSession removes the session (stopping its stream) and
// lands on the next most recent one.
func (m *Model) deleteVisibleSession() (tea.Model, tea.Cmd) {
	deleted := m.sessionID
	if err := m.store.Delete(deleted); err != nil {
		m.setNote(noteError, err.Error())
		return m, nil
	}

	m.metas = m.store.List()
	if len(m.metas) == 0 {
		sess := m.store.Create()
		m.metas = m.store.List()
		m.sessionID = sess.ID
	} else {
		m.sessionID = m.metas[0].ID
	}
	m.buffer.Reset()
	m.liveID = ""
	m.refreshTranscript(true)
	return m, nil
}

// =============================================================================
// STREAM AND STORE EVENTS
// =============================================================================

func (m *Model) handleStreamUpdate(up stream.Update) (tea.Model, tea.Cmd) {
	m.metas = m.store.List()

	if up.SessionID != m.sessionID {
		// Background session; the store already has the chunks.
		return m, nil
	}

	switch up.Phase {
	case stream.PhaseSending:
		m.liveID = up.MessageID
		m.refreshTranscript(true)
	case stream.PhaseStreaming:
		if up.MessageID == m.liveID {
			m.buffer.Write(up.Chunk)
		}
	case stream.PhaseCompleted, stream.PhaseCancelled:
		m.settleLiveMessage()
	case stream.PhaseErrored:
		m.settleLiveMessage()
		if up.Err != nil {
			m.setNote(noteError, "Response failed: "+up.Err.Error())
		}
	}
	return m, nil
}

// settleLiveMessage re-renders from the store, which now holds the
// message's final content and status.
func (m *Model) settleLiveMessage() {
	m.buffer.Reset()
	m.liveID = ""
	m.refreshTranscript(true)
}

func (m *Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.ctrl.IsStreaming(m.sessionID) {
		if _, ok := m.buffer.Flush(); ok {
			m.refreshTranscript(false)
		}
		return m, streamTickCmd()
	}
	// The stream is gone; drain whatever the pacer is still holding.
	if m.buffer.Pending() > 0 {
		m.buffer.ForceFlush()
		m.refreshTranscript(false)
	}
	return m, nil
}

func (m *Model) handleStoreEvent(ev store.Event) (tea.Model, tea.Cmd) {
	m.metas = m.store.List()

	switch ev.Type {
	case store.EventSessionDeleted:
		if ev.SessionID == m.sessionID {
			// Deleted from outside the key handler; move somewhere valid.
			if len(m.metas) == 0 {
				sess := m.store.Create()
				m.metas = m.store.List()
				m.sessionID = sess.ID
			} else {
				m.sessionID = m.metas[0].ID
			}
			m.settleLiveMessage()
		}
	case store.EventMessageAppended, store.EventMessageUpdated:
		if ev.SessionID == m.sessionID {
			m.refreshTranscript(true)
		}
	}
	return m, nil
}
