// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/driftlabs/drift-tui/internal/model"
	"github.com/driftlabs/drift-tui/internal/ui/styles"
	"github.com/driftlabs/drift-tui/internal/validate"
)

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat surface.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting drift…"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderThinking())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderStatusBar())
	}
	return b.String()
}

// renderHeader shows the app name and the visible session.
func (m *Model) renderHeader() string {
	title := model.DefaultTitle
	pos := 1
	for i, meta := range m.metas {
		if meta.ID == m.sessionID {
			title = meta.Title
			pos = i + 1
			break
		}
	}
	title = runewidth.Truncate(title, 48, "…")

	left := m.theme.Header.Render("drift")
	right := m.theme.HeaderTitle.Render(
		fmt.Sprintf("%s · session %d/%d", title, pos, len(m.metas)))
	return lipgloss.JoinHorizontal(lipgloss.Center, left, right)
}

// renderThinking shows the spinner and elapsed time while a response is
// in flight.
func (m *Model) renderThinking() string {
	elapsed, ok := m.streamElapsed()
	if !ok {
		if m.note != "" {
			switch m.noteKind {
			case noteSuccess:
				return styles.RenderSuccess(m.note)
			case noteWarning:
				return styles.RenderWarning(m.note)
			case noteError:
				return styles.RenderError(m.note)
			default:
				return styles.RenderInfo(m.note)
			}
		}
		if acked := m.clip.AckedID(); acked != "" {
			return styles.RenderSuccess("Copied to clipboard")
		}
		return ""
	}
	return fmt.Sprintf("%s %s %s",
		m.spin.View(),
		m.theme.ThinkingText.Render("Thinking"),
		m.theme.ThinkingTime.Render(fmt.Sprintf("%.1fs", elapsed.Seconds())))
}

// renderInput shows the prompt line with a byte counter against the
// send limit.
func (m *Model) renderInput() string {
	if m.renaming {
		line := lipgloss.JoinHorizontal(lipgloss.Center,
			m.theme.InputPrompt.Render("Title"), " ", m.input.View())
		return m.theme.InputContainer.Width(m.width).Render(line)
	}

	count := len(m.input.Value())
	counter := fmt.Sprintf("%d/%d", count, validate.MaxMessageBytes)

	style := m.theme.CharCount
	switch {
	case count > validate.MaxMessageBytes:
		style = m.theme.CharCountDanger
	case count > validate.MaxMessageBytes*7/8:
		style = m.theme.CharCountWarning
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center,
		m.input.View(), " ", style.Render(counter))
	return m.theme.InputContainer.Width(m.width).Render(line)
}

// renderStatusBar shows the short help line.
func (m *Model) renderStatusBar() string {
	var parts []string
	for _, binding := range m.keys.ShortHelp() {
		parts = append(parts,
			m.theme.StatusKey.Render(binding.Help().Key)+" "+
				m.theme.StatusDesc.Render(binding.Help().Desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// renderFullHelp shows every key group.
func (m *Model) renderFullHelp() string {
	var lines []string
	for _, group := range m.keys.FullHelp() {
		var parts []string
		for _, binding := range group {
			parts = append(parts,
				m.theme.StatusKey.Render(binding.Help().Key)+" "+
					m.theme.StatusDesc.Render(binding.Help().Desc))
		}
		lines = append(lines, strings.Join(parts, "  "))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(lines, "\n"))
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshTranscript rebuilds the viewport from the store. With full
// false only the live tail changed, but the transcript is rebuilt either
// way; the buffer's frame cap keeps the cost bounded.
func (m *Model) refreshTranscript(full bool) {
	if !m.ready {
		return
	}
	sess := m.visibleSession()
	if sess == nil {
		m.viewport.SetContent("")
		return
	}

	atBottom := m.viewport.AtBottom()

	var b strings.Builder
	for i, msg := range sess.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())

	// Follow the stream unless the user scrolled back.
	if atBottom || full {
		m.viewport.GotoBottom()
	}
}

// renderMessage renders one message with its role label and status.
func (m *Model) renderMessage(msg *model.Message) string {
	var b strings.Builder

	if msg.Role == model.RoleUser {
		b.WriteString(m.theme.UserLabel.Render("You"))
		b.WriteString("\n")
		b.WriteString(m.theme.MessageBody.Render(msg.Content))
		return b.String()
	}

	b.WriteString(m.theme.AssistantLabel.Render("Drift"))
	b.WriteString("\n")

	switch msg.Status {
	case model.StatusPending:
		if msg.ID == m.liveID {
			b.WriteString(m.theme.PendingText.Render("…"))
		}
	case model.StatusStreaming:
		b.WriteString(m.theme.MessageBody.Render(msg.Content))
		b.WriteString(m.theme.PendingText.Render("▌"))
	case model.StatusComplete:
		b.WriteString(m.renderAssistantBody(msg.Content))
	case model.StatusCancelled:
		if msg.Content != "" {
			b.WriteString(m.theme.MessageBody.Render(msg.Content))
			b.WriteString("\n")
		}
		b.WriteString(m.theme.CancelledNote.Render("— stopped"))
	case model.StatusError:
		if msg.Content != "" {
			b.WriteString(m.theme.MessageBody.Render(msg.Content))
			b.WriteString("\n")
		}
		b.WriteString(m.theme.ErrorNote.Render("✗ response failed — send again to retry"))
	}
	return b.String()
}

// renderAssistantBody renders settled assistant content, through glamour
// when markdown rendering is on.
func (m *Model) renderAssistantBody(content string) string {
	if m.renderer == nil {
		return m.theme.MessageBody.Render(content)
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return m.theme.MessageBody.Render(content)
	}
	return strings.TrimRight(out, "\n")
}
