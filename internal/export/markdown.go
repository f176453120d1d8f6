// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/driftlabs/drift-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders sessions as Markdown transcripts.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// Export renders the session as a Markdown transcript.
func (e *MarkdownExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	msgs := exportable(sess)
	if len(msgs) == 0 {
		return nil, ErrNoContent
	}

	var sb strings.Builder

	sb.WriteString("# " + sess.Title + "\n\n")

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("- **Created**: %s\n", sess.CreatedAt.Format("2006-01-02 15:04")))
		sb.WriteString(fmt.Sprintf("- **Updated**: %s\n", sess.UpdatedAt.Format("2006-01-02 15:04")))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(msgs)))
		sb.WriteString(fmt.Sprintf("- **Exported**: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("\n---\n\n")
	}

	for i, msg := range msgs {
		sb.WriteString("### " + msg.Role.DisplayName())
		if e.options.IncludeTimestamps {
			sb.WriteString(" — " + msg.CreatedAt.Format("15:04:05"))
		}
		sb.WriteString("\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
		switch msg.Status {
		case model.StatusCancelled:
			sb.WriteString("\n*(stopped before completion)*\n")
		case model.StatusError:
			sb.WriteString("\n*(response failed in transit)*\n")
		}
		if i < len(msgs)-1 {
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}
