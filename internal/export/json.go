// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftlabs/drift-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter renders sessions as indented JSON.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string { return ".json" }

type jsonDocument struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ExportedAt time.Time      `json:"exported_at"`
	Messages   []*jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Export renders the session as indented JSON.
func (e *JSONExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	msgs := exportable(sess)
	if len(msgs) == 0 {
		return nil, ErrNoContent
	}

	doc := jsonDocument{
		ID:         sess.ID,
		Title:      sess.Title,
		CreatedAt:  sess.CreatedAt,
		UpdatedAt:  sess.UpdatedAt,
		ExportedAt: time.Now(),
		Messages:   make([]*jsonMessage, 0, len(msgs)),
	}
	for _, msg := range msgs {
		jm := &jsonMessage{
			ID:      msg.ID,
			Role:    msg.Role.String(),
			Content: msg.Content,
			Status:  string(msg.Status),
		}
		if e.options.IncludeTimestamps {
			jm.CreatedAt = msg.CreatedAt
		}
		doc.Messages = append(doc.Messages, jm)
	}

	return json.MarshalIndent(doc, "", "  ")
}
