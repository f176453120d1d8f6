// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/driftlabs/drift-tui/internal/model"
)

func sampleSession() *model.Session {
	sess := model.NewSession()
	sess.Title = "How do goroutines work?"
	sess.Messages = append(sess.Messages, model.NewUserMessage("How do goroutines work?"))

	reply := model.NewAssistantPlaceholder()
	reply.Content = "They are lightweight threads managed by the Go runtime."
	reply.Status = model.StatusComplete
	sess.Messages = append(sess.Messages, reply)
	return sess
}

func TestMarkdownExport(t *testing.T) {
	sess := sampleSession()

	data, err := NewMarkdownExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	out := string(data)

	if !strings.HasPrefix(out, "# How do goroutines work?") {
		t.Errorf("Expected title heading, got %q", out[:40])
	}
	if !strings.Contains(out, "### You") {
		t.Error("Expected user role heading")
	}
	if !strings.Contains(out, "### Assistant") {
		t.Error("Expected assistant role heading")
	}
	if !strings.Contains(out, "lightweight threads") {
		t.Error("Expected assistant content in transcript")
	}
	if !strings.Contains(out, "**Messages**: 2") {
		t.Error("Expected metadata message count")
	}
}

func TestMarkdownExportSkipsUnsettledMessages(t *testing.T) {
	sess := sampleSession()
	live := model.NewAssistantPlaceholder()
	live.Content = "partial answer that is still arriv"
	live.Status = model.StatusStreaming
	sess.Messages = append(sess.Messages, live)

	data, err := NewMarkdownExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.Contains(string(data), "still arriv") {
		t.Error("Streaming message should not appear in export")
	}
}

func TestMarkdownExportAnnotatesCancelled(t *testing.T) {
	sess := sampleSession()
	stopped := model.NewAssistantPlaceholder()
	stopped.Content = "I was about to say"
	stopped.Status = model.StatusCancelled
	sess.Messages = append(sess.Messages, stopped)

	data, err := NewMarkdownExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(string(data), "stopped before completion") {
		t.Error("Expected cancellation annotation")
	}
}

func TestMarkdownExportEmptySession(t *testing.T) {
	sess := model.NewSession()

	if _, err := NewMarkdownExporter(nil).Export(sess); err != ErrNoContent {
		t.Errorf("Expected ErrNoContent, got %v", err)
	}
}

func TestJSONExport(t *testing.T) {
	sess := sampleSession()

	data, err := NewJSONExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Status  string `json:"status"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Export produced invalid JSON: %v", err)
	}

	if doc.ID != sess.ID {
		t.Errorf("Expected session ID %q, got %q", sess.ID, doc.ID)
	}
	if len(doc.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(doc.Messages))
	}
	if doc.Messages[0].Role != "user" || doc.Messages[1].Role != "assistant" {
		t.Errorf("Unexpected roles: %s, %s", doc.Messages[0].Role, doc.Messages[1].Role)
	}
	if doc.Messages[1].Status != "complete" {
		t.Errorf("Expected complete status, got %s", doc.Messages[1].Status)
	}
}

func TestWriteFile(t *testing.T) {
	sess := sampleSession()
	dir := t.TempDir()

	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := WriteFile(sess, NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("Expected file under %q, got %q", dir, path)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "how-do-goroutines-work-") {
		t.Errorf("Unexpected filename %q", name)
	}
	if !strings.HasSuffix(name, ".md") {
		t.Errorf("Expected .md extension, got %q", name)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected exported file to exist: %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"How do goroutines work?", "how-do-goroutines-work"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"???", ""},
		{"Mixed CASE Title 42", "mixed-case-title-42"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
