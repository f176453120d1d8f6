// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftlabs/drift-tui/internal/model"
	"github.com/driftlabs/drift-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// ErrNoContent is returned when a session has no exportable messages.
var ErrNoContent = errors.New("session has no settled messages")

// Exporter renders a session into one output format.
type Exporter interface {
	// Export renders the session. Only settled messages appear in the
	// output.
	Export(sess *model.Session) ([]byte, error)

	// FileExtension returns the extension for the format, dot included.
	FileExtension() string
}

// Options configures export output.
type Options struct {
	// OutputDir receives exported files. Empty means ~/.drift/exports.
	OutputDir string

	// IncludeMetadata adds a header with session title, timestamps and
	// message count.
	IncludeMetadata bool

	// IncludeTimestamps adds a per-message timestamp.
	IncludeTimestamps bool
}

// DefaultOptions returns the standard export configuration.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// WriteFile renders the session with the given exporter and writes it
// under opts.OutputDir, returning the path written.
func WriteFile(sess *model.Session, e Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	data, err := e.Export(sess)
	if err != nil {
		return "", err
	}

	dir := opts.OutputDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".drift", "exports")
	}

	path := filepath.Join(dir, exportFilename(sess, e.FileExtension()))
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// exportFilename builds a filesystem-safe name from the session title
// and a timestamp, e.g. "how-do-goroutines-work-20250830-142301.md".
func exportFilename(sess *model.Session, ext string) string {
	slug := slugify(sess.Title)
	if slug == "" {
		slug = "conversation"
	}
	stamp := time.Now().Format("20060102-150405")
	return slug + "-" + stamp + ext
}

// slugify lowercases the title and collapses everything that is not a
// letter or digit into single hyphens, capped at 48 bytes.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= 48 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

// exportable filters the session down to settled messages.
func exportable(sess *model.Session) []*model.Message {
	out := make([]*model.Message, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		if msg.Status.Terminal() && msg.Content != "" {
			out = append(out, msg)
		}
	}
	return out
}
