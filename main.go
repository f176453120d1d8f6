// drift - a terminal interface for streaming chat sessions.
//
// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/driftlabs/drift-tui/internal/api"
	"github.com/driftlabs/drift-tui/internal/clipboard"
	"github.com/driftlabs/drift-tui/internal/config"
	"github.com/driftlabs/drift-tui/internal/model"
	"github.com/driftlabs/drift-tui/internal/storage"
	"github.com/driftlabs/drift-tui/internal/store"
	"github.com/driftlabs/drift-tui/internal/stream"
	"github.com/driftlabs/drift-tui/internal/telemetry"
	"github.com/driftlabs/drift-tui/internal/ui/chat"
	"github.com/driftlabs/drift-tui/internal/ui/styles"
	"github.com/driftlabs/drift-tui/internal/validate"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async message delivery. Goroutines owned
// by the stream controller, the store, and the clipboard timer all feed
// the UI through this.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

// send delivers a message to the running program, dropping it when the
// program has not started yet or has already exited.
func send(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("drift %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		case "ask":
			os.Exit(runAsk(os.Args[2:]))
		case "history":
			os.Exit(runHistory(os.Args[2:]))
		}
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "drift: stdout is not a terminal")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "drift: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	reporter := telemetry.NewReporter(cfg.TelemetrySink())
	reporter.AddBreadcrumb(telemetry.Breadcrumb{
		Category:  "lifecycle",
		Message:   "startup",
		Timestamp: time.Now(),
	})

	if err := run(cfg, reporter); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = reporter.CaptureError(ctx, "run_failed", err, nil)
		cancel()
		fmt.Fprintf(os.Stderr, "drift: %v\n", err)
		os.Exit(1)
	}
}

// initDebugLog points the standard logger at ~/.drift/debug.log. A TUI
// owns stdout, so log output must go elsewhere.
func initDebugLog() (func(), error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	return func() { f.Close() }, nil
}

// run wires the store, stream controller, clipboard, archive, and UI
// together and blocks until the program exits.
func run(cfg *config.Config, reporter *telemetry.Reporter) error {
	if closeLog, err := initDebugLog(); err == nil {
		defer closeLog()
		log.Printf("drift %s starting", Version)
	} else {
		log.SetOutput(io.Discard)
	}

	theme := styles.NewTheme(cfg.UI.Theme)

	client := api.NewClient(&api.ClientConfig{
		BaseURL:           cfg.Backend.BaseURL,
		APIKey:            cfg.Backend.APIKey,
		Model:             cfg.Backend.Model,
		Timeout:           time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		RequestsPerMinute: cfg.Backend.RequestsPerMinute,
	})

	st := store.New()

	ctrl := stream.New(client, st, func(u stream.Update) {
		send(chat.StreamUpdateMsg{Update: u})
	})
	st.SetCanceler(ctrl)
	defer ctrl.StopAll()

	clip := clipboard.New()
	clip.SetOnChange(func() {
		send(chat.CopyAckChangedMsg{})
	})

	// Session archive is optional; the app runs in-memory without it.
	var archive *storage.Archive
	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err == nil {
			archive, err = storage.Open(path)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: session history unavailable: %v\n", err)
			reporter.AddBreadcrumb(telemetry.Breadcrumb{
				Category:  "storage",
				Message:   "archive open failed",
				Timestamp: time.Now(),
			})
		}
	}
	if archive != nil {
		defer archive.Close()
	}

	if archive != nil {
		seedFromArchive(st, archive)
	}

	subID := st.Subscribe(func(ev store.Event) {
		if archive != nil {
			persistEvent(archive, st, ev)
		}
		send(chat.StoreEventMsg{Event: ev})
	})
	defer st.Unsubscribe(subID)

	m := chat.New(chat.Options{
		Store:          st,
		Controller:     ctrl,
		Clipboard:      clip,
		Theme:          theme,
		RenderMarkdown: cfg.UI.RenderMarkdown,
		WordWrap:       80,
		ExportFormat:   cfg.UI.ExportFormat,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.MouseEnabled {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	_, err := p.Run()

	programMu.Lock()
	programRef = nil
	programMu.Unlock()

	return err
}

// seedFromArchive restores archived sessions into the store so past
// conversations are browsable on startup. The archive lists most
// recently updated first, matching the store's recency order. A broken
// archive degrades to an empty history, never a failed start.
func seedFromArchive(st *store.Store, archive *storage.Archive) {
	metas, err := archive.List()
	if err != nil {
		log.Printf("archive: list: %v", err)
		return
	}
	for _, meta := range metas {
		sess, err := archive.Load(meta.ID)
		if err != nil {
			log.Printf("archive: load %s: %v", meta.ID, err)
			continue
		}
		st.Restore(sess)
	}
}

// persistEvent mirrors a store change into the archive. Updates to a
// message that is still streaming are skipped; the settled state is
// written when the stream finishes.
func persistEvent(archive *storage.Archive, st *store.Store, ev store.Event) {
	if ev.Type == store.EventSessionDeleted {
		if err := archive.Delete(ev.SessionID); err != nil && err != storage.ErrNotFound {
			log.Printf("archive: delete %s: %v", ev.SessionID, err)
		}
		return
	}

	sess, err := st.Get(ev.SessionID)
	if err != nil {
		return
	}
	if ev.Type == store.EventMessageUpdated {
		if msg := sess.MessageByID(ev.MessageID); msg != nil && msg.IsStreaming() {
			return
		}
	}
	if err := archive.Save(sess); err != nil {
		log.Printf("archive: save %s: %v", ev.SessionID, err)
	}
}

// runAsk sends a one-shot prompt and prints the complete response.
// Useful for scripting; no terminal required.
func runAsk(args []string) int {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	res := validate.Validate(prompt)
	if !res.Valid {
		fmt.Fprintf(os.Stderr, "drift: %s\n", res.Reason)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "drift: invalid configuration: %v\n", err)
		return 1
	}

	client := api.NewClient(&api.ClientConfig{
		BaseURL:           cfg.Backend.BaseURL,
		APIKey:            cfg.Backend.APIKey,
		Model:             cfg.Backend.Model,
		Timeout:           time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		RequestsPerMinute: cfg.Backend.RequestsPerMinute,
	})

	reply, err := client.ChatStreamAccumulate(context.Background(), []api.ChatMessage{
		{Role: string(model.RoleUser), Content: res.Content},
	})
	if reply != "" {
		fmt.Println(reply)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "drift: %v\n", err)
		return 1
	}
	return 0
}

// runHistory lists archived sessions, optionally filtered by a search
// query over titles and message content.
func runHistory(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "drift: invalid configuration: %v\n", err)
		return 1
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "drift: %v\n", err)
		return 1
	}

	archive, err := storage.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drift: opening history: %v\n", err)
		return 1
	}
	defer archive.Close()

	var metas []model.Meta
	if len(args) > 0 {
		metas, err = archive.Search(strings.Join(args, " "))
	} else {
		metas, err = archive.List()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "drift: %v\n", err)
		return 1
	}

	if len(metas) == 0 {
		fmt.Println("No sessions found")
		return 0
	}
	for _, m := range metas {
		fmt.Printf("%s  %-40s  %3d messages  %s\n",
			m.ID[:8], runewidth.Truncate(m.Title, 40, "…"), m.MessageCount,
			m.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return 0
}

func printUsage() {
	fmt.Println(`drift - streaming chat in your terminal

Usage:
  drift                   Start the chat interface
  drift ask <prompt>      Send one prompt and print the response
  drift history [query]   List or search archived sessions
  drift version           Print version information
  drift help              Show this help

Configuration lives at ~/.drift/config.toml. Environment variables
(DRIFT_BASE_URL, DRIFT_API_KEY, DRIFT_MODEL, ...) override it.`)
}
