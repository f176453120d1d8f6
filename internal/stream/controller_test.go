// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/driftlabs/drift-tui/internal/api"
	"github.com/driftlabs/drift-tui/internal/model"
	"github.com/driftlabs/drift-tui/internal/store"
)

// fakeStreamer scripts ChatStream: it delivers deltas, then either blocks
// until the context is cancelled (block=true) or returns err.
type fakeStreamer struct {
	deltas []api.Delta
	err    error
	block  bool

	mu      sync.Mutex
	started chan struct{}
	calls   int
}

func newFakeStreamer(deltas []api.Delta) *fakeStreamer {
	return &fakeStreamer{deltas: deltas, started: make(chan struct{}, 8)}
}

func (f *fakeStreamer) ChatStream(ctx context.Context, messages []api.ChatMessage, callback api.StreamCallback) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	for _, d := range f.deltas {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		callback(d)
	}
	f.started <- struct{}{}

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

// collector gathers notify updates for assertions.
type collector struct {
	mu      sync.Mutex
	updates []Update
	done    chan Update
}

func newCollector() *collector {
	return &collector{done: make(chan Update, 8)}
}

func (c *collector) notify(up Update) {
	c.mu.Lock()
	c.updates = append(c.updates, up)
	c.mu.Unlock()
	if up.Phase == PhaseCompleted || up.Phase == PhaseCancelled || up.Phase == PhaseErrored {
		c.done <- up
	}
}

func (c *collector) waitTerminal(t *testing.T) Update {
	t.Helper()
	select {
	case up := <-c.done:
		return up
	case <-time.After(2 * time.Second):
		t.Fatal("stream never reached a terminal phase")
		return Update{}
	}
}

func newSessionWithPrompt(t *testing.T, st *store.Store) string {
	t.Helper()
	sess := st.Create()
	if _, err := st.AppendUserMessage(sess.ID, "hello"); err != nil {
		t.Fatal(err)
	}
	return sess.ID
}

func TestStartStreamsToCompletion(t *testing.T) {
	st := store.New()
	fake := newFakeStreamer([]api.Delta{{Content: "Hel"}, {Content: "lo!"}})
	col := newCollector()
	ctrl := New(fake, st, col.notify)
	st.SetCanceler(ctrl)

	sid := newSessionWithPrompt(t, st)
	mid, err := ctrl.Start(sid)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	up := col.waitTerminal(t)
	if up.Phase != PhaseCompleted {
		t.Fatalf("terminal phase = %s, want completed", up.Phase)
	}

	sess, _ := st.Get(sid)
	msg := sess.MessageByID(mid)
	if msg.Content != "Hello!" {
		t.Errorf("content = %q, want chunks in arrival order", msg.Content)
	}
	if msg.Status != model.StatusComplete {
		t.Errorf("status = %s, want complete", msg.Status)
	}
	if ctrl.IsStreaming(sid) {
		t.Error("handle not released after completion")
	}
}

func TestStartRejectsConcurrentStreamOnSameSession(t *testing.T) {
	st := store.New()
	fake := newFakeStreamer([]api.Delta{{Content: "partial"}})
	fake.block = true
	col := newCollector()
	ctrl := New(fake, st, col.notify)

	sid := newSessionWithPrompt(t, st)
	if _, err := ctrl.Start(sid); err != nil {
		t.Fatal(err)
	}
	<-fake.started

	if _, err := ctrl.Start(sid); !errors.Is(err, ErrAlreadyStreaming) {
		t.Errorf("second Start = %v, want ErrAlreadyStreaming", err)
	}

	ctrl.Stop(sid)
	col.waitTerminal(t)
}

func TestStopCancelsAndPreservesPartial(t *testing.T) {
	st := store.New()
	fake := newFakeStreamer([]api.Delta{{Content: "partial "}, {Content: "answer"}})
	fake.block = true
	col := newCollector()
	ctrl := New(fake, st, col.notify)

	sid := newSessionWithPrompt(t, st)
	mid, err := ctrl.Start(sid)
	if err != nil {
		t.Fatal(err)
	}
	<-fake.started

	ctrl.Stop(sid)

	// Terminal state is visible as soon as Stop returns.
	sess, _ := st.Get(sid)
	msg := sess.MessageByID(mid)
	if msg.Status != model.StatusCancelled {
		t.Fatalf("status after Stop = %s, want cancelled", msg.Status)
	}
	if msg.Content != "partial answer" {
		t.Errorf("content = %q, partial output should be kept", msg.Content)
	}
	if ctrl.IsStreaming(sid) {
		t.Error("handle not released by Stop")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	st := store.New()
	fake := newFakeStreamer(nil)
	fake.block = true
	ctrl := New(fake, st, nil)

	sid := newSessionWithPrompt(t, st)

	// Stop with no live stream is a no-op.
	ctrl.Stop(sid)
	ctrl.Stop("no-such-session")

	if _, err := ctrl.Start(sid); err != nil {
		t.Fatal(err)
	}
	<-fake.started

	ctrl.Stop(sid)
	ctrl.Stop(sid)

	sess, _ := st.Get(sid)
	last := sess.LastMessage()
	if last.Status != model.StatusCancelled {
		t.Errorf("status = %s, want cancelled", last.Status)
	}
}

func TestStreamErrorPreservesPartialContent(t *testing.T) {
	st := store.New()
	streamErr := &api.StreamError{Partial: "the answer is", Err: errors.New("connection reset")}
	fake := newFakeStreamer([]api.Delta{{Content: "the answer is"}})
	fake.err = streamErr
	col := newCollector()
	ctrl := New(fake, st, col.notify)

	sid := newSessionWithPrompt(t, st)
	mid, err := ctrl.Start(sid)
	if err != nil {
		t.Fatal(err)
	}

	up := col.waitTerminal(t)
	if up.Phase != PhaseErrored {
		t.Fatalf("terminal phase = %s, want errored", up.Phase)
	}
	if up.Err == nil {
		t.Error("errored update should carry the cause")
	}

	sess, _ := st.Get(sid)
	msg := sess.MessageByID(mid)
	if msg.Status != model.StatusError {
		t.Errorf("status = %s, want error", msg.Status)
	}
	if msg.Content != "the answer is" {
		t.Errorf("content = %q, partial output should be kept", msg.Content)
	}

	// No automatic retry: exactly one request was made.
	fake.mu.Lock()
	calls := fake.calls
	fake.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 request, got %d", calls)
	}
}

func TestConcurrentStreamsAcrossSessions(t *testing.T) {
	st := store.New()
	fake := newFakeStreamer([]api.Delta{{Content: "ok"}})
	fake.block = true
	ctrl := New(fake, st, nil)

	a := newSessionWithPrompt(t, st)
	b := newSessionWithPrompt(t, st)

	if _, err := ctrl.Start(a); err != nil {
		t.Fatal(err)
	}
	if _, err := ctrl.Start(b); err != nil {
		t.Fatalf("streams in different sessions should run concurrently: %v", err)
	}
	<-fake.started
	<-fake.started

	if !ctrl.IsStreaming(a) || !ctrl.IsStreaming(b) {
		t.Error("both sessions should be streaming")
	}

	ctrl.StopAll()
	if ctrl.IsStreaming(a) || ctrl.IsStreaming(b) {
		t.Error("StopAll left a live handle")
	}
}

func TestDeleteSessionStopsItsStream(t *testing.T) {
	st := store.New()
	fake := newFakeStreamer([]api.Delta{{Content: "partial"}})
	fake.block = true
	ctrl := New(fake, st, nil)
	st.SetCanceler(ctrl)

	sid := newSessionWithPrompt(t, st)
	if _, err := ctrl.Start(sid); err != nil {
		t.Fatal(err)
	}
	<-fake.started

	if err := st.Delete(sid); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ctrl.IsStreaming(sid) {
		t.Error("delete should stop the session's stream")
	}
	if _, err := st.Get(sid); !errors.Is(err, store.ErrSessionNotFound) {
		t.Error("session should be gone")
	}
}

func TestStartRequiresHistory(t *testing.T) {
	st := store.New()
	ctrl := New(newFakeStreamer(nil), st, nil)

	sess := st.Create()
	if _, err := ctrl.Start(sess.ID); !errors.Is(err, ErrEmptyHistory) {
		t.Errorf("Start on empty session = %v, want ErrEmptyHistory", err)
	}
	if _, err := ctrl.Start("missing"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("Start on missing session = %v, want ErrSessionNotFound", err)
	}
}

func TestPhaseReporting(t *testing.T) {
	st := store.New()
	fake := newFakeStreamer([]api.Delta{{Content: "x"}})
	fake.block = true
	ctrl := New(fake, st, nil)

	sid := newSessionWithPrompt(t, st)
	if got := ctrl.Phase(sid); got != PhaseIdle {
		t.Errorf("phase before start = %s, want idle", got)
	}

	if _, err := ctrl.Start(sid); err != nil {
		t.Fatal(err)
	}
	<-fake.started

	if got := ctrl.Phase(sid); got != PhaseStreaming {
		t.Errorf("phase after first chunk = %s, want streaming", got)
	}
	if _, ok := ctrl.StartedAt(sid); !ok {
		t.Error("StartedAt should report a live stream")
	}

	ctrl.Stop(sid)
	if got := ctrl.Phase(sid); got != PhaseIdle {
		t.Errorf("phase after stop = %s, want idle", got)
	}
}
