// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// sseHandler writes the given frames as SSE data events.
func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("unexpected Accept header %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(&ClientConfig{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		Model:             "drift-1",
		RequestsPerMinute: 6000,
	})
}

func TestChatStreamDeliversDeltasInOrder(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		`{"content":"Hi"}`,
		`{"content":" there"}`,
		`{"content":"!"}`,
		`[DONE]`,
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	var got []string
	err := client.ChatStream(context.Background(), []ChatMessage{{Role: "user", Content: "Hello"}}, func(d Delta) {
		got = append(got, d.Content)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Hi", " there", "!"}
	if len(got) != len(want) {
		t.Fatalf("got %d deltas, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChatStreamDoneFlagTerminates(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		`{"content":"partial"}`,
		`{"content":"","done":true,"finish_reason":"stop"}`,
		`{"content":"should never arrive"}`,
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	var count int
	err := client.ChatStream(context.Background(), nil, func(d Delta) { count++ })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected delivery to stop at the completion marker, got %d deltas", count)
	}
}

func TestChatStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"content\":\"Hi\"}\n\n")
		flusher.Flush()
		<-release // hold the stream open until the test ends
	}))
	defer srv.Close()
	defer close(release)

	client := newTestClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.ChatStream(ctx, nil, func(d Delta) {
			if d.Content == "Hi" {
				cancel()
			}
		})
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
}

func TestChatStreamUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.ChatStream(context.Background(), nil, func(Delta) {})

	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized error, got %v", err)
	}
}

func TestChatStreamTruncatedStreamPreservesPartial(t *testing.T) {
	// Stream ends without [DONE]: the error must carry the delivered prefix.
	srv := httptest.NewServer(sseHandler(t, []string{
		`{"content":"kept "}`,
		`{"content":"text"}`,
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.ChatStream(context.Background(), nil, func(Delta) {})

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected *StreamError, got %v", err)
	}
	if streamErr.Partial != "kept text" {
		t.Errorf("partial = %q, want %q", streamErr.Partial, "kept text")
	}
}

func TestChatStreamErrorFrame(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		`{"content":"before failure"}`,
		`{"error":{"message":"model overloaded"}}`,
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.ChatStream(context.Background(), nil, func(Delta) {})

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected *StreamError, got %v", err)
	}
	if streamErr.Partial != "before failure" {
		t.Errorf("partial = %q", streamErr.Partial)
	}
}

func TestChatStreamSkipsMalformedFrames(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{
		`{"content":"ok"}`,
		`not json at all`,
		`{"content":" still ok"}`,
		`[DONE]`,
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	got, err := client.ChatStreamAccumulate(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok still ok" {
		t.Errorf("accumulated = %q", got)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(nil)
	if client.Config().Timeout != 30*time.Second {
		t.Errorf("unexpected default timeout %v", client.Config().Timeout)
	}
	if client.IsConfigured() {
		t.Error("client without API key should not report configured")
	}
}

func TestErrorFromStatus(t *testing.T) {
	if err := errorFromStatus(http.StatusUnauthorized, ""); !errors.Is(err, ErrUnauthorized) {
		t.Error("401 should map to ErrUnauthorized")
	}
	if err := errorFromStatus(http.StatusTooManyRequests, ""); !errors.Is(err, ErrRateLimited) {
		t.Error("429 should map to ErrRateLimited")
	}
	if err := errorFromStatus(http.StatusInternalServerError, "boom"); errors.Is(err, ErrUnauthorized) {
		t.Error("500 should not map to ErrUnauthorized")
	}
}
