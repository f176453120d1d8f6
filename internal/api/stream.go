// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxEventSize is the maximum allowed size for a single SSE event (64KB).
const MaxEventSize = 64 * 1024

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is one turn in the request payload.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the streaming chat request body.
type ChatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// Delta is a single streamed event: either a text fragment or the
// completion marker.
type Delta struct {
	Content      string `json:"content"`
	Done         bool   `json:"done"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// apiError is the error frame the backend may emit inside the stream.
type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamCallback is called for each delta received, in arrival order.
type StreamCallback func(delta Delta)

// =============================================================================
// SSE READER
// =============================================================================

// sseReader parses Server-Sent Events from a stream.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// readEvent reads the next event's data payload. Returns io.EOF when the
// stream ends.
func (s *sseReader) readEvent() ([]byte, error) {
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			size += len(data)
			if size > MaxEventSize {
				return nil, fmt.Errorf("event too large: %d bytes", size)
			}
			dataLines = append(dataLines, data)
		}
		// Ignore other fields (event:, id:, retry:, comments).
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream submits the conversation and delivers deltas to the callback
// until the completion marker arrives, the context is cancelled, or the
// transport fails. On mid-stream failure the returned error is a
// *StreamError carrying the partial content already delivered.
func (c *Client) ChatStream(ctx context.Context, messages []ChatMessage, callback StreamCallback) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	reqBody := ChatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   true,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/stream", bytes.NewReader(bodyBytes))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ctx.Err()
		}
		return &ClientError{Type: ErrTypeConnection, Message: "failed to reach backend", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errorFromStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return c.processStream(ctx, resp.Body, callback)
}

// processStream reads SSE events and applies them in arrival order. The
// context is checked before every delivery so no delta is applied after
// cancellation.
func (c *Client) processStream(ctx context.Context, body io.Reader, callback StreamCallback) error {
	reader := newSSEReader(body)
	var delivered strings.Builder

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.readEvent()
		if err != nil {
			if err == io.EOF {
				// Stream ended without a completion marker.
				return &StreamError{
					Partial: delivered.String(),
					Err:     errors.New("stream closed before completion marker"),
				}
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return &StreamError{Partial: delivered.String(), Err: err}
		}

		// Completion marker terminates the stream.
		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		// An error frame mid-stream fails the request but keeps the prefix.
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &StreamError{
				Partial: delivered.String(),
				Err:     &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error.Message},
			}
		}

		var delta Delta
		if err := json.Unmarshal(data, &delta); err != nil {
			// Skip malformed frames rather than aborting the stream.
			continue
		}

		// Re-check cancellation at the delivery boundary.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delivered.WriteString(delta.Content)
		callback(delta)

		if delta.Done {
			return nil
		}
	}
}

// ChatStreamAccumulate streams a chat request and returns the full response
// when it completes. On error the partial content is returned alongside.
func (c *Client) ChatStreamAccumulate(ctx context.Context, messages []ChatMessage) (string, error) {
	var accumulated strings.Builder

	err := c.ChatStream(ctx, messages, func(delta Delta) {
		accumulated.WriteString(delta.Content)
	})

	if err != nil {
		var streamErr *StreamError
		if errors.As(err, &streamErr) && streamErr.Partial != "" {
			return streamErr.Partial, err
		}
		return accumulated.String(), err
	}

	return accumulated.String(), nil
}
