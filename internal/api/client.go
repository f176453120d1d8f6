// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeRateLimited
	ErrTypeInvalidResponse
)

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel client errors by type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinel errors for easy checking.
var (
	ErrTimeout      = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized, Message: "backend rejected credentials"}
	ErrRateLimited  = &ClientError{Type: ErrTypeRateLimited, Message: "rate limited by backend"}
)

// StreamError is a mid-stream transport failure. Partial preserves the
// content received before the failure so the caller never loses delivered
// chunks.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	return "stream error: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration for the backend client. Values are
// resolved once at process start; the client never re-reads them
// mid-operation.
type ClientConfig struct {
	// BaseURL is the backend API base URL.
	BaseURL string

	// APIKey is sent as a bearer token on every request.
	APIKey string

	// Model names the assistant model to request.
	Model string

	// Timeout for non-streaming requests (default: 30s).
	Timeout time.Duration

	// RequestsPerMinute caps outbound request rate (default: 60).
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "https://api.drift.chat/v1",
		Timeout:           30 * time.Second,
		RequestsPerMinute: 60,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Drift backend.
// It is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	// streamClient has no timeout; streaming lifetimes are bounded by the
	// request context instead.
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a backend client from config, filling in defaults for
// zero values.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.drift.chat/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 60
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute),
	}
}

// IsConfigured reports whether the client has the credentials it needs.
func (c *Client) IsConfigured() bool {
	return c.config.BaseURL != "" && c.config.APIKey != ""
}

// Config returns the client configuration.
func (c *Client) Config() *ClientConfig {
	return c.config
}

// setHeaders applies the standard request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// wait blocks on the rate limiter, honoring context cancellation.
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &ClientError{Type: ErrTypeRateLimited, Message: "rate limiter rejected request", Cause: err}
	}
	return nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// errorFromStatus maps an HTTP status to a typed client error.
func errorFromStatus(status int, body string) error {
	msg := "backend request failed: " + http.StatusText(status)
	if body != "" {
		msg = body
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ClientError{Type: ErrTypeUnauthorized, Status: status, Message: msg}
	case status == http.StatusTooManyRequests:
		return &ClientError{Type: ErrTypeRateLimited, Status: status, Message: msg}
	default:
		return &ClientError{Type: ErrTypeInvalidResponse, Status: status, Message: msg}
	}
}

// IsUnauthorized checks if an error indicates rejected credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTimeout checks if an error is a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
