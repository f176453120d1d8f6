// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"strings"
	"time"
)

// =============================================================================
// EVENT MODEL
// =============================================================================

// Kind classifies an event for the sink.
type Kind string

const (
	KindError      Kind = "error"
	KindBreadcrumb Kind = "breadcrumb"
)

// RedactionMarker replaces content-bearing values. Matching ranyaa-style
// log redaction keeps sink-side filters simple.
const RedactionMarker = "[REDACTED]"

// Breadcrumb is one step of the trail attached to an error event.
type Breadcrumb struct {
	Category  string         `json:"category"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RequestData describes the HTTP request an error occurred on.
type RequestData struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Event is a structured report bound for the monitoring sink. ErrorType
// is a classification ("NetworkError", "IntegrityError"), never free
// text; Message and field values are treated as content and redacted.
type Event struct {
	Kind        Kind           `json:"kind"`
	ErrorType   string         `json:"error_type,omitempty"`
	Message     string         `json:"message,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Request     *RequestData   `json:"request,omitempty"`
	Breadcrumbs []Breadcrumb   `json:"breadcrumbs,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// =============================================================================
// SANITIZER
// =============================================================================

// contentFields are map keys whose values carry user text. Their values
// are always replaced with RedactionMarker regardless of type.
var contentFields = map[string]bool{
	"content": true,
	"message": true,
	"text":    true,
	"prompt":  true,
	"body":    true,
	"title":   true,
}

// blockedHeaders are credential-bearing headers removed wherever they
// appear. Compared case-insensitively.
var blockedHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"x-csrf-token":  true,
}

// Sanitize returns a copy of the event that is safe to transmit. The
// input is never modified. Applying Sanitize to its own output produces
// an identical event.
func Sanitize(ev Event) Event {
	out := ev
	if out.Message != "" {
		out.Message = RedactionMarker
	}
	out.Fields = sanitizeMap(ev.Fields)

	if ev.Request != nil {
		req := *ev.Request
		req.Headers = sanitizeHeaders(ev.Request.Headers)
		out.Request = &req
	}

	if len(ev.Breadcrumbs) > 0 {
		crumbs := make([]Breadcrumb, len(ev.Breadcrumbs))
		for i, bc := range ev.Breadcrumbs {
			crumbs[i] = bc
			if bc.Message != "" {
				crumbs[i].Message = RedactionMarker
			}
			crumbs[i].Data = sanitizeMap(bc.Data)
		}
		out.Breadcrumbs = crumbs
	}
	return out
}

// sanitizeMap walks one level of fields: content keys are redacted,
// nested structures recurse, and values that cannot be inspected safely
// are dropped entirely.
func sanitizeMap(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, val := range fields {
		lower := strings.ToLower(key)
		if contentFields[lower] {
			out[key] = RedactionMarker
			continue
		}
		if blockedHeaders[lower] {
			continue
		}
		if clean, ok := sanitizeValue(val); ok {
			out[key] = clean
		}
	}
	return out
}

// sanitizeValue returns a transmit-safe version of val. The second
// return is false when the value must be dropped.
func sanitizeValue(val any) (any, bool) {
	switch v := val.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, true
	case time.Time:
		return v, true
	case map[string]any:
		return sanitizeMap(v), true
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			if clean, ok := sanitizeValue(item); ok {
				out = append(out, clean)
			}
		}
		return out, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	default:
		// Unknown type: drop rather than guess at its contents.
		return nil, false
	}
}

// sanitizeHeaders removes credential headers, keeping the rest.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for key, val := range headers {
		if blockedHeaders[strings.ToLower(key)] {
			continue
		}
		out[key] = val
	}
	return out
}
