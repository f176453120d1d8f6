// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// =============================================================================
// REPORTER
// =============================================================================

// Reporter ships sanitized events to the monitoring sink. The sink URL
// is injected once at construction and never re-resolved. A Reporter
// with an empty URL is disabled and drops events silently, so callers
// never need a nil check.
type Reporter struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	crumbs []Breadcrumb
}

// maxBreadcrumbs bounds the trail attached to each error event.
const maxBreadcrumbs = 20

// NewReporter creates a Reporter for the given sink URL. An empty URL
// disables reporting.
func NewReporter(sinkURL string) *Reporter {
	return &Reporter{
		url:    sinkURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether events will actually be transmitted.
func (r *Reporter) Enabled() bool {
	return r.url != ""
}

// AddBreadcrumb records a trail step attached to subsequent error
// events. Older crumbs are evicted beyond the cap. The crumb is
// sanitized at capture so raw content never sits in memory waiting for
// an error.
func (r *Reporter) AddBreadcrumb(bc Breadcrumb) {
	if bc.Timestamp.IsZero() {
		bc.Timestamp = time.Now()
	}
	clean := Sanitize(Event{Breadcrumbs: []Breadcrumb{bc}}).Breadcrumbs[0]

	r.mu.Lock()
	r.crumbs = append(r.crumbs, clean)
	if len(r.crumbs) > maxBreadcrumbs {
		r.crumbs = r.crumbs[len(r.crumbs)-maxBreadcrumbs:]
	}
	r.mu.Unlock()
}

// CaptureError builds an error event from a classified failure and
// transmits it with the current breadcrumb trail.
func (r *Reporter) CaptureError(ctx context.Context, errorType string, err error, fields map[string]any) error {
	ev := Event{
		Kind:      KindError,
		ErrorType: errorType,
		Fields:    fields,
		Timestamp: time.Now(),
	}
	if err != nil {
		ev.Message = err.Error()
	}

	r.mu.Lock()
	ev.Breadcrumbs = append([]Breadcrumb(nil), r.crumbs...)
	r.mu.Unlock()

	return r.Report(ctx, ev)
}

// Report sanitizes the event and POSTs it to the sink. This is the only
// path out of the process; raw events never leave it.
func (r *Reporter) Report(ctx context.Context, ev Event) error {
	if !r.Enabled() {
		return nil
	}

	clean := Sanitize(ev)
	payload, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("encoding telemetry event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building telemetry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telemetry event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telemetry sink returned %d", resp.StatusCode)
	}
	return nil
}
