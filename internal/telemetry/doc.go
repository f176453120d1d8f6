// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry reports failures to a monitoring sink without ever
// shipping user content.
//
// Every event passes through Sanitize before transmission: content-bearing
// fields are replaced with a redaction marker, credential headers are
// removed, and anything that cannot be inspected safely is dropped rather
// than sent as-is. Sanitize is idempotent, so double-sanitizing an event
// on a retry path changes nothing. Reporter is the only component that
// talks to the sink and it accepts events exclusively through Sanitize.
package telemetry
