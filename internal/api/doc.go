// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the Drift backend.
//
// The backend answers chat requests with a Server-Sent Events stream of text
// deltas terminated by a completion marker. Delivery order on the wire is
// authoritative: the client applies deltas in arrival order and performs no
// reordering or deduplication of its own. Cancellation is cooperative; the
// request context is checked before every event is delivered, and aborting
// the context closes the client's side of the transport.
package api
