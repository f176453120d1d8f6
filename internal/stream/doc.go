// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream coordinates live assistant responses.
//
// A Controller owns at most one active stream per session. Starting a
// stream appends an assistant placeholder to the session, runs the API
// request on a goroutine, and applies each delta to the store in arrival
// order. Stopping cancels the request context and marks the message
// cancelled synchronously, so callers observe the terminal state as soon
// as Stop returns. A stopped or failed stream is never retried
// automatically; retrying is a fresh Start with a new message.
package stream
