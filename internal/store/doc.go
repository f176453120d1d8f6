// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory session collection observed by both the
// stream controller and the UI.
//
// The store is the single owner of session and message state. The stream
// controller mutates assistant content exclusively through
// AppendAssistantContent and SetMessageStatus; the UI reads through Get and
// List and reacts to change events via Subscribe. Deleting a session with a
// live stream cancels that stream before removal, and a chunk arriving after
// deletion is dropped, never applied.
package store
