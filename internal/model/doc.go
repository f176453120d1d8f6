// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// A Session is a named conversation holding an ordered sequence of Messages.
// Each Message carries a lifecycle Status that moves monotonically from
// pending through streaming into one of the terminal states (complete,
// cancelled, error). The status tag is the single source of truth for
// optimistic UI reconciliation; there are no separate optimistic and
// confirmed collections.
package model
