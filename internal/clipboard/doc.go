// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package clipboard manages per-message copy actions with a transient
// acknowledgment. Copying a message flips its acknowledgment on and arms
// a timer that flips it back off after a fixed interval, so the UI can
// show "Copied" briefly without tracking timers itself. At most one
// message is acknowledged at a time.
package clipboard
