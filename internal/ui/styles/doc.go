// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the drift TUI.
//
// A Theme bundles every lipgloss style the chat view needs, built once at
// startup from the configured theme name and the terminal's detected
// color profile. Views never construct styles inline; they pull them from
// the Theme so the whole surface restyles consistently.
package styles
