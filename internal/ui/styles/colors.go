// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLOR PALETTE
// =============================================================================

// Core palette. Adaptive colors pick the variant for the terminal
// background, so "auto" works without a separate light theme table.
var (
	Accent = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#8B7FFF"}
	Cyan   = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	Green  = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	Amber  = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	Rose   = lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#FB7185"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}

	Surface = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2430"}
	Overlay = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#3B4252"}
)

// =============================================================================
// STATUS HELPERS
// =============================================================================

var (
	successStyle = lipgloss.NewStyle().Foreground(Green)
	errorStyle   = lipgloss.NewStyle().Foreground(Rose)
	warnStyle    = lipgloss.NewStyle().Foreground(Amber)
	infoStyle    = lipgloss.NewStyle().Foreground(Cyan)
)

// RenderSuccess renders a success line with its shape indicator. Shapes
// accompany color so states read under monochrome terminals too.
func RenderSuccess(message string) string {
	return successStyle.Render("✓ " + message)
}

// RenderError renders an error line.
func RenderError(message string) string {
	return errorStyle.Render("✗ " + message)
}

// RenderWarning renders a warning line.
func RenderWarning(message string) string {
	return warnStyle.Render("⚠ " + message)
}

// RenderInfo renders an informational line.
func RenderInfo(message string) string {
	return infoStyle.Render("ℹ " + message)
}
