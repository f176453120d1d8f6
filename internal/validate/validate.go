// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validate gates outgoing message text before it reaches the stream
// controller. Validation is pure: no I/O, deterministic, and idempotent
// (validating already-validated text yields the same result).
package validate

import "strings"

// MaxMessageBytes is the ceiling on outgoing message size.
const MaxMessageBytes = 32 * 1024

// Reason explains why validation rejected the input.
type Reason int

const (
	// ReasonNone means the input passed validation.
	ReasonNone Reason = iota

	// ReasonEmpty means the input was empty or whitespace-only.
	ReasonEmpty

	// ReasonTooLarge means the input exceeded MaxMessageBytes.
	ReasonTooLarge
)

// String returns a user-facing description of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonEmpty:
		return "message is empty"
	case ReasonTooLarge:
		return "message exceeds the 32 KiB limit"
	default:
		return ""
	}
}

// Result is the outcome of validating one message. It is a value type with
// no identity; Content is the normalized (trimmed) text and is only set when
// Valid is true.
type Result struct {
	Valid   bool
	Reason  Reason
	Content string
}

// Validate trims surrounding whitespace and checks the result against the
// size ceiling. Whitespace-only input fails with ReasonEmpty; input whose
// trimmed byte length exceeds MaxMessageBytes fails with ReasonTooLarge.
func Validate(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{Reason: ReasonEmpty}
	}
	if len(trimmed) > MaxMessageBytes {
		return Result{Reason: ReasonTooLarge}
	}
	return Result{Valid: true, Content: trimmed}
}
