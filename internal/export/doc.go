// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders chat sessions into shareable files.
//
// Two formats are supported: Markdown for human-readable transcripts
// and JSON for machine consumption. Only settled message content is
// exported; pending and streaming messages are skipped so an export
// taken mid-stream never captures a half-written response.
package export
