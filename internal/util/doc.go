// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across packages.
//
// Currently this is file plumbing: AtomicWriteFile gives crash-safe
// writes for configuration and other small files that must never be
// observed half-written.
package util
