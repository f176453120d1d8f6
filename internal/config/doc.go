// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists drift configuration.
//
// Configuration lives at ~/.drift/config.toml, with built-in defaults
// for anything the file omits and DRIFT_* environment variables applied
// last. The backend base URL and the telemetry sink are resolved exactly
// once at process start; nothing re-reads them mid-session.
package config
