// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage archives chat sessions to a local SQLite database.
//
// The archive is write-behind history for the in-memory session store:
// sessions are saved after they settle and reloaded on demand across
// restarts. The live store stays the source of truth while drift runs;
// nothing here participates in streaming.
//
// # Usage
//
//	ar, err := storage.Open(path)
//	err = ar.Save(session)
//	metas, err := ar.List()
//	sess, err := ar.Load(metas[0].ID)
//	results, err := ar.Search("tides")
package storage
