// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth finishes the browser-based login handshake.
//
// The provider redirects back to a loopback callback URL carrying either
// an error or a CSRF token. Bridge consumes those parameters: an error
// routes back to the login surface and never touches identity state; a
// token is persisted as a week-long lax-same-site cookie, the session
// identity is refreshed once, and the user lands on the main surface.
// CallbackServer hosts the redirect endpoint on a local listener for the
// duration of one handshake.
package auth
