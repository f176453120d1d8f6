// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

const (
	// CookieName is the CSRF cookie set after a successful handshake.
	CookieName = "csrf_token"

	// CookieMaxAge is the cookie lifetime in seconds (7 days).
	CookieMaxAge = 604800

	// RouteLogin is the surface shown when the handshake fails.
	RouteLogin = "/login"

	// RouteHome is the main application surface.
	RouteHome = "/"
)

var (
	// ErrMissingToken is returned when the redirect carried neither an
	// error nor a token.
	ErrMissingToken = errors.New("auth callback carried no csrf token")
)

// ProviderError is the error parameter the provider sent back. It is
// surfaced to the caller, never swallowed.
type ProviderError struct {
	Reason string
}

func (e *ProviderError) Error() string {
	return "auth provider returned an error: " + e.Reason
}

// =============================================================================
// PARAMETERS AND COLLABORATORS
// =============================================================================

// Params are the redirect query parameters. The token is used verbatim.
type Params struct {
	Error     string
	CSRFToken string
}

// ParamsFromQuery extracts callback parameters from a redirect URL query.
func ParamsFromQuery(q url.Values) Params {
	return Params{
		Error:     q.Get("error"),
		CSRFToken: q.Get("csrf_token"),
	}
}

// CookieWriter persists the session cookie. In the HTTP handler this is
// the response writer; tests substitute a recorder.
type CookieWriter interface {
	SetCookie(c *http.Cookie) error
}

// IdentityRefresher reloads the session identity after the cookie is in
// place.
type IdentityRefresher interface {
	Refresh(ctx context.Context) error
}

// Navigator moves the user to an application surface.
type Navigator interface {
	Navigate(route string)
}

// NewCookie builds the CSRF cookie: host-wide path, 7-day lifetime,
// lax same-site so the token rides along on top-level navigations.
func NewCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	}
}

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge applies callback parameters to its collaborators. It holds no
// state of its own; each handshake is a single HandleCallback call.
type Bridge struct {
	cookies CookieWriter
	refresh IdentityRefresher
	nav     Navigator
}

// NewBridge wires the bridge to its collaborators.
func NewBridge(cookies CookieWriter, refresh IdentityRefresher, nav Navigator) *Bridge {
	return &Bridge{cookies: cookies, refresh: refresh, nav: nav}
}

// HandleCallback finishes one handshake.
//
// An error parameter aborts immediately: the user is routed to the login
// surface carrying the error, identity is never refreshed, and the error
// is returned. With a token, the cookie is written exactly once, then
// identity is refreshed and the user lands on the main surface. A failed
// refresh is returned without retrying the cookie write.
func (b *Bridge) HandleCallback(ctx context.Context, p Params) error {
	if p.Error != "" {
		b.nav.Navigate(RouteLogin + "?error=" + url.QueryEscape(p.Error))
		return &ProviderError{Reason: p.Error}
	}

	if p.CSRFToken == "" {
		b.nav.Navigate(RouteLogin)
		return ErrMissingToken
	}

	if err := b.cookies.SetCookie(NewCookie(p.CSRFToken)); err != nil {
		return fmt.Errorf("persisting csrf cookie: %w", err)
	}
	if err := b.refresh.Refresh(ctx); err != nil {
		return fmt.Errorf("refreshing identity: %w", err)
	}

	b.nav.Navigate(RouteHome)
	return nil
}
