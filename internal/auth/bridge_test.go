// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCookies struct {
	cookies []*http.Cookie
	err     error
}

func (f *fakeCookies) SetCookie(c *http.Cookie) error {
	if f.err != nil {
		return f.err
	}
	f.cookies = append(f.cookies, c)
	return nil
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeNavigator struct {
	routes []string
}

func (f *fakeNavigator) Navigate(route string) {
	f.routes = append(f.routes, route)
}

func TestHandleCallbackSuccess(t *testing.T) {
	cookies := &fakeCookies{}
	refresh := &fakeRefresher{}
	nav := &fakeNavigator{}
	b := NewBridge(cookies, refresh, nav)

	err := b.HandleCallback(context.Background(), Params{CSRFToken: "tok-abc123"})
	require.NoError(t, err)

	require.Len(t, cookies.cookies, 1, "cookie must be written exactly once")
	c := cookies.cookies[0]
	require.Equal(t, "csrf_token", c.Name)
	require.Equal(t, "tok-abc123", c.Value)
	require.Equal(t, "/", c.Path)
	require.Equal(t, 604800, c.MaxAge)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)

	require.Equal(t, 1, refresh.calls, "identity must be refreshed exactly once")
	require.Equal(t, []string{RouteHome}, nav.routes)
}

func TestHandleCallbackProviderError(t *testing.T) {
	cookies := &fakeCookies{}
	refresh := &fakeRefresher{}
	nav := &fakeNavigator{}
	b := NewBridge(cookies, refresh, nav)

	err := b.HandleCallback(context.Background(), Params{Error: "access_denied", CSRFToken: "tok-should-be-ignored"})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "access_denied", perr.Reason)

	require.Zero(t, refresh.calls, "identity must never be refreshed when the provider reported an error")
	require.Empty(t, cookies.cookies, "no cookie may be written when the provider reported an error")

	require.Len(t, nav.routes, 1)
	require.True(t, strings.HasPrefix(nav.routes[0], RouteLogin), "must land on the login surface, got %s", nav.routes[0])
	u, err := url.Parse(nav.routes[0])
	require.NoError(t, err)
	require.Equal(t, "access_denied", u.Query().Get("error"), "login route should carry the provider error")
}

func TestHandleCallbackMissingToken(t *testing.T) {
	refresh := &fakeRefresher{}
	nav := &fakeNavigator{}
	b := NewBridge(&fakeCookies{}, refresh, nav)

	err := b.HandleCallback(context.Background(), Params{})
	require.ErrorIs(t, err, ErrMissingToken)
	require.Zero(t, refresh.calls, "identity must not be refreshed without a token")
}

func TestHandleCallbackRefreshFailure(t *testing.T) {
	cookies := &fakeCookies{}
	refresh := &fakeRefresher{err: errors.New("identity service unavailable")}
	nav := &fakeNavigator{}
	b := NewBridge(cookies, refresh, nav)

	err := b.HandleCallback(context.Background(), Params{CSRFToken: "tok"})
	require.Error(t, err, "refresh failure must propagate")
	require.Len(t, cookies.cookies, 1, "cookie is written exactly once even on refresh failure")
	require.Empty(t, nav.routes, "no navigation on refresh failure")
}

func TestParamsFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("error", "server_error")
	q.Set("csrf_token", "abc~123")

	p := ParamsFromQuery(q)
	require.Equal(t, "server_error", p.Error)
	require.Equal(t, "abc~123", p.CSRFToken)
}

func TestCallbackHandlerSetsCookieAndRedirects(t *testing.T) {
	refresh := &fakeRefresher{}
	cs := &CallbackServer{refresh: refresh, Result: make(chan error, 1)}

	req := httptest.NewRequest(http.MethodGet, CallbackPath+"?csrf_token=tok-xyz", nil)
	rec := httptest.NewRecorder()
	cs.handleCallback(rec, req)

	res := rec.Result()
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, RouteHome, res.Header.Get("Location"))

	var found *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == CookieName {
			found = c
		}
	}
	require.NotNil(t, found, "csrf_token cookie missing from response")
	require.Equal(t, "tok-xyz", found.Value)
	require.Equal(t, "/", found.Path)
	require.Equal(t, 604800, found.MaxAge)

	require.NoError(t, <-cs.Result)
}

func TestCallbackHandlerProviderError(t *testing.T) {
	refresh := &fakeRefresher{}
	cs := &CallbackServer{refresh: refresh, Result: make(chan error, 1)}

	req := httptest.NewRequest(http.MethodGet, CallbackPath+"?error=access_denied", nil)
	rec := httptest.NewRecorder()
	cs.handleCallback(rec, req)

	res := rec.Result()
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.True(t, strings.HasPrefix(res.Header.Get("Location"), RouteLogin), "must redirect to the login surface")
	require.Zero(t, refresh.calls, "identity refreshed despite provider error")

	var perr *ProviderError
	require.ErrorAs(t, <-cs.Result, &perr)
}
