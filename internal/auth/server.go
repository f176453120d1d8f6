// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"net"
	"net/http"
	"time"
)

// CallbackPath is where the provider redirects after login.
const CallbackPath = "/auth/callback"

// CallbackServer hosts the redirect endpoint on a loopback listener for
// one handshake. The first callback settles Result and the server can be
// shut down.
type CallbackServer struct {
	refresh IdentityRefresher
	srv     *http.Server
	ln      net.Listener

	// Result receives the outcome of the first handled callback.
	Result chan error
}

// NewCallbackServer binds a loopback listener on addr ("127.0.0.1:0"
// picks a free port).
func NewCallbackServer(addr string, refresh IdentityRefresher) (*CallbackServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	cs := &CallbackServer{
		refresh: refresh,
		ln:      ln,
		Result:  make(chan error, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, cs.handleCallback)
	cs.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return cs, nil
}

// URL returns the callback URL to register with the provider.
func (cs *CallbackServer) URL() string {
	return "http://" + cs.ln.Addr().String() + CallbackPath
}

// Serve blocks serving callbacks until Shutdown.
func (cs *CallbackServer) Serve() error {
	err := cs.srv.Serve(cs.ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the listener, waiting for in-flight callbacks.
func (cs *CallbackServer) Shutdown(ctx context.Context) error {
	return cs.srv.Shutdown(ctx)
}

// handleCallback adapts one HTTP redirect to the bridge: the response
// writer persists the cookie and the navigation becomes a redirect.
func (cs *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	nav := &redirectNavigator{w: w, r: r}
	bridge := NewBridge(&responseCookieWriter{w: w}, cs.refresh, nav)

	err := bridge.HandleCallback(r.Context(), ParamsFromQuery(r.URL.Query()))
	if err != nil && !nav.done {
		http.Error(w, "login failed", http.StatusBadGateway)
	}

	select {
	case cs.Result <- err:
	default:
	}
}

// responseCookieWriter writes cookies onto an HTTP response.
type responseCookieWriter struct {
	w http.ResponseWriter
}

func (cw *responseCookieWriter) SetCookie(c *http.Cookie) error {
	http.SetCookie(cw.w, c)
	return nil
}

// redirectNavigator turns surface navigation into an HTTP redirect.
// Cookies must be set before Navigate is called, which HandleCallback
// guarantees.
type redirectNavigator struct {
	w    http.ResponseWriter
	r    *http.Request
	done bool
}

func (n *redirectNavigator) Navigate(route string) {
	if n.done {
		return
	}
	n.done = true
	http.Redirect(n.w, n.r, route, http.StatusSeeOther)
}
