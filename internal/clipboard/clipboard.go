// Copyright (c) 2025 Drift Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package clipboard

import (
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// AckWindow is how long a copy acknowledgment stays visible before it
// auto-resets.
const AckWindow = 2 * time.Second

// CopyFunc writes text to the system clipboard.
type CopyFunc func(text string) error

// Controller copies text and tracks a single transient acknowledgment.
// Safe for concurrent use.
type Controller struct {
	mu       sync.Mutex
	copyFn   CopyFunc
	ttl      time.Duration
	ackID    string
	timer    *time.Timer
	gen      int
	onChange func()
}

// New creates a Controller backed by the system clipboard.
func New() *Controller {
	return &Controller{copyFn: clipboard.WriteAll, ttl: AckWindow}
}

// SetOnChange registers a hook invoked after the acknowledgment state
// changes, including the auto-reset. The hook runs on the timer's
// goroutine on expiry.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Copy writes text to the clipboard and acknowledges id. On failure the
// clipboard and the acknowledgment state are left untouched. A copy
// before the previous acknowledgment expires restarts the window; there
// is never more than one pending expiry timer.
func (c *Controller) Copy(id, text string) error {
	if err := c.copyFn(text); err != nil {
		return err
	}

	c.mu.Lock()
	c.ackID = id
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.ttl, func() { c.expire(gen) })
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// expire clears the acknowledgment unless a newer Copy restarted the
// window after this timer was armed.
func (c *Controller) expire(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.ackID = ""
	c.timer = nil
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Acked reports whether id currently holds the acknowledgment.
func (c *Controller) Acked(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ackID != "" && c.ackID == id
}

// AckedID returns the acknowledged id, empty when none.
func (c *Controller) AckedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ackID
}

// Reset clears the acknowledgment and any pending timer immediately.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.ackID = ""
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}
