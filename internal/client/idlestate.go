package client

import "playerctld/internal/idle"

// IdleWait enters idle mode, subscribing to flags (spec §4.5). If an
// event the client cares about already happened since its last drain,
// delivery is synchronous and IdleWait returns true ("delivered");
// otherwise the client is parked and IdleWait returns false ("parked").
func (c *Client) IdleWait(flags idle.Flags) (delivered bool) {
	c.IdleWaiting = true
	c.IdleSubscriptions = flags
	if c.IdleFlags&c.IdleSubscriptions != 0 {
		c.notifyIdle()
		return true
	}
	return false
}

// IdleAdd ORs flags into the client's pending idle mask and, if the
// client is parked and interested in any of them, notifies it
// immediately (spec §4.5 "manager_idle_add"). It reports whether a
// notification was sent, purely for metrics.
func (c *Client) IdleAdd(flags idle.Flags) (notified bool) {
	if c.expired {
		return false
	}
	c.IdleFlags |= flags
	if c.IdleWaiting && c.IdleFlags&c.IdleSubscriptions != 0 {
		c.notifyIdle()
		c.FlushOutput()
		return true
	}
	return false
}

// Noidle implements the "noidle" command: if the client is parked, it
// leaves idle mode and emits a bare OK; if it wasn't idle, this is a
// no-op (spec §4.5 "noidle").
func (c *Client) Noidle() {
	if !c.IdleWaiting {
		return
	}
	c.IdleWaiting = false
	c.Puts("OK\n")
	c.FlushOutput()
	c.Touch()
}

// notifyIdle emits one "changed: <name>" line per subscribed-and-set
// flag, in the idle package's fixed table order, then a trailing OK.
// The entire pending mask is discarded afterward — including bits the
// client never subscribed to — per spec §4.5's observable contract.
func (c *Client) notifyIdle() {
	reported := c.IdleFlags & c.IdleSubscriptions
	c.IdleFlags = 0
	c.IdleWaiting = false
	for _, name := range idle.Names(reported) {
		c.Printf("changed: %s\n", name)
	}
	c.Puts("OK\n")
	c.Touch()
}
