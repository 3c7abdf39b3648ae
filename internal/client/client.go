// Package client implements the per-connection data model: the data that
// spec section 3 describes as "Client" plus the output-path facades of
// section 4.3. Only the event-loop goroutine in package manager ever calls
// methods on a *Client — see SPEC_FULL.md's concurrency adaptation.
package client

import (
	"net"
	"time"

	"playerctld/internal/idle"
	"playerctld/internal/lineproto"
)

// ListMode is the command-list batching state of a client (spec §3, §4.2).
type ListMode int

const (
	ListOff ListMode = iota
	ListSilent
	ListVerbose
)

// Client is a single connected peer. Fields are only ever touched by the
// manager's event-loop goroutine; see the concurrency note in client.go's
// package doc.
type Client struct {
	Conn net.Conn
	Num  uint64
	UID  int64

	Permission uint32

	LastActivity time.Time
	expired      bool

	In lineproto.LineBuffer

	out      sendBuffer
	deferred deferredQueue

	cmdList     cmdListAccumulator
	CmdListMode ListMode

	IdleWaiting       bool
	IdleSubscriptions idle.Flags
	IdleFlags         idle.Flags

	// MaxOutputBufferSize bounds deferred.bytes (spec §3 invariant 2).
	// MaxCommandListSize bounds cmdList.size (spec §3 invariant 3).
	// Copied onto the client at construction so later tunable changes
	// (there are none post-init; see DESIGN.md) can't race a live client.
	MaxOutputBufferSize int
	MaxCommandListSize  int
}

// New constructs a client around an already-accepted, already-registered
// connection. permission is the server's configured default permission
// mask; uid is the resolved peer uid, or -1 if unknown (spec §3, §4.7).
func New(conn net.Conn, num uint64, uid int64, permission uint32, maxOutputBuffer, maxCommandList int) *Client {
	return &Client{
		Conn:                conn,
		Num:                 num,
		UID:                 uid,
		Permission:          permission,
		LastActivity:        time.Now(),
		MaxOutputBufferSize: maxOutputBuffer,
		MaxCommandListSize:  maxCommandList,
	}
}

// IsExpired reports whether the client's socket has already been closed
// but the object has not yet been reaped from the registry (spec §3
// invariant 5, glossary "Expired client").
func (c *Client) IsExpired() bool { return c.expired }

// Expire closes the underlying connection (if not already closed) and
// marks the client expired. It does not remove the client from any
// registry; that is the manager's job during the next expiry sweep.
func (c *Client) Expire() {
	if c.expired {
		return
	}
	c.expired = true
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// HasDeferred reports whether output is queued waiting for backpressure
// to clear. The manager uses this to decide whether a client is eligible
// to be read from this iteration (§4.4 point 1) and whether it belongs in
// the write-ready set (§4.4 point 2).
func (c *Client) HasDeferred() bool { return c.deferred.bytes > 0 }

// DeferredBytes returns the currently accounted size of the deferred
// queue (spec §3 invariant 1), mainly for metrics and tests.
func (c *Client) DeferredBytes() int { return c.deferred.bytes }

// CmdListSize returns the accumulated size of the pending command list
// (spec §3 invariant 3).
func (c *Client) CmdListSize() int { return c.cmdList.size }

// BeginList switches the client into command-list accumulation mode,
// clearing any previous (already-dispatched) list.
func (c *Client) BeginList(mode ListMode) {
	c.CmdListMode = mode
	c.cmdList.reset()
}

// AppendListLine queues one line of a command list. It reports whether
// the accumulated size is still within MaxCommandListSize; the caller
// must close the client when it returns false (spec §3 invariant 3,
// §4.2 "InList + any other line").
func (c *Client) AppendListLine(line string) bool {
	c.cmdList.push(line)
	return c.cmdList.size <= c.MaxCommandListSize
}

// EndList restores FIFO order (the accumulator prepends each entry as it
// arrives) and returns the queued lines, then clears list mode. This is
// the one-time reversal spec §4.2 calls out as an observable contract.
func (c *Client) EndList() []string {
	lines := c.cmdList.orderedLines()
	c.cmdList.reset()
	c.CmdListMode = ListOff
	return lines
}

// Touch records successful I/O activity, resetting the idle timeout
// clock (spec §3 "last_activity").
func (c *Client) Touch() { c.LastActivity = time.Now() }

// TimedOut reports whether the client has been idle longer than
// timeout, the connection-level check client_manager_expire performs
// before the per-client connection_timeout (spec §4.6). A client
// parked in idle mode never times out on this check alone; idle
// clients are expected to sit for arbitrarily long.
func (c *Client) TimedOut(timeout time.Duration) bool {
	if c.expired || c.IdleWaiting {
		return false
	}
	return time.Since(c.LastActivity) > timeout
}
