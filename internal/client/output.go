package client

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// errWouldBlock stands in for EAGAIN/EWOULDBLOCK. Go's net.Conn has no
// non-blocking write mode; nonBlockingWrite fakes one with an
// immediate write deadline, the same trick used to bound flush latency
// in other_examples' gnatsd client (see DESIGN.md).
var errWouldBlock = errors.New("client: write would block")

// nonBlockingWrite attempts to write data without blocking the caller.
// It arms an immediate deadline, issues the write, and disarms the
// deadline again. A timeout is reported as errWouldBlock; n reflects
// however many bytes made it out before the deadline fired, which may
// be a genuine partial write under TCP. Go's runtime retries
// interrupted syscalls internally, so the "interrupted, retry later"
// case from spec §4.1/§4.3 never surfaces here.
func nonBlockingWrite(conn net.Conn, data []byte) (int, error) {
	_ = conn.SetWriteDeadline(time.Now())
	n, err := conn.Write(data)
	_ = conn.SetWriteDeadline(time.Time{})
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return n, errWouldBlock
		}
		return n, err
	}
	return n, nil
}

// Write appends p to the coalescing send buffer, flushing whenever it
// fills (spec §4.3). It is a no-op on an expired client.
func (c *Client) Write(p []byte) {
	if c.expired {
		return
	}
	for len(p) > 0 && !c.expired {
		n := c.out.append(p)
		p = p[n:]
		if c.out.used >= sendBufferCapacity {
			c.FlushOutput()
		}
	}
}

// Puts writes a string verbatim (spec §4.3 "puts").
func (c *Client) Puts(s string) { c.Write([]byte(s)) }

// Printf formats and writes (spec §4.3 "printf"). Go's fmt.Sprintf
// already sizes its own buffer; the original's two-pass
// format-then-measure dance (vsnprintf(NULL,0,...) then again into a
// sized buffer) was a C-ism to avoid overallocating and has no
// idiomatic Go equivalent worth keeping.
func (c *Client) Printf(format string, args ...any) {
	c.Write([]byte(fmt.Sprintf(format, args...)))
}

// FlushOutput drains the coalescing send buffer: straight to the
// deferred queue if one is already building (with an immediate drain
// attempt so a long-running command doesn't starve the peer, per
// spec §4.3's rationale), or a direct best-effort write otherwise.
func (c *Client) FlushOutput() {
	if c.expired || c.out.used == 0 {
		return
	}
	data := make([]byte, c.out.used)
	copy(data, c.out.bytes())
	c.out.clear()

	if c.deferred.bytes > 0 {
		c.deferAccounted(data)
		if !c.expired {
			c.drainDeferredOnce()
		}
		return
	}
	c.writeDirect(data)
}

// writeDirect issues one best-effort write when the deferred queue is
// empty. On would-block it defers whatever part of the payload was not
// written; on a partial write it defers the unwritten remainder; on a
// hard error it expires
// the client (spec §4.3 "If deferred is empty...").
func (c *Client) writeDirect(data []byte) {
	n, err := nonBlockingWrite(c.Conn, data)
	if err != nil {
		if err == errWouldBlock {
			c.deferAccounted(data[n:])
			return
		}
		c.Expire()
		return
	}
	if n < len(data) {
		c.deferAccounted(data[n:])
	}
}

func (c *Client) deferAccounted(data []byte) {
	if len(data) == 0 {
		return
	}
	if !c.deferred.push(data, c.MaxOutputBufferSize) {
		c.Expire()
	}
}

// drainDeferredOnce performs one deferred-queue drain pass: the
// manager calls this once per live client per write-drain tick (spec
// §4.4 point 8, "Per-client I/O driver").
func (c *Client) drainDeferredOnce() {
	if c.expired || c.deferred.bytes == 0 {
		return
	}
	if err := c.deferred.drain(c.Conn); err != nil {
		c.Expire()
	}
}

// DrainDeferred is the manager-facing entry point for one write-drain
// tick (spec §4.4 point 8). Errors are reported through IsExpired
// rather than a return value, since a drain failure always means the
// client is now expired.
func (c *Client) DrainDeferred() error {
	c.drainDeferredOnce()
	return nil
}
