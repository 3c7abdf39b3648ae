package manager

import (
	"errors"
	"net"

	"playerctld/internal/client"
	"playerctld/internal/command"
	"playerctld/internal/lineproto"
)

// ErrKill is returned by Run when a command collaborator returns
// command.Kill (spec §4.2, §5): the caller should stop the process.
var ErrKill = errors.New("manager: kill requested")

// handleAccept is the registration half of client_new: admission
// control, Client construction, greeting, and starting the reader
// goroutine. It only ever runs on the Run goroutine.
func (m *Manager) handleAccept(ac acceptedConn) {
	if len(m.clients) >= m.tunables.MaxConnections {
		m.log.WithField("peer", ac.peer).Warn("refusing connection: max_connections reached")
		_ = ac.conn.Close()
		return
	}

	m.nextNum++
	num := m.nextNum
	c := client.New(ac.conn, num, ac.uid, m.tunables.DefaultPermission,
		m.tunables.MaxOutputBufferSize, m.tunables.MaxCommandListSize)

	e := &entry{c: c, grantCh: make(chan int, 1)}
	m.clients[num] = e

	c.Puts("OK MPD " + ProtocolVersion + "\n")
	c.FlushOutput()

	m.log.WithFields(map[string]interface{}{
		"client": num,
		"peer":   ac.peer,
	}).Info("client connected")

	go m.readPump(num, ac.conn, e.grantCh)
	e.grantCh <- lineproto.Capacity
}

// readPump is the per-connection reader: it performs exactly one
// blocking Read per grant it receives and reports the result back to
// the Run goroutine, which is the sole owner of everything else. This
// is the "permission to read" half of the select()-loop adaptation
// described in SPEC_FULL.md §4.4.
func (m *Manager) readPump(num uint64, conn net.Conn, grantCh <-chan int) {
	scratch := make([]byte, lineproto.Capacity)
	for {
		var maxN int
		var ok bool
		select {
		case maxN, ok = <-grantCh:
			if !ok {
				return
			}
		case <-m.stopCh:
			return
		}
		if maxN <= 0 {
			maxN = len(scratch)
		}

		n, err := conn.Read(scratch[:maxN])
		var chunk []byte
		if n > 0 {
			chunk = append([]byte(nil), scratch[:n]...)
		}

		select {
		case m.readEvents <- readEvent{num: num, data: chunk, err: err}:
		case <-m.stopCh:
			return
		}

		if err != nil {
			return
		}
	}
}

// handleReadEvent processes one reported read, feeding any bytes
// through the line buffer and dispatching every complete line, then
// either closes the client or re-arms its reader. It returns true if
// the daemon should shut down (a command returned command.Kill).
func (m *Manager) handleReadEvent(ev readEvent) bool {
	e, ok := m.clients[ev.num]
	if !ok {
		return false // stale event for an already-removed client
	}

	closeNow := false
	killNow := false

	if len(ev.data) > 0 {
		e.c.In.Append(ev.data)
		err := e.c.In.Lines(func(line []byte) {
			if closeNow || killNow {
				return
			}
			outcome := m.processLineAndRespond(e.c, string(line))
			switch outcome {
			case command.Close:
				closeNow = true
			case command.Kill:
				killNow = true
			}
			if e.c.IsExpired() {
				closeNow = true
			}
		})
		if err != nil {
			closeNow = true
		}
		if !closeNow && !killNow {
			e.c.Touch()
		}
	}

	if ev.err != nil {
		closeNow = true
	}

	if killNow {
		m.closeEntry(e)
		return true
	}
	if closeNow {
		m.closeEntry(e)
		return false
	}

	m.maybeGrant(e)
	return false
}

// maybeGrant re-arms a client's reader, unless it has deferred output
// to drain first — the Go equivalent of excluding a client's fd from
// the read-set while client_has_deferred_output is true.
func (m *Manager) maybeGrant(e *entry) {
	if e.c.HasDeferred() {
		return
	}
	room := e.c.In.Room()
	if room <= 0 {
		return
	}
	select {
	case e.grantCh <- room:
	default:
	}
}

// drainPass drives deferred output for every client that has any,
// and re-arms readers that were withheld while draining (spec §4.3's
// write-availability poll, run on a ticker instead of select()'s
// write-fd-set).
func (m *Manager) drainPass() {
	any := false
	for _, e := range m.clients {
		if e.c.IsExpired() {
			continue
		}
		if !e.c.HasDeferred() {
			continue
		}
		any = true
		_ = e.c.DrainDeferred()
		if e.c.IsExpired() {
			continue
		}
		if !e.c.HasDeferred() {
			m.maybeGrant(e)
		}
	}
	if any {
		m.reportMetrics()
	}
}

// expirySweep removes timed-out or already-closed clients (spec
// §4.6's client_manager_expire).
func (m *Manager) expirySweep() {
	removed := false
	for num, e := range m.clients {
		if e.c.IsExpired() {
			m.closeEntry(e)
			delete(m.clients, num)
			removed = true
			if m.metrics != nil {
				m.metrics.IncExpired()
			}
			continue
		}
		if e.c.TimedOut(m.tunables.Timeout) {
			m.log.WithField("client", e.c.Num).Info("client timed out")
			m.closeEntry(e)
			delete(m.clients, num)
			removed = true
			if m.metrics != nil {
				m.metrics.IncExpired()
			}
		}
	}
	if removed {
		m.reportMetrics()
	}
}

// closeEntry expires the client (closing its socket), unblocks its
// reader goroutine, and drops it from the registry.
func (m *Manager) closeEntry(e *entry) {
	e.c.Expire()
	close(e.grantCh)
	delete(m.clients, e.c.Num)
}
