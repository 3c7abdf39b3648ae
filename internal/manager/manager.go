// Package manager implements the connection manager and per-client I/O
// driver: the registry, accept loop, event loop, and expiry sweep of
// spec §4.4, adapted to Go's concurrency model as described in
// SPEC_FULL.md's §4.4 adaptation note. Every Client field mutation in
// this package happens on the single Run goroutine.
package manager

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"playerctld/internal/client"
	"playerctld/internal/command"
	"playerctld/internal/idle"
)

// ProtocolVersion is embedded in the connection greeting (spec §6,
// "OK MPD <version>\n" in the original; kept verbatim since spec.md
// names the greeting format literally).
const ProtocolVersion = "0.1.0"

// Tunables are the four process-wide, read-only-after-init values spec
// §3 calls out, plus the default permission new clients start with.
type Tunables struct {
	Timeout             time.Duration
	MaxConnections      int
	MaxCommandListSize  int // bytes
	MaxOutputBufferSize int // bytes
	DefaultPermission   uint32
}

// entry bundles a client with the manager-side bookkeeping needed to
// drive its reader goroutine. None of this lives on client.Client
// itself: it is runtime plumbing, not the spec's data model.
type entry struct {
	c       *client.Client
	grantCh chan int
}

type readEvent struct {
	num  uint64
	data []byte
	err  error
}

type acceptedConn struct {
	conn net.Conn
	uid  int64
	peer string
}

// Manager is the connection manager / event loop of spec §4.4.
type Manager struct {
	tunables  Tunables
	commander command.Collaborator
	log       *logrus.Logger
	metrics   Metrics

	listeners []net.Listener

	clients map[uint64]*entry
	nextNum uint64

	newConns   chan acceptedConn
	readEvents chan readEvent
	idleAddCh  chan idle.Flags
	shutdownCh chan struct{}

	stopCh chan struct{}
}

// Metrics is the minimal surface the manager reports through; see
// package metrics for the Prometheus-backed implementation. A nil
// Metrics is fine — every method is guarded.
type Metrics interface {
	SetActiveConnections(n int)
	SetIdleConnections(n int)
	SetDeferredBytes(n int)
	IncExpired()
	IncCommandsProcessed()
}

// New builds a Manager around already-constructed listeners. Binding
// the listeners is the caller's job (spec §1: "listener-socket setup...
// are external").
func New(listeners []net.Listener, tunables Tunables, commander command.Collaborator, log *logrus.Logger, m Metrics) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		tunables:   tunables,
		commander:  commander,
		log:        log,
		metrics:    m,
		listeners:  listeners,
		clients:    make(map[uint64]*entry),
		newConns:   make(chan acceptedConn, 64),
		readEvents: make(chan readEvent, 256),
		idleAddCh:  make(chan idle.Flags, 64),
		shutdownCh: make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
}

// IdleAdd broadcasts a change event to every live, interested client
// (spec §4.5, §6 "manager_idle_add"). Safe to call from any goroutine;
// it is the channel handoff that replaces the original's main-thread
// lock (see SPEC_FULL.md).
func (m *Manager) IdleAdd(flags idle.Flags) {
	if flags == 0 {
		return
	}
	select {
	case m.idleAddCh <- flags:
	case <-m.stopCh:
	}
}

// Run starts the accept goroutines and drives the event loop until the
// caller's ctx-equivalent stop (Shutdown) or a command returns Kill, in
// which case Run returns ErrKill so the caller can stop the daemon
// (spec §5 "Cancellation / shutdown").
func (m *Manager) Run() error {
	// stopCh is only ever closed here, once, after the loop exits on any
	// path (clean shutdown or ErrKill) — it is what unblocks accept and
	// reader goroutines, and what Shutdown() itself waits on to know the
	// loop goroutine is done touching client state.
	defer close(m.stopCh)

	for _, l := range m.listeners {
		go m.acceptLoop(l)
	}

	drainTicker := time.NewTicker(25 * time.Millisecond)
	defer drainTicker.Stop()
	expiryTicker := time.NewTicker(1 * time.Second)
	defer expiryTicker.Stop()

	for {
		select {
		case <-m.shutdownCh:
			m.doShutdown()
			return nil

		case ac := <-m.newConns:
			m.handleAccept(ac)

		case flags := <-m.idleAddCh:
			for _, e := range m.clients {
				e.c.IdleAdd(flags)
			}
			m.reportMetrics()

		case ev := <-m.readEvents:
			if m.handleReadEvent(ev) {
				return ErrKill
			}

		case <-drainTicker.C:
			m.drainPass()

		case <-expiryTicker.C:
			m.expirySweep()
		}
	}
}

// Shutdown asks the event loop to close every client and stop, matching
// spec §5's manager_deinit: "closes every client... and sets
// max_connections = 0 so no new clients are admitted". Safe to call
// from any goroutine, any number of times, including while Run is not
// (yet, or any longer) executing: the handoff goes over shutdownCh
// rather than touching m.clients directly, since only the Run goroutine
// may read or mutate client state (SPEC_FULL.md §4.4).
func (m *Manager) Shutdown() {
	select {
	case m.shutdownCh <- struct{}{}:
	case <-m.stopCh:
	}
	<-m.stopCh
}

// doShutdown runs on the Run goroutine only; Run's own deferred
// close(m.stopCh) is what signals completion, so this does not touch
// stopCh itself.
func (m *Manager) doShutdown() {
	m.tunables.MaxConnections = 0
	for _, e := range m.clients {
		m.closeEntry(e)
	}
	for _, l := range m.listeners {
		_ = l.Close()
	}
}

func (m *Manager) reportMetrics() {
	if m.metrics == nil {
		return
	}
	active, idleN, deferred := 0, 0, 0
	for _, e := range m.clients {
		if e.c.IsExpired() {
			continue
		}
		active++
		if e.c.IdleWaiting {
			idleN++
		}
		deferred += e.c.DeferredBytes()
	}
	m.metrics.SetActiveConnections(active)
	m.metrics.SetIdleConnections(idleN)
	m.metrics.SetDeferredBytes(deferred)
}
