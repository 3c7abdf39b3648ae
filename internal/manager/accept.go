package manager

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// acceptLoop mirrors GoRedis's RedisServer.acceptConnections: one
// goroutine per listener, blocking Accept, feeding the central loop
// through a channel rather than touching manager state directly.
func (m *Manager) acceptLoop(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-m.stopCh:
				return
			default:
				m.log.WithError(err).Warn("accept failed")
				return
			}
		}

		uid, peer := resolvePeer(conn)
		select {
		case m.newConns <- acceptedConn{conn: conn, uid: uid, peer: peer}:
		case <-m.stopCh:
			_ = conn.Close()
			return
		}
	}
}

// resolvePeer formats the peer address the way spec §4.6 describes
// ("IPv4, bracketed IPv6, or the literal string for a local socket")
// and, for Unix-domain peers, resolves the connecting UID via
// SO_PEERCRED so permission can eventually be derived from it.
func resolvePeer(conn net.Conn) (uid int64, peer string) {
	switch addr := conn.RemoteAddr().(type) {
	case *net.TCPAddr:
		if addr.IP.To4() != nil {
			return -1, addr.String()
		}
		return -1, "[" + addr.IP.String() + "]:" + strconv.Itoa(addr.Port)
	case *net.UnixAddr:
		return peerUID(conn), "local connection"
	default:
		return -1, conn.RemoteAddr().String()
	}
}

func peerUID(conn net.Conn) int64 {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return -1
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return -1
	}
	var uid int64 = -1
	_ = raw.Control(func(fd uintptr) {
		cred, err := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
		if err != nil {
			return
		}
		uid = int64(cred.Uid)
	})
	return uid
}
