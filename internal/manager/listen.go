package manager

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// Listen binds one configured address (spec §6's bind syntax,
// "tcp://host:port" or "unix:///path") into a net.Listener. Binding is
// the caller's responsibility (spec §1 treats listener setup as
// external); this just centralizes the address-scheme parsing so
// cmd/playerctld doesn't duplicate it.
func Listen(addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "tcp://"):
		return net.Listen("tcp", strings.TrimPrefix(addr, "tcp://"))
	case strings.HasPrefix(addr, "unix://"):
		path := strings.TrimPrefix(addr, "unix://")
		_ = os.Remove(path) // a stale socket file from a prior crash must not block bind
		return net.Listen("unix", path)
	default:
		return nil, fmt.Errorf("manager: unsupported bind address %q", addr)
	}
}
