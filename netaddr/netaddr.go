// Package netaddr resolves a name/port pair to the socket-creation-ready
// address records asyncfile.Bind and AsyncFile.Connect need, grounded on
// the original's http_endpoint.cpp/.hpp endpoint/address record shape.
package netaddr

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// AddrInfo is one resolved address record: enough to build a socket and
// bind/connect it without re-resolving.
type AddrInfo struct {
	Network string // "tcp", "tcp4", "tcp6"
	IP      net.IP
	Port    int
	Sockaddr unix.Sockaddr
}

// Resolve looks up address on network ("tcp", "tcp4", "tcp6") and returns
// every matching address record, analogous to getaddrinfo(3).
func Resolve(network, address string) ([]AddrInfo, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// Allow a bare port with no colon (e.g. "8080") to resolve to the
		// wildcard address.
		host, portStr, err = net.SplitHostPort("0.0.0.0:" + trimLeadingColon(address))
		if err != nil {
			return nil, fmt.Errorf("netaddr: invalid address %q: %w", address, err)
		}
	}
	if host == "" {
		// An empty host (e.g. ":8080") means the wildcard address, matching
		// net.Listen's own convention.
		host = "0.0.0.0"
	}

	port, err := net.LookupPort(network, portStr)
	if err != nil {
		return nil, fmt.Errorf("netaddr: lookup port: %w", err)
	}

	ips, err := net.DefaultResolver.LookupIP(context.Background(), resolveIPNetwork(network), host)
	if err != nil {
		return nil, fmt.Errorf("netaddr: lookup host %q: %w", host, err)
	}

	infos := make([]AddrInfo, 0, len(ips))
	for _, ip := range ips {
		sa, net4or6, err := toSockaddr(ip, port)
		if err != nil {
			continue
		}
		infos = append(infos, AddrInfo{Network: net4or6, IP: ip, Port: port, Sockaddr: sa})
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("netaddr: no addresses found for %q", address)
	}
	return infos, nil
}

func trimLeadingColon(s string) string {
	if len(s) > 0 && s[0] == ':' {
		return s[1:]
	}
	return s
}

func resolveIPNetwork(network string) string {
	switch network {
	case "tcp4":
		return "ip4"
	case "tcp6":
		return "ip6"
	default:
		return "ip"
	}
}

func toSockaddr(ip net.IP, port int) (unix.Sockaddr, string, error) {
	if v4 := ip.To4(); v4 != nil {
		var addr [4]byte
		copy(addr[:], v4)
		return &unix.SockaddrInet4{Port: port, Addr: addr}, "tcp4", nil
	}
	if v6 := ip.To16(); v6 != nil {
		var addr [16]byte
		copy(addr[:], v6)
		return &unix.SockaddrInet6{Port: port, Addr: addr}, "tcp6", nil
	}
	return nil, "", fmt.Errorf("netaddr: unsupported IP %v", ip)
}
