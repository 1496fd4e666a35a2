// Package netutil resolves the address a node binds its sockets to versus
// the address it advertises to peers, mirroring the bind/advertise split
// the teacher repo's server configuration used for its gRPC listener.
package netutil

import (
	"fmt"
	"net"
)

// ResolveAdvertiseIP picks the IP peers should use to reach this node.
//
// If host is non-empty it is used verbatim (an operator-supplied override,
// e.g. a load balancer or NAT address). Otherwise an IP is chosen from the
// local interfaces: mode "private" prefers the first private (RFC 1918)
// address, mode "public" prefers the first address that is not private or
// loopback. Either mode falls back to the other family of address, then to
// loopback, rather than failing outright.
func ResolveAdvertiseIP(host, mode string) (string, error) {
	if host != "" {
		return host, nil
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("netutil: list interface addrs: %w", err)
	}

	var private, public string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		if isPrivateIP(ip4) {
			if private == "" {
				private = ip4.String()
			}
		} else if public == "" {
			public = ip4.String()
		}
	}

	switch mode {
	case "public":
		if public != "" {
			return public, nil
		}
		if private != "" {
			return private, nil
		}
	case "private":
		if private != "" {
			return private, nil
		}
		if public != "" {
			return public, nil
		}
	default:
		return "", fmt.Errorf("netutil: unknown advertise mode %q", mode)
	}
	return "127.0.0.1", nil
}

// isPrivateIP reports whether ip falls in one of the RFC 1918 private
// ranges.
func isPrivateIP(ip net.IP) bool {
	for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// BindAddr joins a bind interface and port into a dial/listen address,
// defaulting the interface to all-interfaces when unset.
func BindAddr(bind string, port int) string {
	if bind == "" {
		bind = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", bind, port)
}

// AdvertiseAddr joins an advertise IP and port into the address form
// embedded in a node id and handed to peers.
func AdvertiseAddr(ip string, port int) string {
	return fmt.Sprintf("%s:%d", ip, port)
}
