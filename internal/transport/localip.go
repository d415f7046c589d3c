package transport

import (
	"log/slog"
	"net"
)

// OutgoingIP returns the local address other peers on the LAN should dial
// to reach this process: the address the OS would route traffic to the
// public internet through, falling back to the first non-loopback
// interface address on networks without internet access.
func OutgoingIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return localIPFallback()
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return localIPFallback()
	}
	return addr.IP.String(), nil
}

func localIPFallback() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	slog.Warn("no suitable local IP found, falling back to loopback")
	return "127.0.0.1", nil
}
