package transport

import (
	"fmt"
	"os"

	"github.com/hashicorp/mdns"
)

// serviceType is the mDNS service name peers advertise themselves under so
// they can find each other on a LAN without a directory server.
const serviceType = "_collabspace._tcp"

// Advertise publishes this peer's websocket listener over mDNS. The
// returned server stays running (and must be Shutdown) until the peer
// goes offline.
func Advertise(port int, label string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolve hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, []string{label})
	if err != nil {
		return nil, fmt.Errorf("build mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mdns server: %w", err)
	}
	return server, nil
}

// Discover browses the LAN once for advertised peers, reporting each one
// found to onFound as "host:port". It returns once the underlying lookup
// completes its sweep.
func Discover(onFound func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	go func() {
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			onFound(fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port))
		}
	}()
	return mdns.Lookup(serviceType, entries)
}
