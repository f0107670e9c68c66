package server

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type under which the drawing server is advertised.
const ServiceType = "_easel._tcp"

// Advertise announces the server on the local network.
// The caller shuts the returned server down.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"Easel drawing"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// PortFromAddr extracts the TCP port from a listen address such as ":8080".
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in address %q", addr)
	}
	return port, nil
}
