package server

import (
	"net"
	"testing"
)

func TestListenPrefersRequestedPort(t *testing.T) {
	// Grab a free port by binding :0, then ask Listen for that exact port.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("probe listen: %v", err)
	}
	port := probe.Addr().(*net.TCPAddr).Port
	probe.Close()

	ln, got, err := Listen("127.0.0.1", port)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if got != port {
		t.Fatalf("expected port %d, got %d", port, got)
	}
}

func TestListenProbesUpwardWhenOccupied(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("occupy port: %v", err)
	}
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	ln, got, err := Listen("127.0.0.1", port)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if got <= port {
		t.Fatalf("expected a port above %d, got %d", port, got)
	}
}
