// Package server holds process-level listener helpers.
package server

import (
	"fmt"
	"net"
)

// maxPortProbes bounds the upward search for a free port.
const maxPortProbes = 100

// Listen binds the preferred port on host, probing upward until a free
// port is found. It returns the listener and the port actually bound.
func Listen(host string, preferredPort int) (net.Listener, int, error) {
	for port := preferredPort; port < preferredPort+maxPortProbes; port++ {
		addr := fmt.Sprintf("%s:%d", host, port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		return ln, port, nil
	}
	return nil, 0, fmt.Errorf("no free port in range %d-%d", preferredPort, preferredPort+maxPortProbes-1)
}
