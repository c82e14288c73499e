package hub

import (
	"sync"
	"time"

	"github.com/masaoka108/tour-guide-ai-chatbot/internal/config"
	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/log"
)

// Hub tracks the set of live connections and runs the liveness sweep.
type Hub struct {
	clients    map[string]*Client // clientID -> client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

// Run processes registration and the periodic heartbeat sweep until Stop.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				client.shutdown()
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case <-ticker.C:
			h.sweep()

		case <-h.done:
			return
		}
	}
}

// sweep terminates every connection that failed to answer the previous
// probe, then marks the rest pending and probes them again. This bounds
// how long a half-open connection can hold resources.
func (h *Hub) sweep() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.alive.Load() {
			l := log.L()
			l.Info().Str(log.FieldClientID, c.ID).Msg("terminating unresponsive client")
			c.terminate()
			continue
		}

		c.alive.Store(false)
		if err := c.ping(); err != nil {
			c.terminate()
		}
	}
}

// Register and Unregister hand the client to the run loop. Both return
// immediately once the hub has stopped so a late-closing connection's
// read pump cannot block on a dead loop.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.shutdown()
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop ends the Run loop. Connections are left to close individually.
func (h *Hub) Stop() {
	close(h.done)
}
