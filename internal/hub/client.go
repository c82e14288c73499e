package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/config"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/domain"
	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/log"
)

// Client is one accepted WebSocket connection and its Session.
type Client struct {
	ID      string
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Session *domain.Session
	config  config.WebSocketConfig

	// done is closed exactly once when the client is torn down. Send is
	// never closed: a relay turn that outlives its peer must see a dead
	// client, not a closed channel.
	done     chan struct{}
	doneOnce sync.Once

	// alive is reset by each pong and cleared by the sweep; a client
	// that misses a full sweep interval is terminated.
	alive atomic.Bool
}

func NewClient(id string, h *Hub, conn *websocket.Conn, session *domain.Session, cfg config.WebSocketConfig) *Client {
	c := &Client{
		ID:      id,
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Session: session,
		config:  cfg,
		done:    make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

// ReadPump reads inbound frames and hands them to handler. It owns the
// connection teardown: on any read error the client is unregistered and
// the connection closed, without touching other connections.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.shutdown()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l := log.L()
				l.Warn().Str(log.FieldClientID, c.ID).Err(err).Msg("websocket read error")
			}
			break
		}

		c.Session.UpdateActivity()
		handler(c, message)
	}
}

// WritePump serializes all data writes onto the connection. It exits when
// the client is torn down.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// SendFrame marshals and queues one outbound frame. Frames for a client
// already torn down are dropped, so a relay turn that outlives its peer
// finishes harmlessly. A peer too slow to drain its buffer has the frame
// dropped rather than blocking the relay.
func (c *Client) SendFrame(msg *domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return nil
	default:
	}

	select {
	case c.Send <- data:
	case <-c.done:
	default:
		l := log.L()
		l.Warn().Str(log.FieldClientID, c.ID).Msg("send buffer full, dropping frame")
	}
	return nil
}

// ping sends a protocol-level ping. Control frames may be written
// concurrently with WritePump.
func (c *Client) ping() error {
	return c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteWait))
}

// terminate force-closes the underlying connection; the read pump then
// unregisters the client.
func (c *Client) terminate() {
	c.Conn.Close()
}

// shutdown marks the client dead. Idempotent.
func (c *Client) shutdown() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}
