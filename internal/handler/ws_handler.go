package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/config"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/domain"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/hub"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/service"
	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/log"
)

// inboundQueueSize bounds how many messages may queue behind an
// in-flight upstream turn before further ones are dropped.
const inboundQueueSize = 32

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub     *hub.Hub
	service service.ChatService
	wsCfg   config.WebSocketConfig
	// port is the listen port actually bound, exposed to clients so they
	// can build the socket URL without assuming the preferred port held.
	port int
}

func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig, port int) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
		port:    port,
	}
}

func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.New().String()
	userKey := r.URL.Query().Get("user")
	if userKey == "" {
		userKey = id
	}

	client := hub.NewClient(id, h.hub, conn, domain.NewSession(id, userKey), h.wsCfg)
	h.hub.Register(client)

	go client.WritePump()

	if err := h.service.HandleConnect(context.Background(), client); err != nil {
		l := log.L()
		l.Warn().Str(log.FieldClientID, client.ID).Err(err).Msg("connect greeting failed")
	}

	// One worker per connection drains inbound messages in arrival order,
	// so a second message queues behind an in-flight upstream turn and a
	// long turn cannot starve ping/pong processing on the read loop.
	work := make(chan []byte, inboundQueueSize)
	go func() {
		for raw := range work {
			if err := h.service.HandleInbound(context.Background(), client, raw); err != nil {
				l := log.L()
				l.Warn().Str(log.FieldClientID, client.ID).Err(err).Msg("inbound message failed")
			}
		}
	}()

	go func() {
		client.ReadPump(func(c *hub.Client, message []byte) {
			select {
			case work <- message:
			default:
				l := log.L()
				l.Warn().Str(log.FieldClientID, c.ID).Msg("inbound queue full, dropping message")
			}
		})
		close(work)
		h.service.HandleDisconnect(context.Background(), client)
	}()
}

// HandlePort reports the bound listen port.
func (h *WSHandler) HandlePort(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"port": h.port})
}

func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.HandleFunc("/api/port", h.HandlePort)
}
