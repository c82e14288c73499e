package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/config"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/domain"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   time.Hour, // keep the sweep out of these tests
		PongWait:       time.Hour,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
	}
}

// newWSPair upgrades a real connection and returns the hub-side client
// plus the dialer-side peer.
func newWSPair(t *testing.T, h *Hub, cfg config.WebSocketConfig, id string) (*Client, *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { peer.Close() })

	conn := <-conns
	return NewClient(id, h, conn, domain.NewSession(id, id), cfg), peer
}

func TestHubRegisterUnregister(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()
	defer h.Stop()

	client := NewClient("c1", h, nil, domain.NewSession("c1", "u1"), testConfig())

	h.Register(client)
	waitForCount(t, h, 1)

	h.Unregister(client)
	waitForCount(t, h, 0)

	select {
	case <-client.done:
	case <-time.After(time.Second):
		t.Fatal("client not torn down after unregister")
	}
}

func TestSendFrameAfterUnregisterIsDropped(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()
	defer h.Stop()

	client := NewClient("c1", h, nil, domain.NewSession("c1", "u1"), testConfig())
	h.Register(client)
	waitForCount(t, h, 1)
	h.Unregister(client)
	waitForCount(t, h, 0)

	// A relay turn that outlives its peer keeps sending fragments; they
	// must be dropped, not crash the process.
	if err := client.SendFrame(domain.NewAssistantMessage("m1", "late fragment", 1)); err != nil {
		t.Fatalf("send frame: %v", err)
	}
	select {
	case data := <-client.Send:
		t.Fatalf("frame queued for dead client: %s", data)
	default:
	}
}

func TestSendFrameMarshalsOutbound(t *testing.T) {
	h := NewHub(testConfig())
	client := NewClient("c1", h, nil, domain.NewSession("c1", "u1"), testConfig())

	msg := domain.NewAssistantMessage("m1", "hello", 1705310000000)
	msg.ResponseTime = 1200
	if err := client.SendFrame(msg); err != nil {
		t.Fatalf("send frame: %v", err)
	}

	data := <-client.Send
	var got domain.ChatMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.ID != "m1" || got.Content != "hello" || got.ResponseTime != 1200 {
		t.Fatalf("unexpected frame: %+v", got)
	}
}

func TestSendFrameDropsWhenBufferFull(t *testing.T) {
	h := NewHub(testConfig())
	client := NewClient("c1", h, nil, domain.NewSession("c1", "u1"), testConfig())

	// Nothing drains Send here; filling it past capacity must not block.
	msg := domain.NewSystemMessage("x")
	for i := 0; i < cap(client.Send)+10; i++ {
		if err := client.SendFrame(msg); err != nil {
			t.Fatalf("send frame %d: %v", i, err)
		}
	}
}

func TestSweepTerminatesUnresponsiveClient(t *testing.T) {
	cfg := config.WebSocketConfig{
		PingInterval:   100 * time.Millisecond,
		PongWait:       time.Hour,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
	}
	h := NewHub(cfg)
	go h.Run()
	defer h.Stop()

	responsive, responsivePeer := newWSPair(t, h, cfg, "responsive")
	unresponsive, _ := newWSPair(t, h, cfg, "unresponsive")

	// A peer answers pings only while it is reading; the unresponsive
	// one never reads.
	go func() {
		for {
			if _, _, err := responsivePeer.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, c := range []*Client{responsive, unresponsive} {
		h.Register(c)
		go c.WritePump()
		go c.ReadPump(func(*Client, []byte) {})
	}
	waitForCount(t, h, 2)

	// The unresponsive client misses a full probe interval and is
	// terminated on the following sweep.
	waitForCount(t, h, 1)

	select {
	case <-unresponsive.done:
	default:
		t.Fatal("expected the unresponsive client to be torn down")
	}
	select {
	case <-responsive.done:
		t.Fatal("responsive client was torn down by the sweep")
	default:
	}
}

func TestUnregisterAfterStopDoesNotBlock(t *testing.T) {
	h := NewHub(testConfig())
	go h.Run()

	client := NewClient("c1", h, nil, domain.NewSession("c1", "u1"), testConfig())
	h.Register(client)
	waitForCount(t, h, 1)

	h.Stop()

	released := make(chan struct{})
	go func() {
		h.Unregister(client)
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after hub stop")
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d (now %d)", want, h.ClientCount())
}
