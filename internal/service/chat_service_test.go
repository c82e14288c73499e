package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/masaoka108/tour-guide-ai-chatbot/internal/config"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/domain"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/hub"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/relay"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/store"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/upstream"
)

type fakeStreamer struct {
	lastQuery          string
	lastConversationID string
	events             []upstream.Event
}

func (f *fakeStreamer) StreamChat(ctx context.Context, query, conversationID string) (<-chan upstream.Event, <-chan error) {
	f.lastQuery = query
	f.lastConversationID = conversationID

	events := make(chan upstream.Event, len(f.events))
	errs := make(chan error, 1)
	for _, ev := range f.events {
		events <- ev
	}
	close(events)
	close(errs)
	return events, errs
}

func wsConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   time.Hour,
		PongWait:       time.Hour,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
	}
}

func newTestClient(t *testing.T) *hub.Client {
	t.Helper()
	cfg := wsConfig()
	h := hub.NewHub(cfg)
	return hub.NewClient("conn-1", h, nil, domain.NewSession("conn-1", "user-1"), cfg)
}

func drainFrames(t *testing.T, c *hub.Client) []domain.ChatMessage {
	t.Helper()
	var frames []domain.ChatMessage
	for {
		select {
		case data := <-c.Send:
			var msg domain.ChatMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("bad outbound frame %q: %v", data, err)
			}
			frames = append(frames, msg)
		default:
			return frames
		}
	}
}

func newService(streamer upstream.Streamer, conversations store.ConversationStore) ChatService {
	return NewChatService(relay.New(streamer, time.Minute), conversations)
}

func memStore(t *testing.T) store.ConversationStore {
	t.Helper()
	s, err := store.New(store.StoreTypeMemory)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestHandleInboundMalformedJSON(t *testing.T) {
	streamer := &fakeStreamer{}
	svc := newService(streamer, memStore(t))
	client := newTestClient(t)

	if err := svc.HandleInbound(context.Background(), client, []byte("{not json")); err != nil {
		t.Fatalf("malformed input must be recovered locally: %v", err)
	}

	frames := drainFrames(t, client)
	if len(frames) != 1 || frames[0].Role != domain.RoleAssistant {
		t.Fatalf("expected one assistant apology frame, got %+v", frames)
	}
	if streamer.lastQuery != "" {
		t.Fatal("malformed input must not reach upstream")
	}
}

func TestHandleInboundBlankContent(t *testing.T) {
	streamer := &fakeStreamer{}
	svc := newService(streamer, memStore(t))
	client := newTestClient(t)

	raw, _ := json.Marshal(domain.InboundMessage{Content: "   \n\t ", Timestamp: time.Now().UnixMilli()})
	if err := svc.HandleInbound(context.Background(), client, raw); err != nil {
		t.Fatalf("blank input must be recovered locally: %v", err)
	}

	frames := drainFrames(t, client)
	if len(frames) != 1 || frames[0].Role != domain.RoleAssistant {
		t.Fatalf("expected one assistant frame, got %+v", frames)
	}
	if streamer.lastQuery != "" {
		t.Fatal("blank input must not reach upstream")
	}
}

func TestHandleInboundEchoesThenStreams(t *testing.T) {
	streamer := &fakeStreamer{
		events: []upstream.Event{
			{Kind: upstream.EventMessage, Answer: "Tokyo is...", MessageID: "m1", CreatedAt: 1705310000},
			{Kind: upstream.EventMessage, Answer: " a vibrant city.", MessageID: "m1", CreatedAt: 1705310001},
			{Kind: upstream.EventMessageEnd, ConversationID: "abc123", Latency: 1.2},
		},
	}
	conversations := memStore(t)
	svc := newService(streamer, conversations)
	client := newTestClient(t)

	raw, _ := json.Marshal(domain.InboundMessage{Content: "Tell me about Tokyo", Timestamp: time.Now().UnixMilli()})
	if err := svc.HandleInbound(context.Background(), client, raw); err != nil {
		t.Fatalf("handle inbound: %v", err)
	}

	frames := drainFrames(t, client)
	if len(frames) != 4 {
		t.Fatalf("expected echo + 2 fragments + terminal, got %d: %+v", len(frames), frames)
	}
	if frames[0].Role != domain.RoleUser || frames[0].Content != "Tell me about Tokyo" {
		t.Fatalf("expected user echo first, got %+v", frames[0])
	}
	if frames[3].ResponseTime != 1200 {
		t.Fatalf("expected terminal responseTime 1200, got %+v", frames[3])
	}

	// Continuity persisted for the user key.
	stored, err := conversations.Get(context.Background(), "user-1")
	if err != nil || stored != "abc123" {
		t.Fatalf("conversation id not persisted: %q err=%v", stored, err)
	}
}

func TestHandleConnectRestoresConversation(t *testing.T) {
	conversations := memStore(t)
	if err := conversations.Set(context.Background(), "user-1", "abc123"); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	streamer := &fakeStreamer{
		events: []upstream.Event{{Kind: upstream.EventMessageEnd, ConversationID: "abc123"}},
	}
	svc := newService(streamer, conversations)
	client := newTestClient(t)

	if err := svc.HandleConnect(context.Background(), client); err != nil {
		t.Fatalf("handle connect: %v", err)
	}

	frames := drainFrames(t, client)
	if len(frames) != 1 || frames[0].Role != domain.RoleSystem {
		t.Fatalf("expected system greeting, got %+v", frames)
	}

	raw, _ := json.Marshal(domain.InboundMessage{Content: "and the food?", Timestamp: time.Now().UnixMilli()})
	if err := svc.HandleInbound(context.Background(), client, raw); err != nil {
		t.Fatalf("handle inbound: %v", err)
	}

	if streamer.lastConversationID != "abc123" {
		t.Fatalf("restored conversation id not sent upstream, got %q", streamer.lastConversationID)
	}
}
