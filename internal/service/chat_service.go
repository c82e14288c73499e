package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/masaoka108/tour-guide-ai-chatbot/internal/domain"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/hub"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/relay"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/store"
	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/log"
)

const (
	connectedNotice = "Connected. How can I help you plan your trip?"
	malformedNotice = "An error occurred while processing your message. Please try again."
)

type chatService struct {
	relay         *relay.Relay
	conversations store.ConversationStore
}

func NewChatService(r *relay.Relay, conversations store.ConversationStore) ChatService {
	return &chatService{
		relay:         r,
		conversations: conversations,
	}
}

// HandleConnect restores any stored conversation for the client's user
// key and greets the new peer with a synthetic system frame.
func (s *chatService) HandleConnect(ctx context.Context, c *hub.Client) error {
	conversationID, err := s.conversations.Get(ctx, c.Session.UserKey)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldClientID, c.ID).Err(err).Msg("conversation lookup failed")
	}
	c.Session.SetConversationID(conversationID)

	return c.SendFrame(domain.NewSystemMessage(connectedNotice))
}

// HandleInbound routes one inbound payload. Malformed input is answered
// locally and never forwarded upstream; valid input is echoed back as a
// user frame before the upstream round trip begins.
func (s *chatService) HandleInbound(ctx context.Context, c *hub.Client, raw []byte) error {
	var in domain.InboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldClientID, c.ID).Err(err).Msg("malformed inbound frame")
		return c.SendFrame(domain.NewChatMessage(domain.RoleAssistant, malformedNotice))
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return c.SendFrame(domain.NewChatMessage(domain.RoleAssistant, malformedNotice))
	}

	if err := c.SendFrame(domain.NewUserEcho(content)); err != nil {
		return err
	}

	err := s.relay.Handle(ctx, c.Session, c, content)

	// Persist continuity regardless of how the turn ended: an error
	// never clears a previously captured conversation id.
	if id := c.Session.ConversationID(); id != "" {
		if serr := s.conversations.Set(ctx, c.Session.UserKey, id); serr != nil {
			l := log.Ctx(ctx)
			l.Warn().Str(log.FieldClientID, c.ID).Err(serr).Msg("conversation save failed")
		}
	}

	return err
}

func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldClientID, c.ID).Msg("client disconnected")
	return nil
}
