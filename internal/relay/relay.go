// Package relay turns one user utterance into a stream of outbound
// frames by driving a single streaming upstream call per invocation.
package relay

import (
	"context"
	"strings"
	"time"

	"github.com/masaoka108/tour-guide-ai-chatbot/internal/domain"
	"github.com/masaoka108/tour-guide-ai-chatbot/internal/upstream"
	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/log"
)

// FrameSender delivers outbound frames to one peer. Implemented by
// hub.Client.
type FrameSender interface {
	SendFrame(msg *domain.ChatMessage) error
}

// Relay owns the upstream call for each inbound user message.
type Relay struct {
	upstream upstream.Streamer
	timeout  time.Duration
}

func New(streamer upstream.Streamer, timeout time.Duration) *Relay {
	return &Relay{
		upstream: streamer,
		timeout:  timeout,
	}
}

// Handle runs one relay invocation. Invocations on the same session are
// serialized: a second message queues behind the in-flight turn rather
// than interleaving its frames.
//
// The peer always receives exactly one terminal response: either the
// completed-answer frame (with responseTime when upstream reported
// latency) or a single mapped error frame.
func (r *Relay) Handle(ctx context.Context, session *domain.Session, sender FrameSender, content string) error {
	session.BeginTurn()
	defer session.EndTurn()

	ctx, cancel := upstream.WithTimeout(ctx, r.timeout)
	defer cancel()

	events, errs := r.upstream.StreamChat(ctx, content, session.ConversationID())

	var answer strings.Builder
	var latency float64

	for ev := range events {
		switch ev.Kind {
		case upstream.EventMessage:
			answer.WriteString(ev.Answer)
			session.SetConversationID(ev.ConversationID)
			sender.SendFrame(domain.NewAssistantMessage(ev.MessageID, ev.Answer, toMillis(ev.CreatedAt)))

		case upstream.EventMessageEnd:
			session.SetConversationID(ev.ConversationID)
			latency = ev.Latency

		case upstream.EventPing, upstream.EventUnknown:
			// keep the read loop alive
		}
	}

	if err := <-errs; err != nil {
		l := log.L()
		l.Error().
			Str(log.FieldClientID, session.ID).
			Str(log.FieldConversationID, session.ConversationID()).
			Err(err).
			Msg("relay invocation failed")
		sender.SendFrame(domain.NewChatMessage(domain.RoleAssistant, upstream.UserFacingMessage(err)))
		return err
	}

	terminal := domain.NewChatMessage(domain.RoleAssistant, answer.String())
	if latency > 0 {
		terminal.ResponseTime = int64(latency * 1000)
	}
	sender.SendFrame(terminal)
	return nil
}

// toMillis converts an upstream second-precision timestamp to epoch
// milliseconds, substituting the current time when upstream sent none.
func toMillis(seconds int64) int64 {
	if seconds <= 0 {
		return time.Now().UnixMilli()
	}
	return seconds * 1000
}
