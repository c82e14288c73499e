package service

import (
	"context"

	"github.com/masaoka108/tour-guide-ai-chatbot/internal/hub"
)

type ChatService interface {
	HandleConnect(ctx context.Context, client *hub.Client) error
	HandleInbound(ctx context.Context, client *hub.Client, raw []byte) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
}
