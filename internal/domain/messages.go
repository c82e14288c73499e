package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message roles on outbound frames.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// InboundMessage is the client -> server frame. Timestamp is the client
// send time and is advisory only.
type InboundMessage struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ChatMessage is the server -> client frame. ResponseTime is present only
// on the terminal frame of a completed upstream turn, in milliseconds.
type ChatMessage struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	Role         string `json:"role"`
	Timestamp    int64  `json:"timestamp"`
	ResponseTime int64  `json:"responseTime,omitempty"`
}

// NewChatMessage builds a frame stamped with the current time.
func NewChatMessage(role, content string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.New().String(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewUserEcho is the immediate echo of an inbound user message, sent back
// before the upstream round trip so the UI can render it right away.
func NewUserEcho(content string) *ChatMessage {
	return NewChatMessage(RoleUser, content)
}

// NewAssistantMessage builds an assistant frame with an explicit timestamp
// (milliseconds), used for upstream fragments that carry their own time.
func NewAssistantMessage(id, content string, timestampMs int64) *ChatMessage {
	if id == "" {
		id = uuid.New().String()
	}
	return &ChatMessage{
		ID:        id,
		Content:   content,
		Role:      RoleAssistant,
		Timestamp: timestampMs,
	}
}

// NewSystemMessage builds a system-role frame (connect notices and the like).
func NewSystemMessage(content string) *ChatMessage {
	return NewChatMessage(RoleSystem, content)
}
