package domain

import (
	"sync"
	"time"
)

// Session is the per-connection server-side state: liveness for the
// heartbeat sweep and the upstream conversation identifier that carries
// multi-turn context. Created on accept, released on close.
type Session struct {
	ID             string
	UserKey        string
	CreatedAt      time.Time
	LastActiveAt   time.Time
	conversationID string
	mu             sync.RWMutex

	// turnMu serializes relay invocations on this connection: a second
	// user message queues behind the in-flight upstream call instead of
	// interleaving its frames with the first.
	turnMu sync.Mutex
}

func NewSession(id, userKey string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		UserKey:      userKey,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// ConversationID returns the current upstream conversation identifier,
// empty until the first completed turn.
func (s *Session) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// SetConversationID records a conversation identifier from upstream.
// An empty value never overwrites a previously captured one.
func (s *Session) SetConversationID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = id
}

// BeginTurn acquires the per-connection turn lock.
func (s *Session) BeginTurn() {
	s.turnMu.Lock()
}

// EndTurn releases the per-connection turn lock.
func (s *Session) EndTurn() {
	s.turnMu.Unlock()
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
