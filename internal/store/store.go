// Package store persists the upstream conversation identifier per user
// key, so a returning client resumes its multi-turn exchange after a
// reconnect. It stores continuity state only, never message content.
package store

import (
	"context"
	"errors"
)

var (
	ErrInvalidStoreType = errors.New("store: invalid store type")
	ErrInvalidConfig    = errors.New("store: invalid store configuration")
)

// ConversationStore maps a user key to its upstream conversation id.
type ConversationStore interface {
	// Get returns the stored conversation id, or "" when none is known.
	Get(ctx context.Context, userKey string) (string, error)

	// Set records a conversation id. Empty ids are ignored so a stored
	// identifier is only ever replaced by a newer non-empty one.
	Set(ctx context.Context, userKey, conversationID string) error

	// Delete forgets the conversation for a user key.
	Delete(ctx context.Context, userKey string) error

	// Close releases any resources held by the store.
	Close() error
}
