package domain

import "testing"

func TestSessionConversationIDGuardedOverwrite(t *testing.T) {
	s := NewSession("conn-1", "user-1")

	if got := s.ConversationID(); got != "" {
		t.Fatalf("fresh session should have no conversation id, got %q", got)
	}

	s.SetConversationID("abc123")
	if got := s.ConversationID(); got != "abc123" {
		t.Fatalf("got %q", got)
	}

	// Empty never overwrites.
	s.SetConversationID("")
	if got := s.ConversationID(); got != "abc123" {
		t.Fatalf("empty id overwrote stored one, got %q", got)
	}

	// A newer non-empty value replaces.
	s.SetConversationID("def456")
	if got := s.ConversationID(); got != "def456" {
		t.Fatalf("got %q", got)
	}
}

func TestChatMessageFrames(t *testing.T) {
	echo := NewUserEcho("hello")
	if echo.Role != RoleUser || echo.Content != "hello" || echo.ID == "" || echo.Timestamp == 0 {
		t.Fatalf("unexpected echo frame: %+v", echo)
	}

	frag := NewAssistantMessage("m1", "partial", 1705310000000)
	if frag.ID != "m1" || frag.Timestamp != 1705310000000 || frag.Role != RoleAssistant {
		t.Fatalf("unexpected fragment frame: %+v", frag)
	}

	// A fragment without an upstream id still gets one.
	anon := NewAssistantMessage("", "x", 1)
	if anon.ID == "" {
		t.Fatal("expected generated id")
	}
}
