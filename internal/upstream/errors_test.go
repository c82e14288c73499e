package upstream

import (
	"errors"
	"testing"
)

func TestAPIErrorUserMessageMapping(t *testing.T) {
	cases := []struct {
		name string
		err  *APIError
		want string
	}{
		{"conversation not found", &APIError{Status: 404}, msgConversationNotFound},
		{"invalid param", &APIError{Status: 400, Code: "invalid_param"}, msgInvalidParam},
		{"app unavailable", &APIError{Status: 400, Code: "app_unavailable"}, msgAppUnavailable},
		{"provider not initialized", &APIError{Status: 400, Code: "provider_not_initialize"}, msgProviderNotReady},
		{"quota exceeded", &APIError{Status: 400, Code: "provider_quota_exceeded"}, msgQuotaExceeded},
		{"model not supported", &APIError{Status: 400, Code: "model_currently_not_support"}, msgModelNotSupported},
		{"completion failed", &APIError{Status: 400, Code: "completion_request_error"}, msgCompletionFailed},
		{"unknown 400 code", &APIError{Status: 400, Code: "something_else"}, msgGenericFailure},
		{"unknown status", &APIError{Status: 500, Code: "internal"}, msgGenericFailure},
	}

	for _, tc := range cases {
		if got := tc.err.UserMessage(); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestUserFacingMessageFallsBackForPlainErrors(t *testing.T) {
	if got := UserFacingMessage(errors.New("connection refused")); got != msgGenericFailure {
		t.Fatalf("got %q", got)
	}
	if got := UserFacingMessage(&APIError{Status: 404}); got != msgConversationNotFound {
		t.Fatalf("got %q", got)
	}
}
