package upstream

import "fmt"

// APIError is a structured upstream failure: a non-2xx initial response
// or a mid-stream error event. The raw upstream payload never reaches
// the client; UserMessage maps it to a user-safe string.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

// User-safe messages keyed by upstream status and code.
const (
	msgConversationNotFound = "This conversation could not be found. Please start a new chat."
	msgInvalidParam         = "Your message could not be processed. Please try rephrasing it."
	msgAppUnavailable       = "The assistant is temporarily unavailable. Please try again later."
	msgProviderNotReady     = "The assistant is not fully configured yet. Please try again later."
	msgQuotaExceeded        = "The assistant has reached its usage limit. Please try again later."
	msgModelNotSupported    = "The requested model is not available right now. Please try again later."
	msgCompletionFailed     = "The assistant could not complete a response. Please try again."
	msgGenericFailure       = "Sorry, I encountered an error while processing your request. Please try again."
)

// UserMessage maps the failure to a localized, user-safe string.
func (e *APIError) UserMessage() string {
	if e.Status == 404 {
		return msgConversationNotFound
	}
	if e.Status == 400 {
		switch e.Code {
		case "invalid_param":
			return msgInvalidParam
		case "app_unavailable":
			return msgAppUnavailable
		case "provider_not_initialize":
			return msgProviderNotReady
		case "provider_quota_exceeded":
			return msgQuotaExceeded
		case "model_currently_not_support":
			return msgModelNotSupported
		case "completion_request_error":
			return msgCompletionFailed
		}
	}
	return msgGenericFailure
}

// UserFacingMessage maps any relay-level failure to a user-safe string.
// Non-API failures (network errors, timeouts, decoder faults) fall back
// to the generic message.
func UserFacingMessage(err error) string {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.UserMessage()
	}
	return msgGenericFailure
}
