package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Connection / conversation
	FieldClientID       = "client_id"
	FieldConversationID = "conversation_id"

	// Service
	FieldService = "service"
)
