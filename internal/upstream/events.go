package upstream

import "encoding/json"

// EventKind tags the closed set of stream event variants.
type EventKind int

const (
	// EventUnknown covers tags this client does not recognize; the relay
	// treats it as a no-op for forward compatibility.
	EventUnknown EventKind = iota
	EventMessage
	EventMessageEnd
	EventError
	EventPing
)

// Upstream event tags as they appear on the wire.
const (
	tagMessage    = "message"
	tagMessageEnd = "message_end"
	tagError      = "error"
	tagPing       = "ping"
)

// Event is one decoded upstream stream event. Only the fields belonging
// to the tagged variant are populated.
type Event struct {
	Kind EventKind

	// EventMessage
	Answer         string
	MessageID      string
	ConversationID string // also set on EventMessageEnd
	CreatedAt      int64  // upstream timestamp, seconds

	// EventMessageEnd
	Latency float64 // usage latency, seconds; 0 when absent

	// EventError
	Status  int
	Code    string
	Message string
}

// rawEvent mirrors the upstream JSON envelope across all tags.
type rawEvent struct {
	Event          string `json:"event"`
	Answer         string `json:"answer"`
	ID             string `json:"id"`
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	CreatedAt      int64  `json:"created_at"`
	Status         int    `json:"status"`
	Code           string `json:"code"`
	Message        string `json:"message"`
	Metadata       struct {
		Usage struct {
			Latency float64 `json:"latency"`
		} `json:"usage"`
	} `json:"metadata"`
}

// parseEvent decodes one JSON event payload into its tagged variant.
func parseEvent(data []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, err
	}

	switch raw.Event {
	case tagMessage:
		id := raw.MessageID
		if id == "" {
			id = raw.ID
		}
		return Event{
			Kind:           EventMessage,
			Answer:         raw.Answer,
			MessageID:      id,
			ConversationID: raw.ConversationID,
			CreatedAt:      raw.CreatedAt,
		}, nil
	case tagMessageEnd:
		return Event{
			Kind:           EventMessageEnd,
			ConversationID: raw.ConversationID,
			Latency:        raw.Metadata.Usage.Latency,
		}, nil
	case tagError:
		return Event{
			Kind:    EventError,
			Status:  raw.Status,
			Code:    raw.Code,
			Message: raw.Message,
		}, nil
	case tagPing:
		return Event{Kind: EventPing}, nil
	default:
		return Event{Kind: EventUnknown}, nil
	}
}
