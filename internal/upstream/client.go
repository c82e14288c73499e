package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Streamer issues one streaming chat completion per call. Implemented by
// Client; the relay depends on this interface so tests can fake upstream.
type Streamer interface {
	StreamChat(ctx context.Context, query, conversationID string) (<-chan Event, <-chan error)
}

// DefaultSystemPrompt is the assistant persona sent with every request
// unless configuration overrides it.
const DefaultSystemPrompt = `You are an AI Tourism Guide, an expert in travel recommendations, destinations, and trip planning. Your role is to:
1. Provide detailed, personalized travel recommendations
2. Share cultural insights and local customs
3. Suggest itineraries and activities
4. Offer practical travel tips and advice
5. Help with travel planning and logistics

Always maintain a friendly, professional tone and provide specific, actionable advice.`

// Client talks to the Dify chat-messages API.
type Client struct {
	BaseURL string
	APIKey  string
	// User is the fixed caller identity sent on every request.
	User string
	// SystemPrompt is carried in the request inputs and shapes the
	// assistant's persona.
	SystemPrompt string
	Client       *http.Client
}

type chatRequest struct {
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id"`
	User           string         `json:"user"`
	Inputs         map[string]any `json:"inputs"`
}

// errorBody is the JSON shape of a non-2xx initial response.
type errorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewClient(baseURL, apiKey, user, systemPrompt string) *Client {
	if baseURL == "" {
		baseURL = "https://api.dify.ai/v1"
	}
	if user == "" {
		user = "tourist"
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Client{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		User:         user,
		SystemPrompt: systemPrompt,
		Client:       &http.Client{},
	}
}

// StreamChat posts one streaming request and decodes the SSE body into
// events. Both channels are closed when the stream ends; at most one
// error is sent. The context bounds the whole call, including the read
// of the streaming body.
func (c *Client) StreamChat(ctx context.Context, query, conversationID string) (<-chan Event, <-chan error) {
	events := make(chan Event, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		if c.Client == nil {
			errs <- errors.New("upstream: http client is nil")
			return
		}
		if strings.TrimSpace(c.APIKey) == "" {
			errs <- errors.New("upstream: api key is required")
			return
		}

		inputs := map[string]any{}
		if c.SystemPrompt != "" {
			inputs["system_prompt"] = c.SystemPrompt
		}

		body := chatRequest{
			Query:          query,
			ResponseMode:   "streaming",
			ConversationID: conversationID,
			User:           c.User,
			Inputs:         inputs,
		}

		b, err := json.Marshal(body)
		if err != nil {
			errs <- err
			return
		}

		url := fmt.Sprintf("%s/chat-messages", strings.TrimRight(c.BaseURL, "/"))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.APIKey)

		resp, err := c.Client.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errs <- readAPIError(resp)
			return
		}

		dec := NewDecoder()
		buf := make([]byte, 4096)
		for {
			n, rerr := resp.Body.Read(buf)
			if n > 0 {
				for _, ev := range dec.Decode(buf[:n]) {
					if ev.Kind == EventError {
						errs <- &APIError{Status: ev.Status, Code: ev.Code, Message: ev.Message}
						return
					}
					events <- ev
				}
			}
			if rerr == io.EOF {
				for _, ev := range dec.Flush() {
					if ev.Kind == EventError {
						errs <- &APIError{Status: ev.Status, Code: ev.Code, Message: ev.Message}
						return
					}
					events <- ev
				}
				return
			}
			if rerr != nil {
				errs <- rerr
				return
			}
		}
	}()

	return events, errs
}

// readAPIError parses a non-2xx initial response into an APIError.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && (body.Code != "" || body.Message != "") {
		status := body.Status
		if status == 0 {
			status = resp.StatusCode
		}
		return &APIError{Status: status, Code: body.Code, Message: body.Message}
	}
	return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}

// WithTimeout derives the per-request context for one streaming call.
// A zero timeout means the underlying transport's limits apply.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
