package upstream

import (
	"bytes"

	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/log"
)

// dataPrefix marks SSE lines that carry one JSON event each.
var dataPrefix = []byte("data:")

// Decoder turns a chunked text/event-stream body into discrete Events.
// Chunks may split a line at any byte: the decoder buffers the trailing
// incomplete fragment and only emits events from complete lines, so an
// event is never parsed from a truncated payload.
//
// A line that fails to parse as JSON is logged and skipped; upstream
// noise on one line must not abort the whole stream.
type Decoder struct {
	rest []byte
}

// NewDecoder returns a Decoder with an empty carry-over buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode consumes one chunk and returns the events completed by it.
func (d *Decoder) Decode(chunk []byte) []Event {
	d.rest = append(d.rest, chunk...)

	var events []Event
	for {
		i := bytes.IndexByte(d.rest, '\n')
		if i < 0 {
			break
		}
		line := d.rest[:i]
		d.rest = d.rest[i+1:]

		if ev, ok := d.decodeLine(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Flush decodes whatever remains in the buffer as a final line. Called
// once the body is exhausted; upstream normally ends with a newline so
// this is usually a no-op.
func (d *Decoder) Flush() []Event {
	line := d.rest
	d.rest = nil
	if ev, ok := d.decodeLine(line); ok {
		return []Event{ev}
	}
	return nil
}

func (d *Decoder) decodeLine(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}

	payload := bytes.TrimSpace(bytes.TrimPrefix(line, dataPrefix))
	if len(payload) == 0 {
		return Event{}, false
	}

	ev, err := parseEvent(payload)
	if err != nil {
		sample := payload
		if len(sample) > 256 {
			sample = sample[:256]
		}
		l := log.L()
		l.Warn().Err(err).Bytes("line", sample).Msg("skipping undecodable stream line")
		return Event{}, false
	}
	return ev, true
}
