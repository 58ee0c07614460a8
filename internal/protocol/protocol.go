// internal/protocol/protocol.go
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage marks frames that cannot be decoded or that lack an
// operation code. Callers log and drop these; they never end the listen loop.
var ErrMalformedMessage = errors.New("malformed message")

// OpCode identifies the operation of an inbound frame.
type OpCode string

const (
	OpPlayerUpdate OpCode = "playerUpdate"
	OpEvent        OpCode = "event"
	OpStats        OpCode = "stats"
	OpUnknown      OpCode = ""
)

// ParseOp maps a raw op string onto the closed OpCode set.
func ParseOp(s string) OpCode {
	switch OpCode(s) {
	case OpPlayerUpdate, OpEvent, OpStats:
		return OpCode(s)
	default:
		return OpUnknown
	}
}

// EventType identifies the nested event of an op=event frame.
type EventType string

const (
	EventWebsocketClosed EventType = "WebSocketClosedEvent"
	EventTrackStart      EventType = "TrackStartEvent"
	EventTrackEnd        EventType = "TrackEndEvent"
	EventTrackException  EventType = "TrackExceptionEvent"
	EventTrackStuck      EventType = "TrackStuckEvent"
	EventUnknown         EventType = ""
)

// ParseEventType maps a raw type string onto the closed EventType set.
func ParseEventType(s string) EventType {
	switch EventType(s) {
	case EventWebsocketClosed, EventTrackStart, EventTrackEnd,
		EventTrackException, EventTrackStuck:
		return EventType(s)
	default:
		return EventUnknown
	}
}

// Envelope is the parsed form of one inbound frame: the operation code plus
// the raw field set. Immutable once parsed.
type Envelope struct {
	Op     OpCode
	RawOp  string
	Fields map[string]any
}

// ParseEnvelope decodes a raw text frame. Pure function, no side effects.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	op, _ := fields["op"].(string)
	if op == "" {
		return nil, fmt.Errorf("%w: missing op field", ErrMalformedMessage)
	}

	return &Envelope{
		Op:     ParseOp(op),
		RawOp:  op,
		Fields: fields,
	}, nil
}

// String returns the named field as a string.
func (e *Envelope) String(key string) (string, bool) {
	s, ok := e.Fields[key].(string)
	return s, ok
}

// Int returns the named field as an int64. JSON numbers decode as float64.
func (e *Envelope) Int(key string) (int64, bool) {
	f, ok := e.Fields[key].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Bool returns the named field as a bool.
func (e *Envelope) Bool(key string) (bool, bool) {
	b, ok := e.Fields[key].(bool)
	return b, ok
}

// Object returns the named field as a nested object.
func (e *Envelope) Object(key string) (map[string]any, bool) {
	m, ok := e.Fields[key].(map[string]any)
	return m, ok
}

// EventType reads the nested type field of an op=event envelope.
func (e *Envelope) EventType() EventType {
	s, _ := e.String("type")
	return ParseEventType(s)
}
