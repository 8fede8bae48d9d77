package dataType

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageKind is the closed set of wire message types. Unknown kinds are a
// decode failure, not a pass-through.
type MessageKind string

const (
	KindChat MessageKind = "CHAT"
	KindPing MessageKind = "PING"
)

// ParseKind maps a wire tag to a MessageKind.
func ParseKind(s string) (MessageKind, error) {
	switch MessageKind(s) {
	case KindChat:
		return KindChat, nil
	case KindPing:
		return KindPing, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Message is one unit of dissemination, one per UDP datagram.
// Messages are treated as immutable after creation; forwarding produces a
// fresh value via Forwarded.
type Message struct {
	ID   string      `json:"id"`   // UUID for deduplication
	TS   float64     `json:"ts"`   // Creation time, unix seconds
	TTL  int         `json:"ttl"`  // Remaining hop budget
	Kind MessageKind `json:"kind"` // CHAT or PING
	Src  string      `json:"src"`  // Originating node label, host:port
	Dst  string      `json:"dst"`  // Target label, empty for broadcast
	Body string      `json:"body"`
}

// DecodeError reports malformed or incomplete wire data. It never escapes
// the relay boundary; the datagram is dropped and the node keeps running.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode message: " + e.Reason
}

func decodeErrf(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// Encode serializes the message to compact JSON for UDP transmission.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// wireMessage mirrors Message with pointer fields so that absent keys can be
// told apart from zero values.
type wireMessage struct {
	ID   *string  `json:"id"`
	TS   *float64 `json:"ts"`
	TTL  *int     `json:"ttl"`
	Kind *string  `json:"kind"`
	Src  *string  `json:"src"`
	Dst  *string  `json:"dst"`
	Body *string  `json:"body"`
}

// DecodeMessage parses and validates one datagram. Any structural failure
// yields *DecodeError. A ttl <= 0 is accepted here; the relay decides what
// to do with it.
func DecodeMessage(buf []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(buf, &w); err != nil {
		return Message{}, decodeErrf("invalid json: %v", err)
	}

	switch {
	case w.ID == nil:
		return Message{}, decodeErrf("missing field id")
	case w.TS == nil:
		return Message{}, decodeErrf("missing field ts")
	case w.TTL == nil:
		return Message{}, decodeErrf("missing field ttl")
	case w.Kind == nil:
		return Message{}, decodeErrf("missing field kind")
	case w.Src == nil:
		return Message{}, decodeErrf("missing field src")
	case w.Dst == nil:
		return Message{}, decodeErrf("missing field dst")
	case w.Body == nil:
		return Message{}, decodeErrf("missing field body")
	}

	if *w.ID == "" {
		return Message{}, decodeErrf("id must be non-empty")
	}
	if *w.Src == "" {
		return Message{}, decodeErrf("src must be non-empty")
	}
	kind, err := ParseKind(*w.Kind)
	if err != nil {
		return Message{}, decodeErrf("%v", err)
	}

	return Message{
		ID:   *w.ID,
		TS:   *w.TS,
		TTL:  *w.TTL,
		Kind: kind,
		Src:  *w.Src,
		Dst:  *w.Dst,
		Body: *w.Body,
	}, nil
}

// IsBroadcast reports whether the message has no specific destination.
func (m Message) IsBroadcast() bool {
	return m.Dst == ""
}

// Forwarded returns the copy a relay hands to its peers: every field kept,
// ttl decremented by one.
func (m Message) Forwarded() Message {
	m.TTL--
	return m
}

// NewChat creates a fresh chat message originated at src. dst is empty for
// broadcast or a peer label for addressed delivery.
func NewChat(src, dst, body string, ttl int) Message {
	return Message{
		ID:   uuid.New().String(),
		TS:   float64(time.Now().UnixNano()) / 1e9,
		TTL:  ttl,
		Kind: KindChat,
		Src:  src,
		Dst:  dst,
		Body: body,
	}
}

// NewPing creates a liveness probe. Pings are always broadcast and carry no
// body.
func NewPing(src string, ttl int) Message {
	return Message{
		ID:   uuid.New().String(),
		TS:   float64(time.Now().UnixNano()) / 1e9,
		TTL:  ttl,
		Kind: KindPing,
		Src:  src,
	}
}
