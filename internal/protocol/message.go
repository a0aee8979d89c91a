package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	TypeEvent = "event"
	TypeError = "error"
)

type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload"`
	Error   *ErrPayload     `json:"error,omitempty"`
}

type ErrPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func MustRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// NewEvent builds a server-pushed event message with a fresh id.
func NewEvent(op string, payload any) Message {
	return Message{
		ID:      "evt_" + uuid.NewString(),
		Type:    TypeEvent,
		Op:      op,
		Payload: MustRaw(payload),
	}
}

func NewError(op, code, message string) Message {
	return Message{
		ID:      "err_" + uuid.NewString(),
		Type:    TypeError,
		Op:      op,
		Payload: json.RawMessage(`{}`),
		Error:   &ErrPayload{Code: code, Message: message},
	}
}
