package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMessage_Decode(t *testing.T) {
	raw := []byte(`{"id":"evt_1","type":"event","op":"prompt.injected","payload":{"target":"claude:0.0"}}`)
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if msg.Op != "prompt.injected" || msg.Type != TypeEvent {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestNewEvent_EncodesPayload(t *testing.T) {
	msg := NewEvent("watcher.started", map[string]string{"target": "claude:0.0"})
	if !strings.HasPrefix(msg.ID, "evt_") || msg.Type != TypeEvent {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	if string(msg.Payload) != `{"target":"claude:0.0"}` {
		t.Fatalf("unexpected payload: %s", msg.Payload)
	}
}

func TestNewError_CarriesCode(t *testing.T) {
	msg := NewError("ws.subscribe", "BAD_TOPIC", "unknown topic")
	if msg.Error == nil || msg.Error.Code != "BAD_TOPIC" || msg.Type != TypeError {
		t.Fatalf("unexpected error message: %+v", msg)
	}
}
