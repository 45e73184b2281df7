package sse

import (
	"encoding/json"
	"testing"
)

// Clients dispatch on the "type" field, so the exact JSON shape of each
// event is the contract under test.
func TestEventWireShapes(t *testing.T) {
	tests := []struct {
		name  string
		event any
		want  string
	}{
		{
			name:  "meta",
			event: NewMetaEvent("google/gemma-3-4b"),
			want:  `{"type":"meta","model":"google/gemma-3-4b"}`,
		},
		{
			name:  "token",
			event: NewTokenEvent("hello"),
			want:  `{"type":"token","token":"hello"}`,
		},
		{
			name:  "token keeps whitespace",
			event: NewTokenEvent("\n"),
			want:  `{"type":"token","token":"\n"}`,
		},
		{
			name:  "error",
			event: NewErrorEvent("backend timeout after 30s"),
			want:  `{"type":"error","error":"backend timeout after 30s"}`,
		},
		{
			name:  "done carries the assembled reply",
			event: NewDoneEvent("full reply text", "google/gemma-3-4b"),
			want:  `{"type":"done","reply":"full reply text","model":"google/gemma-3-4b"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("json = %s, want %s", b, tt.want)
			}
		})
	}
}

func TestEventTypeValues(t *testing.T) {
	pairs := map[ChatEventType]string{
		EventMeta:  "meta",
		EventToken: "token",
		EventError: "error",
		EventDone:  "done",
	}
	for c, want := range pairs {
		if string(c) != want {
			t.Errorf("event type %q, want %q", c, want)
		}
	}
}

func TestNewTokenEventPreservesUnicode(t *testing.T) {
	ev := NewTokenEvent("你好世界")
	if ev.Token != "你好世界" {
		t.Errorf("Token = %q, want the original text", ev.Token)
	}
	if ev.Type != string(EventToken) {
		t.Errorf("Type = %q, want %q", ev.Type, EventToken)
	}
}
