package sse

// ChatEventType discriminates the events a chat stream can carry.
type ChatEventType string

const (
	// EventMeta is the first event, naming the model that will answer.
	EventMeta ChatEventType = "meta"

	// EventToken carries one text fragment of the reply.
	EventToken ChatEventType = "token"

	// EventError reports a failure that ended the stream early.
	EventError ChatEventType = "error"

	// EventDone closes the stream with the assembled reply.
	EventDone ChatEventType = "done"
)

// MetaEvent is the first event in a chat stream.
type MetaEvent struct {
	Type  string `json:"type"`
	Model string `json:"model"`
}

// NewMetaEvent announces which model will answer.
func NewMetaEvent(model string) MetaEvent {
	return MetaEvent{
		Type:  string(EventMeta),
		Model: model,
	}
}

// TokenEvent carries one streamed text fragment.
type TokenEvent struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NewTokenEvent wraps a text fragment in a token event.
func NewTokenEvent(token string) TokenEvent {
	return TokenEvent{
		Type:  string(EventToken),
		Token: token,
	}
}

// ErrorEvent reports a mid-stream failure to the client.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// NewErrorEvent wraps an error message in an error event.
func NewErrorEvent(errMsg string) ErrorEvent {
	return ErrorEvent{
		Type:  string(EventError),
		Error: errMsg,
	}
}

// DoneEvent is the final event in a chat stream. Reply carries the full
// assembled text so clients need not concatenate token events themselves.
type DoneEvent struct {
	Type  string `json:"type"`
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// NewDoneEvent builds the terminal event for a stream.
func NewDoneEvent(reply, model string) DoneEvent {
	return DoneEvent{
		Type:  string(EventDone),
		Reply: reply,
		Model: model,
	}
}
