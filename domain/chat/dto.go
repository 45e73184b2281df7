package chat

// Message is a single turn in the client-supplied conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat completion request body. System is an optional
// system prompt; when omitted a built-in default is used.
type Request struct {
	Messages []Message `json:"messages"`
	System   string    `json:"system,omitempty"`
}

// Response is a completed chat turn.
type Response struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}
