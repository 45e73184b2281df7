// Package sse streams Server-Sent Events over an HTTP response.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Writer frames JSON payloads as SSE events and flushes each one out
// immediately. Writes are serialized; a closed writer rejects further
// events.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	started bool
	closed  bool
}

// NewWriter wraps a response writer. Headers are not written until Start,
// so the handler can still reject the request with a normal JSON error.
func NewWriter(w http.ResponseWriter) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{
		w:       w,
		flusher: flusher,
	}
}

// Start commits the response to event-stream mode: headers plus a 200 go
// out and are flushed. Calling Start again is a no-op.
func (s *Writer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
	s.flush()

	s.started = true
	return nil
}

// WriteEvent sends one event frame, "event: name" line included when a
// name is given, and flushes it.
func (s *Writer) WriteEvent(eventName string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sse: writer closed")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}

	frame := make([]byte, 0, len(eventName)+len(payload)+16)
	if eventName != "" {
		frame = append(frame, "event: "...)
		frame = append(frame, eventName...)
		frame = append(frame, '\n')
	}
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')

	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	s.flush()
	return nil
}

// WriteData sends a data-only frame with no event name.
func (s *Writer) WriteData(data any) error {
	return s.WriteEvent("", data)
}

// Close rejects all further writes.
func (s *Writer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// IsClosed reports whether Close has been called.
func (s *Writer) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// flush pushes buffered bytes to the client when the underlying writer
// supports it. Callers hold the mutex.
func (s *Writer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
