// Package sse relays completion streams to HTTP clients as Server-Sent Events.
package sse

// Event names written by the relay.
const (
	// EventRecord carries one normalized record as JSON.
	EventRecord = "record"

	// EventDone is the last event of a stream that ended without error.
	EventDone = "done"

	// EventError is the last event of a stream that failed after it started.
	EventError = "error"
)

// DoneEvent is the payload of EventDone.
type DoneEvent struct {
	RequestID string `json:"request_id"`
	// Finished is true when the upstream signaled completion, false when it
	// closed the stream without doing so.
	Finished bool `json:"finished"`
	Records  int  `json:"records"`
}
