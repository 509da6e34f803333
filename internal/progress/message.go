// Package progress fans a transfer job's progress events out to connected
// dashboard clients over websockets. Job goroutines publish over Redis
// pub/sub; the Hub subscribes and rebroadcasts, decoupling the protocol
// engines (which know nothing of websockets) from the control plane.
package progress

import (
	"encoding/json"
	"time"
)

// EventType distinguishes the kinds of progress events a client receives.
type EventType string

const (
	// EventStateChanged reports a job lifecycle transition.
	EventStateChanged EventType = "state_changed"
	// EventBytesMoved reports an updated bytes-transferred counter.
	EventBytesMoved EventType = "bytes_moved"
	// EventError reports a terminal failure.
	EventError EventType = "error"
)

// Event is one progress update for a single job, published to Redis and
// rebroadcast to every websocket client subscribed to that job's channel.
type Event struct {
	JobID      string    `json:"job_id"`
	Type       EventType `json:"type"`
	State      string    `json:"state,omitempty"`
	BytesMoved uint64    `json:"bytes_moved,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToJSON marshals the event for transport over Redis or a websocket.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON parses an Event previously produced by ToJSON.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
