package progress

import (
	"testing"
	"time"
)

func TestEventToJSONRoundTrip(t *testing.T) {
	event := &Event{
		JobID:      "job-1",
		Type:       EventBytesMoved,
		BytesMoved: 4096,
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	got, err := EventFromJSON(data)
	if err != nil {
		t.Fatalf("EventFromJSON failed: %v", err)
	}

	if got.JobID != event.JobID {
		t.Errorf("JobID = %q, want %q", got.JobID, event.JobID)
	}
	if got.Type != event.Type {
		t.Errorf("Type = %q, want %q", got.Type, event.Type)
	}
	if got.BytesMoved != event.BytesMoved {
		t.Errorf("BytesMoved = %d, want %d", got.BytesMoved, event.BytesMoved)
	}
	if !got.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, event.Timestamp)
	}
}

func TestEventFromJSONMalformed(t *testing.T) {
	if _, err := EventFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
