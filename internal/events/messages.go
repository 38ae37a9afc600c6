package events

import (
	"encoding/json"
	"time"
)

// Op names the mutation that produced an event.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// EntryEvent is the lightweight message published after a mutation unit
// commits. It carries ids only; the worker fetches the current entry state
// from the database when it processes the event.
type EntryEvent struct {
	Op        Op        `json:"op"`
	EntryID   string    `json:"entryId"`
	OwnerID   string    `json:"ownerId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryEvent(op Op, entryID, ownerID string) *EntryEvent {
	return &EntryEvent{
		Op:        op,
		EntryID:   entryID,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

func (m *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var msg EntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
