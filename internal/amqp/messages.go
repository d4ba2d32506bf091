package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Action is what happened to a record.
type Action string

const (
	ActionCreated Action = "created"
	ActionDeleted Action = "deleted"
)

// RecordEvent announces a change to one stored record. Record carries the
// row as stored for creations and is empty for deletions.
type RecordEvent struct {
	Action     Action          `json:"action"`
	Collection string          `json:"collection"`
	UserID     string          `json:"user_id"`
	RecordID   string          `json:"record_id"`
	Record     json.RawMessage `json:"record,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

var ErrInvalidEvent = errors.New("invalid record event")

// NewRecordEvent builds an event stamped with the current time.
func NewRecordEvent(action Action, collection, userID, recordID string, record json.RawMessage) *RecordEvent {
	return &RecordEvent{
		Action:     action,
		Collection: collection,
		UserID:     userID,
		RecordID:   recordID,
		Record:     record,
		Timestamp:  time.Now(),
	}
}

func (m *RecordEvent) Validate() error {
	switch m.Action {
	case ActionCreated, ActionDeleted:
	default:
		return ErrInvalidEvent
	}
	if m.Collection == "" || m.UserID == "" || m.RecordID == "" {
		return ErrInvalidEvent
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordEventFromJSON decodes and validates a message body.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
