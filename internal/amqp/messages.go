package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeOp names the mutation that produced a change notification.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpToggled ChangeOp = "toggled"
	OpDeleted ChangeOp = "deleted"
)

// EntryChangedMessage tells other processes that the entry set changed.
// It carries only the entry ID; consumers re-read the store.
type EntryChangedMessage struct {
	EntryID   string    `json:"entry_id"`
	Op        ChangeOp  `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryChangedMessage(entryID string, op ChangeOp) *EntryChangedMessage {
	return &EntryChangedMessage{
		EntryID:   entryID,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *EntryChangedMessage) Validate() error {
	if m.EntryID == "" {
		return fmt.Errorf("missing entry_id")
	}
	switch m.Op {
	case OpCreated, OpUpdated, OpToggled, OpDeleted:
		return nil
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryChangedMessageFromJSON decodes and validates a message body.
func EntryChangedMessageFromJSON(data []byte) (*EntryChangedMessage, error) {
	var msg EntryChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
