package amqp

import (
	"time"

	json "github.com/goccy/go-json"
)

// WorkLogSettledMessage announces a freshly settled timer session.
// It carries only the work log id; the archive worker fetches the
// full row from the database, so a stale message can never overwrite
// newer data.
type WorkLogSettledMessage struct {
	WorkLogID int64     `json:"work_log_id"`
	PersonID  int64     `json:"person_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewWorkLogSettledMessage creates a settlement announcement.
func NewWorkLogSettledMessage(workLogID, personID int64) *WorkLogSettledMessage {
	return &WorkLogSettledMessage{
		WorkLogID: workLogID,
		PersonID:  personID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *WorkLogSettledMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// WorkLogSettledMessageFromJSON parses a message from JSON bytes.
func WorkLogSettledMessageFromJSON(data []byte) (*WorkLogSettledMessage, error) {
	var msg WorkLogSettledMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
