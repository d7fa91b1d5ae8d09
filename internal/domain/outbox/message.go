package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// Message stores a ledger event for reliable publishing
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	EventType     event.Type          `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(e *event.Event) (*Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   e.ID,
		EventType: e.Type,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}, nil
}

// IncrementAttempts mirrors a failed publish attempt on the in-memory copy
func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

// RetriesExhausted reports whether the message used up its publish attempts
func (m *Message) RetriesExhausted(maxAttempts int) bool {
	return m.Attempts >= maxAttempts
}

// GetEvent extracts the ledger event from the payload
func (m *Message) GetEvent() (*event.Event, error) {
	var e event.Event
	if err := json.Unmarshal(m.Payload, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
