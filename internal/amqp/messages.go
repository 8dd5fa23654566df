package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"saralfin/internal/core"
)

// EventType names a store mutation.
type EventType string

const (
	EventCreated   EventType = "created"
	EventDeleted   EventType = "deleted"
	EventBudgetSet EventType = "budget_set"
)

// TransactionEvent describes one successful store mutation. Created events
// carry the full record so consumers never read back from the store.
type TransactionEvent struct {
	Event       EventType         `json:"event"`
	ID          int64             `json:"id,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Budget      *core.Amount      `json:"budget,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewCreatedEvent(t core.Transaction) *TransactionEvent {
	return &TransactionEvent{Event: EventCreated, ID: t.ID, Transaction: &t, Timestamp: time.Now()}
}

func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{Event: EventDeleted, ID: id, Timestamp: time.Now()}
}

func NewBudgetSetEvent(amount core.Amount) *TransactionEvent {
	return &TransactionEvent{Event: EventBudgetSet, Budget: &amount, Timestamp: time.Now()}
}

// Validate checks that the payload matches the event type.
func (m *TransactionEvent) Validate() error {
	switch m.Event {
	case EventCreated:
		if m.Transaction == nil {
			return errors.New("created event without transaction")
		}
		if m.Transaction.ID != m.ID {
			return fmt.Errorf("created event id %d does not match transaction id %d", m.ID, m.Transaction.ID)
		}
	case EventDeleted:
		if m.ID == 0 {
			return errors.New("deleted event without id")
		}
	case EventBudgetSet:
		if m.Budget == nil {
			return errors.New("budget event without amount")
		}
	default:
		return fmt.Errorf("unknown event type %q", m.Event)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates a message body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
