package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sudosos-ledger/internal/domain/money"
)

// Type names a ledger mutation
type Type string

const (
	TypeTransferCreated      Type = "TRANSFER_CREATED"
	TypeTransactionCreated   Type = "TRANSACTION_CREATED"
	TypeInvoiceCreated       Type = "INVOICE_CREATED"
	TypeInvoiceStateChanged  Type = "INVOICE_STATE_CHANGED"
	TypeWriteOffCreated      Type = "WRITE_OFF_CREATED"
	TypePayoutCreated        Type = "PAYOUT_REQUEST_CREATED"
	TypePayoutStatusChanged  Type = "PAYOUT_REQUEST_STATUS_CHANGED"
	TypeAccountDeactivation  Type = "ACCOUNT_DEACTIVATION_REQUESTED"
	TypeBalancesRecalculated Type = "BALANCES_RECALCULATED"
)

// Notifiable reports whether members should be mailed about this event
func (t Type) Notifiable() bool {
	switch t {
	case TypeInvoiceCreated, TypeInvoiceStateChanged, TypePayoutStatusChanged, TypeWriteOffCreated:
		return true
	}
	return false
}

// Event describes a committed ledger mutation. It is written to the outbox in
// the same database transaction as the mutation and published afterwards.
type Event struct {
	ID            uuid.UUID    `json:"id" bson:"_id"`
	Type          Type         `json:"type" bson:"type"`
	AggregateID   int64        `json:"aggregate_id" bson:"aggregate_id"`
	AccountIDs    []int64      `json:"account_ids" bson:"account_ids"`
	Amount        *money.Money `json:"amount,omitempty" bson:"amount,omitempty"`
	State         string       `json:"state,omitempty" bson:"state,omitempty"`
	Description   string       `json:"description,omitempty" bson:"description,omitempty"`
	CorrelationID string       `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at" bson:"occurred_at"`
	PublishedAt   *time.Time   `json:"published_at,omitempty" bson:"published_at,omitempty"`
}

// New creates an event with a fresh id
func New(eventType Type, aggregateID int64, accountIDs ...int64) *Event {
	return &Event{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		AccountIDs:  accountIDs,
		OccurredAt:  time.Now().UTC(),
	}
}

// WithAmount attaches the moved amount
func (e *Event) WithAmount(amount money.Money) *Event {
	e.Amount = &amount
	return e
}

// WithState attaches the resulting state
func (e *Event) WithState(state string) *Event {
	e.State = state
	return e
}

// WithDescription attaches a human readable description
func (e *Event) WithDescription(description string) *Event {
	e.Description = description
	return e
}

// Repository is the activity log of published events
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*Event, error)
	CountByAccount(ctx context.Context, accountID int64) (int64, error)
}

// ErrEventNotFound indicates missing event
type ErrEventNotFound struct {
	EventID uuid.UUID
}

func (e ErrEventNotFound) Error() string {
	return "event not found: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrEventNotFound
func (e ErrEventNotFound) Is(target error) bool {
	t, ok := target.(ErrEventNotFound)
	if !ok {
		return false
	}
	// If the target EventID is empty, consider it a match for any ErrEventNotFound
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}

// ErrDuplicateEvent indicates an event that was already stored
type ErrDuplicateEvent struct {
	EventID uuid.UUID
}

func (e ErrDuplicateEvent) Error() string {
	return "duplicate event: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEvent
func (e ErrDuplicateEvent) Is(target error) bool {
	t, ok := target.(ErrDuplicateEvent)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}
