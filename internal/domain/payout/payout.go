package payout

import (
	"time"

	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
	"github.com/sudosos-ledger/internal/domain/transfer"
)

// State is the status of a payout request
type State string

const (
	StateCreated   State = "CREATED"
	StateApproved  State = "APPROVED"
	StateDenied    State = "DENIED"
	StateCancelled State = "CANCELLED"
)

// Valid reports whether the state is a known payout state
func (s State) Valid() bool {
	switch s {
	case StateCreated, StateApproved, StateDenied, StateCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further status may follow
func (s State) IsTerminal() bool {
	return s == StateApproved || s == StateDenied || s == StateCancelled
}

// PayoutRequest is a member's request to withdraw part of their balance
type PayoutRequest struct {
	ID                int64                `json:"id"`
	RequestedByID     int64                `json:"requested_by_id"`
	ApprovedByID      *int64               `json:"approved_by_id,omitempty"`
	Amount            money.Money          `json:"amount"`
	BankAccountNumber string               `json:"bank_account_number"`
	BankAccountName   string               `json:"bank_account_name"`
	Statuses          []*Status            `json:"statuses"`
	Transfers         []*transfer.Transfer `json:"transfers,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Status is one entry of the payout status history
type Status struct {
	ID              int64     `json:"id"`
	PayoutRequestID int64     `json:"payout_request_id"`
	State           State     `json:"state"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewPayoutRequest validates and builds an unsaved request
func NewPayoutRequest(requestedByID int64, amount money.Money, bankAccountNumber, bankAccountName string) (*PayoutRequest, error) {
	if requestedByID <= 0 {
		return nil, shared.NewValidationError("requested_by_id", "is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("amount", "must be positive")
	}
	if bankAccountNumber == "" {
		return nil, shared.NewValidationError("bank_account_number", "is required")
	}
	if bankAccountName == "" {
		return nil, shared.NewValidationError("bank_account_name", "is required")
	}
	return &PayoutRequest{
		RequestedByID:     requestedByID,
		Amount:            amount,
		BankAccountNumber: bankAccountNumber,
		BankAccountName:   bankAccountName,
	}, nil
}

// State returns the current state: the latest status, ties broken by id
func (p *PayoutRequest) State() State {
	var current *Status
	for _, s := range p.Statuses {
		if current == nil || s.CreatedAt.After(current.CreatedAt) ||
			(s.CreatedAt.Equal(current.CreatedAt) && s.ID > current.ID) {
			current = s
		}
	}
	if current == nil {
		return StateCreated
	}
	return current.State
}

// CheckTransition validates moving to next on behalf of actorID.
// Privilege checks for APPROVED and DENIED happen before this point.
func (p *PayoutRequest) CheckTransition(next State, actorID int64) error {
	current := p.State()
	if current.IsTerminal() {
		return ErrTerminalState{PayoutRequestID: p.ID, State: current}
	}
	if !next.Valid() || next == StateCreated {
		return shared.NewValidationError("state", "must be one of APPROVED, DENIED, CANCELLED")
	}
	if next == StateCancelled && actorID != p.RequestedByID {
		return ErrNotRequester{PayoutRequestID: p.ID, ActorID: actorID}
	}
	return nil
}
