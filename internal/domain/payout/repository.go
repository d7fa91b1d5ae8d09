package payout

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// Repository persists payout requests and their status history
type Repository interface {
	// Create inserts the request and its initial CREATED status, assigning ids
	Create(ctx context.Context, request *PayoutRequest) error
	GetByID(ctx context.Context, id int64) (*PayoutRequest, error)
	// LockForUpdate locks the request row and loads its statuses
	LockForUpdate(ctx context.Context, id int64) (*PayoutRequest, error)
	AddStatus(ctx context.Context, payoutRequestID int64, state State) (*Status, error)
	SetApprovedBy(ctx context.Context, payoutRequestID, approvedByID int64) error
	ListByRequester(ctx context.Context, requestedByID int64, limit, offset int) ([]*PayoutRequest, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrPayoutRequestNotFound indicates missing payout request
type ErrPayoutRequestNotFound struct {
	PayoutRequestID int64
}

func (e ErrPayoutRequestNotFound) Error() string {
	return "payout request not found: " + strconv.FormatInt(e.PayoutRequestID, 10)
}

// Is implements the errors.Is interface for ErrPayoutRequestNotFound
func (e ErrPayoutRequestNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrPayoutRequestNotFound)
	return ok && (t.PayoutRequestID == 0 || t.PayoutRequestID == e.PayoutRequestID)
}

// ErrTerminalState indicates a status change on a finished request
type ErrTerminalState struct {
	PayoutRequestID int64
	State           State
}

func (e ErrTerminalState) Error() string {
	return fmt.Sprintf("payout request %d is in terminal state %s", e.PayoutRequestID, e.State)
}

// Is implements the errors.Is interface for ErrTerminalState
func (e ErrTerminalState) Is(target error) bool {
	if target == shared.ErrInvalidState {
		return true
	}
	t, ok := target.(ErrTerminalState)
	return ok && (t.PayoutRequestID == 0 || t.PayoutRequestID == e.PayoutRequestID)
}

// ErrNotRequester indicates a cancellation by someone other than the requester
type ErrNotRequester struct {
	PayoutRequestID int64
	ActorID         int64
}

func (e ErrNotRequester) Error() string {
	return fmt.Sprintf("account %d did not request payout %d", e.ActorID, e.PayoutRequestID)
}

// Is implements the errors.Is interface for ErrNotRequester
func (e ErrNotRequester) Is(target error) bool {
	if target == shared.ErrForbidden {
		return true
	}
	_, ok := target.(ErrNotRequester)
	return ok
}

// ErrInsufficientBalance indicates an approval that would push a debt-less account negative
type ErrInsufficientBalance struct {
	AccountID int64
	Balance   money.Money
	Requested money.Money
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("account %d has balance %s, cannot pay out %s", e.AccountID, e.Balance, e.Requested)
}

// Is implements the errors.Is interface for ErrInsufficientBalance
func (e ErrInsufficientBalance) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	t, ok := target.(ErrInsufficientBalance)
	return ok && (t.AccountID == 0 || t.AccountID == e.AccountID)
}
