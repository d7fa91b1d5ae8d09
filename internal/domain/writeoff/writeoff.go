package writeoff

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
	"github.com/sudosos-ledger/internal/domain/transfer"
)

// WriteOff records the compensating transfer that zeroed a negative balance
type WriteOff struct {
	ID         int64              `json:"id"`
	ToID       int64              `json:"to_id"`
	Amount     money.Money        `json:"amount"`
	TransferID int64              `json:"transfer_id"`
	Transfer   *transfer.Transfer `json:"transfer,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Repository persists write-offs
type Repository interface {
	Create(ctx context.Context, writeOff *WriteOff) error
	GetByID(ctx context.Context, id int64) (*WriteOff, error)
	List(ctx context.Context, limit, offset int) ([]*WriteOff, error)
	Count(ctx context.Context) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrWriteOffNotFound indicates missing write-off
type ErrWriteOffNotFound struct {
	WriteOffID int64
}

func (e ErrWriteOffNotFound) Error() string {
	return "write-off not found: " + strconv.FormatInt(e.WriteOffID, 10)
}

// Is implements the errors.Is interface for ErrWriteOffNotFound
func (e ErrWriteOffNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrWriteOffNotFound)
	return ok && (t.WriteOffID == 0 || t.WriteOffID == e.WriteOffID)
}

// ErrPositiveBalance indicates an attempt to write off a positive balance
type ErrPositiveBalance struct {
	AccountID int64
	Balance   money.Money
}

func (e ErrPositiveBalance) Error() string {
	return "cannot write off positive balance " + e.Balance.String() + " of account " + strconv.FormatInt(e.AccountID, 10)
}

// Is implements the errors.Is interface for ErrPositiveBalance
func (e ErrPositiveBalance) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	t, ok := target.(ErrPositiveBalance)
	return ok && (t.AccountID == 0 || t.AccountID == e.AccountID)
}

// ErrNothingToWriteOff indicates an account whose balance is already zero
type ErrNothingToWriteOff struct {
	AccountID int64
}

func (e ErrNothingToWriteOff) Error() string {
	return "balance of account " + strconv.FormatInt(e.AccountID, 10) + " is already zero"
}

// Is implements the errors.Is interface for ErrNothingToWriteOff
func (e ErrNothingToWriteOff) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	t, ok := target.(ErrNothingToWriteOff)
	return ok && (t.AccountID == 0 || t.AccountID == e.AccountID)
}
