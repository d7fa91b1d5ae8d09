package account

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// Repository reads the account directory
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Account, error)
	// ListIDs returns all account ids in ascending order
	ListIDs(ctx context.Context) ([]int64, error)

	// LockForUpdate acquires a pessimistic row lock for the rest of the transaction
	LockForUpdate(ctx context.Context, id int64) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID int64
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + strconv.FormatInt(e.AccountID, 10)
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	// If the target AccountID is zero, consider it a match for any ErrAccountNotFound
	if t.AccountID == 0 {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrAccountInactive indicates a movement involving a deactivated or deleted account
type ErrAccountInactive struct {
	AccountID int64
}

func (e ErrAccountInactive) Error() string {
	return "account is inactive: " + strconv.FormatInt(e.AccountID, 10)
}

// Is implements the errors.Is interface for ErrAccountInactive
func (e ErrAccountInactive) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	t, ok := target.(ErrAccountInactive)
	return ok && (t.AccountID == 0 || t.AccountID == e.AccountID)
}
