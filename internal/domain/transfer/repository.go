package transfer

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// Repository persists transfers. There is no update or delete.
type Repository interface {
	Create(ctx context.Context, transfer *Transfer) error
	GetByID(ctx context.Context, id int64) (*Transfer, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*Transfer, error)
	CountByAccount(ctx context.Context, accountID int64) (int64, error)
	ListByInvoice(ctx context.Context, invoiceID int64) ([]*Transfer, error)
	ListByPayoutRequest(ctx context.Context, payoutRequestID int64) ([]*Transfer, error)
	// ExistsForAccount reports whether a transfer with the description touches the account
	ExistsForAccount(ctx context.Context, accountID int64, description string) (bool, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTransferNotFound indicates missing transfer
type ErrTransferNotFound struct {
	TransferID int64
}

func (e ErrTransferNotFound) Error() string {
	return "transfer not found: " + strconv.FormatInt(e.TransferID, 10)
}

// Is implements the errors.Is interface for ErrTransferNotFound
func (e ErrTransferNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrTransferNotFound)
	if !ok {
		return false
	}
	return t.TransferID == 0 || e.TransferID == t.TransferID
}
