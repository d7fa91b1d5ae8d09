package transaction

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// Role selects which side of a transaction an account is matched on
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

// RowFilter selects line items for an account
type RowFilter struct {
	AccountID      int64
	Role           Role
	TransactionIDs []int64
	FromDate       *time.Time
	TillDate       *time.Time
	OnlyUninvoiced bool
}

// Repository persists transactions and their rows
type Repository interface {
	// Create inserts the transaction with all sub-transactions and rows, assigning ids
	Create(ctx context.Context, transaction *Transaction) error
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	// ListByAccount returns transaction headers where the account bought or sold
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*Transaction, error)
	CountByAccount(ctx context.Context, accountID int64) (int64, error)

	// LockRowsForInvoicing selects matching rows with SELECT ... FOR UPDATE
	LockRowsForInvoicing(ctx context.Context, filter RowFilter) ([]*LineItem, error)
	// LinkRowsToInvoice claims still unlinked rows; claiming fewer rows than requested is an error
	LinkRowsToInvoice(ctx context.Context, invoiceID int64, rowIDs []int64) error
	// UnlinkInvoice clears the invoice reference of every row linked to it
	UnlinkInvoice(ctx context.Context, invoiceID int64) (int64, error)
	ListLineItems(ctx context.Context, filter RowFilter) ([]*LineItem, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	TransactionID int64
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + strconv.FormatInt(e.TransactionID, 10)
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == 0 || e.TransactionID == t.TransactionID
}

// ErrRowsClaimed indicates that some rows were linked to an invoice concurrently
type ErrRowsClaimed struct {
	InvoiceID int64
	Requested int
	Claimed   int64
}

func (e ErrRowsClaimed) Error() string {
	return "invoice " + strconv.FormatInt(e.InvoiceID, 10) + " claimed " + strconv.FormatInt(e.Claimed, 10) +
		" of " + strconv.Itoa(e.Requested) + " rows"
}

// Is implements the errors.Is interface for ErrRowsClaimed
func (e ErrRowsClaimed) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	_, ok := target.(ErrRowsClaimed)
	return ok
}
