package invoice

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// Repository persists invoices, their entries and their state history
type Repository interface {
	// Create inserts the invoice, its entries and the initial CREATED status, assigning ids
	Create(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	// LockForUpdate locks the invoice row and loads entries and statuses
	LockForUpdate(ctx context.Context, id int64) (*Invoice, error)
	AddStatus(ctx context.Context, invoiceID int64, state State) (*Status, error)
	UpdateDetails(ctx context.Context, invoice *Invoice) error
	// LastInvoiceDate returns the creation time of the latest non-deleted invoice of the account
	LastInvoiceDate(ctx context.Context, accountID int64, credit bool) (*time.Time, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*Invoice, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrInvoiceNotFound indicates missing invoice
type ErrInvoiceNotFound struct {
	InvoiceID int64
}

func (e ErrInvoiceNotFound) Error() string {
	return "invoice not found: " + strconv.FormatInt(e.InvoiceID, 10)
}

// Is implements the errors.Is interface for ErrInvoiceNotFound
func (e ErrInvoiceNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrInvoiceNotFound)
	if !ok {
		return false
	}
	return t.InvoiceID == 0 || e.InvoiceID == t.InvoiceID
}

// ErrEmptySelection indicates that no rows could be invoiced
type ErrEmptySelection struct {
	AccountID int64
}

func (e ErrEmptySelection) Error() string {
	return "no uninvoiced transaction rows for account " + strconv.FormatInt(e.AccountID, 10)
}

// Is implements the errors.Is interface for ErrEmptySelection
func (e ErrEmptySelection) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	t, ok := target.(ErrEmptySelection)
	return ok && (t.AccountID == 0 || t.AccountID == e.AccountID)
}

// ErrZeroTotal indicates a selection whose rows are all free of charge; such
// an invoice would settle nothing
type ErrZeroTotal struct {
	AccountID int64
}

func (e ErrZeroTotal) Error() string {
	return "selected transaction rows of account " + strconv.FormatInt(e.AccountID, 10) + " total zero"
}

// Is implements the errors.Is interface for ErrZeroTotal
func (e ErrZeroTotal) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	t, ok := target.(ErrZeroTotal)
	return ok && (t.AccountID == 0 || t.AccountID == e.AccountID)
}

// ErrAlreadyInvoiced indicates an explicitly requested row that is linked to another invoice
type ErrAlreadyInvoiced struct {
	RowID     int64
	InvoiceID int64
}

func (e ErrAlreadyInvoiced) Error() string {
	return fmt.Sprintf("transaction row %d is already linked to invoice %d", e.RowID, e.InvoiceID)
}

// Is implements the errors.Is interface for ErrAlreadyInvoiced
func (e ErrAlreadyInvoiced) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	t, ok := target.(ErrAlreadyInvoiced)
	return ok && (t.RowID == 0 || t.RowID == e.RowID)
}

// ErrAmountMismatch indicates an explicit invoice amount that differs from the entry sum
type ErrAmountMismatch struct {
	Requested money.Money
	Computed  money.Money
}

func (e ErrAmountMismatch) Error() string {
	return "invoice amount " + e.Requested.String() + " does not match entries total " + e.Computed.String()
}

// Is implements the errors.Is interface for ErrAmountMismatch
func (e ErrAmountMismatch) Is(target error) bool {
	if target == shared.ErrPrecondition {
		return true
	}
	_, ok := target.(ErrAmountMismatch)
	return ok
}

// ErrInvalidStateTransition indicates a backward or post-deletion state change
type ErrInvalidStateTransition struct {
	InvoiceID int64
	From      State
	To        State
}

func (e ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invoice %d cannot move from %s to %s", e.InvoiceID, e.From, e.To)
}

// Is implements the errors.Is interface for ErrInvalidStateTransition
func (e ErrInvalidStateTransition) Is(target error) bool {
	if target == shared.ErrInvalidState {
		return true
	}
	t, ok := target.(ErrInvalidStateTransition)
	return ok && (t.InvoiceID == 0 || t.InvoiceID == e.InvoiceID)
}
