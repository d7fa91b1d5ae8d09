package transfer

import (
	"time"

	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
)

var (
	ErrNegativeAmount = shared.ValidationError{Field: "amount", Reason: "must not be negative"}
	ErrSameAccount    = shared.ValidationError{Field: "to_id", Reason: "must differ from from_id"}
	ErrNoParty        = shared.ValidationError{Field: "from_id", Reason: "from_id and to_id cannot both be empty"}
	ErrWrongCurrency  = shared.ValidationError{Field: "amount", Reason: "currency or precision differs from the ledger currency"}
)

// Transfer is a single directed money movement. A nil FromID or ToID stands
// for the system side. Rows are append-only: corrections are new transfers
// pointing back through ReversalOf.
type Transfer struct {
	ID              int64       `json:"id"`
	FromID          *int64      `json:"from_id,omitempty"`
	ToID            *int64      `json:"to_id,omitempty"`
	Amount          money.Money `json:"amount"`
	Description     string      `json:"description"`
	TransactionID   *int64      `json:"transaction_id,omitempty"`
	InvoiceID       *int64      `json:"invoice_id,omitempty"`
	PayoutRequestID *int64      `json:"payout_request_id,omitempty"`
	ReversalOf      *int64      `json:"reversal_of,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// NewTransfer creates an unsaved transfer between two parties
func NewTransfer(fromID, toID *int64, amount money.Money, description string) (*Transfer, error) {
	t := &Transfer{
		FromID:      fromID,
		ToID:        toID,
		Amount:      amount,
		Description: description,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the structural invariants of a transfer
func (t *Transfer) Validate() error {
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if t.FromID == nil && t.ToID == nil {
		return ErrNoParty
	}
	if t.FromID != nil && t.ToID != nil && *t.FromID == *t.ToID {
		return ErrSameAccount
	}
	return nil
}

// ValidateCurrency checks the amount against the ledger currency
func (t *Transfer) ValidateCurrency(currency string, precision int) error {
	if t.Amount.Currency != currency || t.Amount.Precision != precision {
		return ErrWrongCurrency
	}
	return nil
}

// Reverse builds the equal and opposite transfer, keeping the parent links
func (t *Transfer) Reverse(description string) *Transfer {
	original := t.ID
	return &Transfer{
		FromID:          t.ToID,
		ToID:            t.FromID,
		Amount:          t.Amount,
		Description:     description,
		TransactionID:   t.TransactionID,
		InvoiceID:       t.InvoiceID,
		PayoutRequestID: t.PayoutRequestID,
		ReversalOf:      &original,
	}
}

// IsReversal reports whether the transfer compensates an earlier one
func (t *Transfer) IsReversal() bool {
	return t.ReversalOf != nil
}

// SignedFor returns the effect of the transfer on the given account's balance
func (t *Transfer) SignedFor(accountID int64) money.Money {
	signed := money.Zero(t.Amount.Currency, t.Amount.Precision)
	if t.ToID != nil && *t.ToID == accountID {
		signed = t.Amount
	}
	if t.FromID != nil && *t.FromID == accountID {
		signed = t.Amount.Negate()
	}
	return signed
}

// Involves reports whether the account is on either end of the transfer
func (t *Transfer) Involves(accountID int64) bool {
	return (t.FromID != nil && *t.FromID == accountID) || (t.ToID != nil && *t.ToID == accountID)
}

// AccountIDs returns the non-system ends of the transfer
func (t *Transfer) AccountIDs() []int64 {
	ids := make([]int64, 0, 2)
	if t.FromID != nil {
		ids = append(ids, *t.FromID)
	}
	if t.ToID != nil {
		ids = append(ids, *t.ToID)
	}
	return ids
}
