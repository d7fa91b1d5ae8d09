package transaction

import (
	"time"

	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// Transaction is a purchase: one buyer, one sub-transaction per seller.
// Creating a transaction moves no money; its value is settled later by an invoice.
type Transaction struct {
	ID                  int64             `json:"id"`
	FromID              int64             `json:"from_id"`
	CreatedByID         int64             `json:"created_by_id"`
	PointOfSaleID       int64             `json:"point_of_sale_id"`
	PointOfSaleRevision int               `json:"point_of_sale_revision"`
	SubTransactions     []*SubTransaction `json:"sub_transactions,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// SubTransaction groups the rows sold by one seller through one container revision
type SubTransaction struct {
	ID                int64  `json:"id"`
	TransactionID     int64  `json:"transaction_id"`
	ToID              int64  `json:"to_id"`
	ContainerID       int64  `json:"container_id"`
	ContainerRevision int    `json:"container_revision"`
	Rows              []*Row `json:"rows"`
}

// Row is a line item with the product price snapshotted at purchase time
type Row struct {
	ID               int64       `json:"id"`
	SubTransactionID int64       `json:"sub_transaction_id"`
	ProductID        int64       `json:"product_id"`
	ProductRevision  int         `json:"product_revision"`
	ProductName      string      `json:"product_name"`
	PriceInclVAT     money.Money `json:"price_incl_vat"`
	VATPercentage    float64     `json:"vat_percentage"`
	Amount           int         `json:"amount"`
	InvoiceID        *int64      `json:"invoice_id,omitempty"`
}

// Total returns the row value: unit price times quantity
func (r *Row) Total() money.Money {
	return r.PriceInclVAT.Multiply(int64(r.Amount))
}

// Total sums the value of every row in the sub-transaction
func (s *SubTransaction) Total(currency string, precision int) (money.Money, error) {
	totals := make([]money.Money, 0, len(s.Rows))
	for _, row := range s.Rows {
		totals = append(totals, row.Total())
	}
	return money.Sum(currency, precision, totals...)
}

// Total sums the value of every row in the transaction
func (t *Transaction) Total(currency string, precision int) (money.Money, error) {
	total := money.Zero(currency, precision)
	for _, sub := range t.SubTransactions {
		subTotal, err := sub.Total(currency, precision)
		if err != nil {
			return money.Money{}, err
		}
		if total, err = total.Add(subTotal); err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

// Validate checks the shape of a new transaction against the ledger currency
func (t *Transaction) Validate(currency string, precision int) error {
	if t.FromID <= 0 {
		return shared.NewValidationError("from_id", "is required")
	}
	if t.CreatedByID <= 0 {
		return shared.NewValidationError("created_by_id", "is required")
	}
	if len(t.SubTransactions) == 0 {
		return shared.NewValidationError("sub_transactions", "must not be empty")
	}
	for _, sub := range t.SubTransactions {
		if sub.ToID <= 0 {
			return shared.NewValidationError("sub_transactions.to_id", "is required")
		}
		if sub.ToID == t.FromID {
			return shared.NewValidationError("sub_transactions.to_id", "must differ from from_id")
		}
		if len(sub.Rows) == 0 {
			return shared.NewValidationError("sub_transactions.rows", "must not be empty")
		}
		for _, row := range sub.Rows {
			if row.Amount < 1 {
				return shared.NewValidationError("rows.amount", "must be at least 1")
			}
			if row.PriceInclVAT.IsNegative() {
				return shared.NewValidationError("rows.price_incl_vat", "must not be negative")
			}
			if row.PriceInclVAT.Currency != currency || row.PriceInclVAT.Precision != precision {
				return shared.NewValidationError("rows.price_incl_vat", "currency or precision differs from the ledger currency")
			}
			if row.VATPercentage < 0 {
				return shared.NewValidationError("rows.vat_percentage", "must not be negative")
			}
			if row.InvoiceID != nil {
				return shared.NewValidationError("rows.invoice_id", "must be empty on creation")
			}
		}
	}
	return nil
}

// SellerIDs returns the distinct sellers of the transaction in order of appearance
func (t *Transaction) SellerIDs() []int64 {
	seen := make(map[int64]bool, len(t.SubTransactions))
	ids := make([]int64, 0, len(t.SubTransactions))
	for _, sub := range t.SubTransactions {
		if !seen[sub.ToID] {
			seen[sub.ToID] = true
			ids = append(ids, sub.ToID)
		}
	}
	return ids
}

// LineItem is a row flattened with its transaction context, as read for
// invoicing and reporting
type LineItem struct {
	Row
	TransactionID int64     `json:"transaction_id"`
	BuyerID       int64     `json:"buyer_id"`
	SellerID      int64     `json:"seller_id"`
	CreatedAt     time.Time `json:"created_at"`
}
