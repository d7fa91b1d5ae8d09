package invoice

import (
	"time"

	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/transfer"
)

// State is the lifecycle state of an invoice
type State string

const (
	StateCreated State = "CREATED"
	StateSent    State = "SENT"
	StatePaid    State = "PAID"
	StateDeleted State = "DELETED"
)

var stateOrder = map[State]int{
	StateCreated: 0,
	StateSent:    1,
	StatePaid:    2,
	StateDeleted: 3,
}

// Valid reports whether the state is a known invoice state
func (s State) Valid() bool {
	_, ok := stateOrder[s]
	return ok
}

// CanTransition reports whether an invoice in state s may move to next.
// Forward moves may skip states, DELETED is reachable from anywhere but never left.
func (s State) CanTransition(next State) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == StateDeleted {
		return next == StateDeleted
	}
	return stateOrder[next] >= stateOrder[s]
}

// Address holds the postal details printed on the invoice
type Address struct {
	Addressee  string `json:"addressee"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// Invoice aggregates transaction rows into settled transfers
type Invoice struct {
	ID              int64                `json:"id"`
	ToID            int64                `json:"to_id"`
	ByID            int64                `json:"by_id"`
	IsCreditInvoice bool                 `json:"is_credit_invoice"`
	Address         Address              `json:"address"`
	Reference       string               `json:"reference"`
	Description     string               `json:"description"`
	Date            time.Time            `json:"date"`
	Entries         []*Entry             `json:"entries"`
	Statuses        []*Status            `json:"statuses"`
	Transfers       []*transfer.Transfer `json:"transfers,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Entry is a snapshot of an invoiced row
type Entry struct {
	ID            int64       `json:"id"`
	InvoiceID     int64       `json:"invoice_id"`
	RowID         *int64      `json:"row_id,omitempty"`
	Description   string      `json:"description"`
	Amount        int         `json:"amount"`
	PriceInclVAT  money.Money `json:"price_incl_vat"`
	VATPercentage float64     `json:"vat_percentage"`
}

// Total returns the entry value: unit price times quantity
func (e *Entry) Total() money.Money {
	return e.PriceInclVAT.Multiply(int64(e.Amount))
}

// Status is one entry of the invoice state history
type Status struct {
	ID        int64     `json:"id"`
	InvoiceID int64     `json:"invoice_id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// State returns the current state: the latest status, ties broken by id
func (i *Invoice) State() State {
	var current *Status
	for _, s := range i.Statuses {
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

// Total sums the value of every entry
func (i *Invoice) Total(currency string, precision int) (money.Money, error) {
	totals := make([]money.Money, 0, len(i.Entries))
	for _, e := range i.Entries {
		totals = append(totals, e.Total())
	}
	return money.Sum(currency, precision, totals...)
}

// SettledAmount sums the non-reversal transfers of the invoice
func (i *Invoice) SettledAmount(currency string, precision int) (money.Money, error) {
	amounts := make([]money.Money, 0, len(i.Transfers))
	for _, t := range i.Transfers {
		if !t.IsReversal() {
			amounts = append(amounts, t.Amount)
		}
	}
	return money.Sum(currency, precision, amounts...)
}

// AccountIDs returns every account touched by the invoice transfers plus the addressee
func (i *Invoice) AccountIDs() []int64 {
	seen := map[int64]bool{i.ToID: true}
	ids := []int64{i.ToID}
	for _, t := range i.Transfers {
		for _, id := range t.AccountIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
