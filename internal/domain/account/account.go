package account

import "time"

// Account is the ledger's read-only view of a member account. The People
// domain owns the lifecycle; the ledger only reads the flags and row-locks
// the record to serialise balance-dependent mutations.
type Account struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Active        bool      `json:"active"`
	Deleted       bool      `json:"deleted"`
	CanGoIntoDebt bool      `json:"can_go_into_debt"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsUsable reports whether the account can take part in new ledger movements
func (a *Account) IsUsable() bool {
	return a.Active && !a.Deleted
}
