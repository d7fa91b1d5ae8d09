package balance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/money"
)

// Aggregate is the raw sum of an account's transfers in minor units
type Aggregate struct {
	AccountID        int64
	Amount           int64
	LastTransferID   *int64
	LastTransferDate *time.Time
}

// Balance is an account balance derived from its transfers. It is never stored
// as a source of truth; cached copies are informational only.
type Balance struct {
	AccountID        int64       `json:"account_id" bson:"account_id"`
	Amount           money.Money `json:"amount" bson:"amount"`
	LastTransferID   *int64      `json:"last_transfer_id,omitempty" bson:"last_transfer_id,omitempty"`
	LastTransferDate *time.Time  `json:"last_transfer_date,omitempty" bson:"last_transfer_date,omitempty"`
	ComputedAt       time.Time   `json:"computed_at" bson:"computed_at"`
}

// FromAggregate converts a raw aggregate into a balance in the ledger currency
func FromAggregate(agg *Aggregate, currency string, precision int, computedAt time.Time) *Balance {
	return &Balance{
		AccountID:        agg.AccountID,
		Amount:           money.New(agg.Amount, currency, precision),
		LastTransferID:   agg.LastTransferID,
		LastTransferDate: agg.LastTransferDate,
		ComputedAt:       computedAt,
	}
}

// Repository aggregates transfers into balances
type Repository interface {
	// Get returns the aggregate for one account; accounts without transfers yield zero
	Get(ctx context.Context, accountID int64) (*Aggregate, error)
	// GetMany returns aggregates for the given accounts, or for every account with transfers when ids is nil
	GetMany(ctx context.Context, accountIDs []int64) ([]*Aggregate, error)
	WithTx(tx pgx.Tx) Repository
}

// CacheRepository stores computed balances for reporting consumers
type CacheRepository interface {
	Upsert(ctx context.Context, balances []*Balance) error
	Get(ctx context.Context, accountID int64) (*Balance, error)
}
