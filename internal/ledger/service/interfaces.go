package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/event"
)

// AccountLocker serialises balance-dependent mutations per account
type AccountLocker interface {
	// LockAccounts row-locks the accounts in ascending id order and returns them by id
	LockAccounts(ctx context.Context, tx pgx.Tx, ids ...int64) (map[int64]*account.Account, error)
}

// EventRecorder stores ledger events in the outbox within the caller's transaction
type EventRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, events ...*event.Event) error
}
