package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/ledger/service"
	"github.com/sudosos-ledger/internal/logger"
)

// AccountLockerImpl implements the AccountLocker interface with row locks on
// the account directory
type AccountLockerImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewAccountLocker creates a new AccountLockerImpl
func NewAccountLocker(accountRepo account.Repository, logger *slog.Logger) service.AccountLocker {
	return &AccountLockerImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// LockAccounts locks every distinct account in ascending id order. Two
// transactions locking overlapping sets therefore wait on each other instead
// of deadlocking.
func (l *AccountLockerImpl) LockAccounts(ctx context.Context, tx pgx.Tx, ids ...int64) (map[int64]*account.Account, error) {
	log := logger.ForContext(ctx, l.logger)

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	accountRepoTx := l.accountRepo.WithTx(tx)
	locked := make(map[int64]*account.Account, len(sorted))
	for _, id := range sorted {
		acc, err := accountRepoTx.LockForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{AccountID: id}) {
				log.Warn("Account not found for lock", "account_id", id)
				return nil, err
			}
			log.Error("Failed to lock account", "account_id", id, "error", err)
			return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
		}
		locked[id] = acc
	}

	log.Debug("Accounts locked", "account_ids", sorted)
	return locked, nil
}
