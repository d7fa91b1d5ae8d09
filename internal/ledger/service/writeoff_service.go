package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/transfer"
	"github.com/sudosos-ledger/internal/domain/writeoff"
	"github.com/sudosos-ledger/internal/logger"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

const writeOffDescription = "Write-off"

// WriteOffService zeroes negative balances ahead of account deactivation
type WriteOffService struct {
	db          persistence.TxExecutor
	writeOffs   writeoff.Repository
	transfers   transfer.Repository
	balanceSvc  *BalanceService
	transferSvc *TransferService
	locker      AccountLocker
	events      EventRecorder
	logger      *slog.Logger
}

// NewWriteOffService creates a new WriteOffService
func NewWriteOffService(
	db persistence.TxExecutor,
	writeOffs writeoff.Repository,
	transfers transfer.Repository,
	balanceSvc *BalanceService,
	transferSvc *TransferService,
	locker AccountLocker,
	events EventRecorder,
	logger *slog.Logger,
) *WriteOffService {
	return &WriteOffService{
		db:          db,
		writeOffs:   writeOffs,
		transfers:   transfers,
		balanceSvc:  balanceSvc,
		transferSvc: transferSvc,
		locker:      locker,
		events:      events,
		logger:      logger,
	}
}

// CreateWriteOff books a system transfer equal to the account's debt. The
// balance is read under the account lock, so a second concurrent write-off
// sees zero and fails with ErrNothingToWriteOff. On success an
// ACCOUNT_DEACTIVATION_REQUESTED event asks the account directory to close
// the account.
func (s *WriteOffService) CreateWriteOff(ctx context.Context, accountID int64) (*writeoff.WriteOff, error) {
	log := logger.ForContext(ctx, s.logger).With("account_id", accountID)

	var w *writeoff.WriteOff
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.locker.LockAccounts(ctx, tx, accountID); err != nil {
			return err
		}

		bal, err := s.balanceSvc.BalanceInTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if bal.Amount.IsPositive() {
			return writeoff.ErrPositiveBalance{AccountID: accountID, Balance: bal.Amount}
		}
		if bal.Amount.IsZero() {
			return writeoff.ErrNothingToWriteOff{AccountID: accountID}
		}

		toID := accountID
		t := &transfer.Transfer{ToID: &toID, Amount: bal.Amount.Abs(), Description: writeOffDescription}
		if err := s.transferSvc.CreateInTx(ctx, tx, t); err != nil {
			return err
		}

		w = &writeoff.WriteOff{ToID: accountID, Amount: t.Amount, TransferID: t.ID, Transfer: t}
		if err := s.writeOffs.WithTx(tx).Create(ctx, w); err != nil {
			return err
		}

		return s.events.Record(ctx, tx,
			event.New(event.TypeWriteOffCreated, w.ID, accountID).WithAmount(w.Amount),
			event.New(event.TypeAccountDeactivation, accountID, accountID).
				WithDescription(fmt.Sprintf("Account written off by write-off #%d", w.ID)),
		)
	})
	if err != nil {
		log.Warn("Failed to create write-off", "error", err)
		return nil, err
	}

	log.Info("Write-off created", "write_off_id", w.ID, "amount", w.Amount.String())
	return w, nil
}

// GetWriteOff returns a write-off with its transfer
func (s *WriteOffService) GetWriteOff(ctx context.Context, id int64) (*writeoff.WriteOff, error) {
	w, err := s.writeOffs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Transfer, err = s.transfers.GetByID(ctx, w.TransferID); err != nil {
		return nil, err
	}
	return w, nil
}

// ListWriteOffs returns a page of write-offs with the total count
func (s *WriteOffService) ListWriteOffs(ctx context.Context, limit, offset int) ([]*writeoff.WriteOff, int64, error) {
	writeOffs, err := s.writeOffs.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.writeOffs.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return writeOffs, total, nil
}
