package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/transfer"
	"github.com/sudosos-ledger/internal/logger"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

// CreateTransferParams describes a manual transfer. A nil side is the system.
type CreateTransferParams struct {
	FromID      *int64
	ToID        *int64
	Amount      money.Money
	Description string
}

// TransferService is the only place transfers are written
type TransferService struct {
	db        persistence.TxExecutor
	transfers transfer.Repository
	locker    AccountLocker
	events    EventRecorder
	ledger    config.LedgerConfig
	logger    *slog.Logger
}

// NewTransferService creates a new TransferService
func NewTransferService(
	db persistence.TxExecutor,
	transfers transfer.Repository,
	locker AccountLocker,
	events EventRecorder,
	ledger config.LedgerConfig,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		db:        db,
		transfers: transfers,
		locker:    locker,
		events:    events,
		ledger:    ledger,
		logger:    logger,
	}
}

// CreateInTx validates and inserts a transfer inside the caller's transaction
// and records a TRANSFER_CREATED event with it
func (s *TransferService) CreateInTx(ctx context.Context, tx pgx.Tx, t *transfer.Transfer) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := t.ValidateCurrency(s.ledger.Currency, s.ledger.Precision); err != nil {
		return err
	}

	if err := s.transfers.WithTx(tx).Create(ctx, t); err != nil {
		return err
	}

	e := event.New(event.TypeTransferCreated, t.ID, t.AccountIDs()...).
		WithAmount(t.Amount).
		WithDescription(t.Description)
	if err := s.events.Record(ctx, tx, e); err != nil {
		return err
	}

	logger.ForContext(ctx, s.logger).Debug("Transfer created",
		"transfer_id", t.ID,
		"amount", t.Amount.Amount,
		"description", t.Description,
	)
	return nil
}

// CreateTransfer creates a manual transfer in its own transaction, locking the
// accounts on both ends
func (s *TransferService) CreateTransfer(ctx context.Context, params CreateTransferParams) (*transfer.Transfer, error) {
	log := logger.ForContext(ctx, s.logger)

	t, err := transfer.NewTransfer(params.FromID, params.ToID, params.Amount, params.Description)
	if err != nil {
		return nil, err
	}
	if err := t.ValidateCurrency(s.ledger.Currency, s.ledger.Precision); err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.locker.LockAccounts(ctx, tx, t.AccountIDs()...); err != nil {
			return err
		}
		return s.CreateInTx(ctx, tx, t)
	})
	if err != nil {
		log.Error("Failed to create transfer", "accounts", t.AccountIDs(), "error", err)
		return nil, err
	}

	log.Info("Manual transfer created", "transfer_id", t.ID, "amount", t.Amount.String())
	return t, nil
}

// GetTransfer returns one transfer
func (s *TransferService) GetTransfer(ctx context.Context, id int64) (*transfer.Transfer, error) {
	return s.transfers.GetByID(ctx, id)
}

// ListByAccount returns a page of the account's transfers with the total count
func (s *TransferService) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transfer.Transfer, int64, error) {
	transfers, err := s.transfers.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	total, err := s.transfers.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}
	return transfers, total, nil
}

// LegacyImportDescription marks the transfer that carries a balance over from
// the previous system
const LegacyImportDescription = "Initial transfer from legacy system"

// ImportLegacyBalance books the signed legacy balance of an account as a
// system transfer. It reports false when the account already has one.
func (s *TransferService) ImportLegacyBalance(ctx context.Context, accountID int64, amount money.Money) (bool, error) {
	log := logger.ForContext(ctx, s.logger).With("account_id", accountID)

	if amount.IsZero() {
		return false, nil
	}

	id := accountID
	t := &transfer.Transfer{Amount: amount.Abs(), Description: LegacyImportDescription}
	if amount.IsPositive() {
		t.ToID = &id
	} else {
		t.FromID = &id
	}

	created := false
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.locker.LockAccounts(ctx, tx, accountID); err != nil {
			return err
		}
		exists, err := s.transfers.WithTx(tx).ExistsForAccount(ctx, accountID, LegacyImportDescription)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		created = true
		return s.CreateInTx(ctx, tx, t)
	})
	if err != nil {
		log.Error("Failed to import legacy balance", "error", err)
		return false, err
	}

	if created {
		log.Info("Legacy balance imported", "transfer_id", t.ID, "amount", amount.String())
	} else {
		log.Debug("Legacy balance already imported")
	}
	return created, nil
}
