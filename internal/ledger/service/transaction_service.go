package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/transaction"
	"github.com/sudosos-ledger/internal/logger"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

// TransactionService records purchases. A transaction moves no money by itself;
// its rows are settled when they are invoiced.
type TransactionService struct {
	db           persistence.TxExecutor
	transactions transaction.Repository
	accounts     account.Repository
	events       EventRecorder
	ledger       config.LedgerConfig
	logger       *slog.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	db persistence.TxExecutor,
	transactions transaction.Repository,
	accounts account.Repository,
	events EventRecorder,
	ledger config.LedgerConfig,
	logger *slog.Logger,
) *TransactionService {
	return &TransactionService{
		db:           db,
		transactions: transactions,
		accounts:     accounts,
		events:       events,
		ledger:       ledger,
		logger:       logger,
	}
}

// CreateTransaction validates and stores a purchase with all of its rows.
// Prices are snapshotted as given.
func (s *TransactionService) CreateTransaction(ctx context.Context, t *transaction.Transaction) (*transaction.Transaction, error) {
	log := logger.ForContext(ctx, s.logger)

	if err := t.Validate(s.ledger.Currency, s.ledger.Precision); err != nil {
		return nil, err
	}
	total, err := t.Total(s.ledger.Currency, s.ledger.Precision)
	if err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		buyer, err := s.accounts.WithTx(tx).GetByID(ctx, t.FromID)
		if err != nil {
			return err
		}
		if !buyer.IsUsable() {
			return account.ErrAccountInactive{AccountID: buyer.ID}
		}

		if err := s.transactions.WithTx(tx).Create(ctx, t); err != nil {
			return err
		}

		accountIDs := append([]int64{t.FromID}, t.SellerIDs()...)
		e := event.New(event.TypeTransactionCreated, t.ID, accountIDs...).WithAmount(total)
		return s.events.Record(ctx, tx, e)
	})
	if err != nil {
		log.Warn("Failed to create transaction", "from_id", t.FromID, "error", err)
		return nil, err
	}

	log.Info("Transaction created", "transaction_id", t.ID, "from_id", t.FromID, "total", total.String())
	return t, nil
}

// GetTransaction returns a transaction with all sub-transactions and rows
func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*transaction.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}

// ListByAccount returns a page of transactions the account bought or sold in
func (s *TransactionService) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transaction.Transaction, int64, error) {
	transactions, err := s.transactions.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	total, err := s.transactions.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return transactions, total, nil
}
