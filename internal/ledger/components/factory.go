package components

import (
	"fmt"
	"log/slog"

	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/data/postgres"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/balance"
	"github.com/sudosos-ledger/internal/domain/invoice"
	"github.com/sudosos-ledger/internal/domain/outbox"
	"github.com/sudosos-ledger/internal/domain/payout"
	"github.com/sudosos-ledger/internal/domain/transaction"
	"github.com/sudosos-ledger/internal/domain/transfer"
	"github.com/sudosos-ledger/internal/domain/writeoff"
	"github.com/sudosos-ledger/internal/ledger/service"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

// Repositories groups the stores the ledger services run on
type Repositories struct {
	Accounts     account.Repository
	Balances     balance.Repository
	Transfers    transfer.Repository
	Transactions transaction.Repository
	Invoices     invoice.Repository
	Payouts      payout.Repository
	WriteOffs    writeoff.Repository
	Outbox       outbox.Repository
	// BalanceCache is optional; without it UpdateBalances only computes
	BalanceCache balance.CacheRepository
}

// NewPostgresRepositories creates the Postgres-backed repositories
func NewPostgresRepositories(pgDB *persistence.PostgresDB, ledger config.LedgerConfig, logger *slog.Logger) Repositories {
	return Repositories{
		Accounts:     postgres.NewAccountRepository(logger, pgDB),
		Balances:     postgres.NewBalanceRepository(logger, pgDB),
		Transfers:    postgres.NewTransferRepository(logger, pgDB),
		Transactions: postgres.NewTransactionRepository(logger, pgDB, ledger),
		Invoices:     postgres.NewInvoiceRepository(logger, pgDB, ledger),
		Payouts:      postgres.NewPayoutRepository(logger, pgDB, ledger),
		WriteOffs:    postgres.NewWriteOffRepository(logger, pgDB, ledger),
		Outbox:       postgres.NewOutboxRepository(logger, pgDB),
	}
}

// Services is the ledger consistency engine as used by the API and the CLI
type Services struct {
	Transfers    *service.TransferService
	Balances     *service.BalanceService
	Transactions *service.TransactionService
	Invoices     *service.InvoiceService
	WriteOffs    *service.WriteOffService
	Payouts      *service.PayoutService
	Summary      *service.SummaryService
}

// CreateServices creates all ledger services with their dependencies
func CreateServices(db persistence.TxExecutor, repos Repositories, logger *slog.Logger, cfg *config.Config) (*Services, error) {
	locker := NewAccountLocker(repos.Accounts, logger)
	recorder := NewEventRecorder(repos.Outbox, logger)

	transfers := service.NewTransferService(db, repos.Transfers, locker, recorder, cfg.Ledger, logger)

	balances, err := service.NewBalanceService(
		db,
		repos.Balances,
		repos.Accounts,
		repos.BalanceCache,
		recorder,
		cfg.WorkerPool.Size,
		cfg.Ledger,
		logger.With("component", "balance_worker_pool"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create balance service: %w", err)
	}

	services := &Services{
		Transfers:    transfers,
		Balances:     balances,
		Transactions: service.NewTransactionService(db, repos.Transactions, repos.Accounts, recorder, cfg.Ledger, logger),
		Invoices: service.NewInvoiceService(
			db, repos.Invoices, repos.Transactions, repos.Transfers, transfers, locker, recorder, cfg.Ledger, logger,
		),
		WriteOffs: service.NewWriteOffService(
			db, repos.WriteOffs, repos.Transfers, balances, transfers, locker, recorder, logger,
		),
		Payouts: service.NewPayoutService(
			db, repos.Payouts, repos.Transfers, repos.Accounts, balances, transfers, locker, recorder, cfg.Ledger, logger,
		),
		Summary: service.NewSummaryService(repos.Transactions, cfg.Ledger, logger),
	}

	logger.Info("Created ledger services", "pool_size", cfg.WorkerPool.Size, "currency", cfg.Ledger.Currency)
	return services, nil
}

// Shutdown releases the worker pool of the balance service
func (s *Services) Shutdown() {
	s.Balances.Shutdown()
}
