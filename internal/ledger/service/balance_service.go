package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/balance"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/logger"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

// BalanceService derives balances from transfers. Balances are never stored as
// a source of truth; UpdateBalances only refreshes the reporting cache.
type BalanceService struct {
	db       persistence.TxExecutor
	balances balance.Repository
	accounts account.Repository
	cache    balance.CacheRepository
	events   EventRecorder
	pool     *ants.Pool
	ledger   config.LedgerConfig
	logger   *slog.Logger
}

// NewBalanceService creates a BalanceService whose batch recomputation runs on
// a worker pool of the given size
func NewBalanceService(
	db persistence.TxExecutor,
	balances balance.Repository,
	accounts account.Repository,
	cache balance.CacheRepository,
	events EventRecorder,
	poolSize int,
	ledger config.LedgerConfig,
	logger *slog.Logger,
) (*BalanceService, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create balance worker pool: %w", err)
	}

	return &BalanceService{
		db:       db,
		balances: balances,
		accounts: accounts,
		cache:    cache,
		events:   events,
		pool:     pool,
		ledger:   ledger,
		logger:   logger,
	}, nil
}

func (s *BalanceService) fromAggregate(agg *balance.Aggregate, now time.Time) *balance.Balance {
	return balance.FromAggregate(agg, s.ledger.Currency, s.ledger.Precision, now)
}

// GetBalance returns the live balance of an account. Unknown accounts have a
// zero balance.
func (s *BalanceService) GetBalance(ctx context.Context, accountID int64) (*balance.Balance, error) {
	agg, err := s.balances.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.fromAggregate(agg, time.Now().UTC()), nil
}

// BalanceInTx reads the balance inside the caller's transaction so that the
// mutation depending on it sees the same snapshot
func (s *BalanceService) BalanceInTx(ctx context.Context, tx pgx.Tx, accountID int64) (*balance.Balance, error) {
	agg, err := s.balances.WithTx(tx).Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.fromAggregate(agg, time.Now().UTC()), nil
}

// GetBalances returns one balance per requested id, in request order
func (s *BalanceService) GetBalances(ctx context.Context, accountIDs []int64) ([]*balance.Balance, error) {
	if len(accountIDs) == 0 {
		return []*balance.Balance{}, nil
	}
	aggs, err := s.balances.GetMany(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	return s.complete(accountIDs, aggs, time.Now().UTC()), nil
}

// complete orders aggregates by ids and fills in zero balances for accounts without transfers
func (s *BalanceService) complete(accountIDs []int64, aggs []*balance.Aggregate, now time.Time) []*balance.Balance {
	byID := make(map[int64]*balance.Aggregate, len(aggs))
	for _, agg := range aggs {
		byID[agg.AccountID] = agg
	}

	result := make([]*balance.Balance, 0, len(accountIDs))
	for _, id := range accountIDs {
		agg, ok := byID[id]
		if !ok {
			agg = &balance.Aggregate{AccountID: id}
		}
		result = append(result, s.fromAggregate(agg, now))
	}
	return result
}

// UpdateBalances recomputes the balances of the given accounts, or of every
// account when ids is empty, and writes them to the cache. Chunks run
// concurrently on the worker pool; chunks are disjoint so the job is safe to
// repeat. It returns the number of balances written.
func (s *BalanceService) UpdateBalances(ctx context.Context, accountIDs []int64) (int, error) {
	log := logger.ForContext(ctx, s.logger)
	started := time.Now()

	ids := accountIDs
	if len(ids) == 0 {
		var err error
		if ids, err = s.accounts.ListIDs(ctx); err != nil {
			return 0, fmt.Errorf("failed to list accounts: %w", err)
		}
	}

	chunkSize := s.ledger.BalanceChunkSize
	if chunkSize <= 0 {
		chunkSize = len(ids)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
		written int
	)

	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		wg.Add(1)
		task := func() {
			defer wg.Done()
			n, err := s.updateChunk(ctx, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			written += n
		}
		if err := s.pool.Submit(task); err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("failed to submit balance chunk: %w", err))
			mu.Unlock()
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		log.Error("Balance update finished with errors", "written", written, "failed_chunks", len(errs), "error", err)
		return written, err
	}

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		e := event.New(event.TypeBalancesRecalculated, int64(written)).
			WithDescription(fmt.Sprintf("%d balances recalculated", written))
		return s.events.Record(ctx, tx, e)
	})
	if err != nil {
		log.Warn("Failed to record balance update event", "error", err)
	}

	log.Info("Balances updated", "accounts", len(ids), "written", written, "duration", time.Since(started))
	return written, nil
}

func (s *BalanceService) updateChunk(ctx context.Context, chunk []int64) (int, error) {
	aggs, err := s.balances.GetMany(ctx, chunk)
	if err != nil {
		return 0, err
	}
	balances := s.complete(chunk, aggs, time.Now().UTC())
	if s.cache != nil {
		if err := s.cache.Upsert(ctx, balances); err != nil {
			return 0, err
		}
	}
	return len(balances), nil
}

// Shutdown releases the worker pool
func (s *BalanceService) Shutdown() {
	s.logger.Info("Shutting down balance worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}
