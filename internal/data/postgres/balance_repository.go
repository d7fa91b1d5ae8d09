package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/balance"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

// BalanceRepository derives balances from the transfers table
type BalanceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBalanceRepository creates a new PostgreSQL balance repository
func NewBalanceRepository(logger *slog.Logger, db *persistence.PostgresDB) balance.Repository {
	return &BalanceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that reads within tx, so a balance check sees
// the same snapshot as the mutation that depends on it
func (r *BalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return &BalanceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get sums incoming minus outgoing transfers of one account
func (r *BalanceRepository) Get(ctx context.Context, accountID int64) (*balance.Aggregate, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN to_id = $1 THEN amount ELSE -amount END), 0)::bigint,
			MAX(id),
			MAX(created_at)
		FROM transfers
		WHERE from_id = $1 OR to_id = $1`

	agg := &balance.Aggregate{AccountID: accountID}
	err := r.querier.QueryRow(ctx, query, accountID).Scan(&agg.Amount, &agg.LastTransferID, &agg.LastTransferDate)
	if err != nil {
		r.logger.Error("Failed to compute balance", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}
	return agg, nil
}

// GetMany computes balances for a set of accounts in one pass over the
// transfers. A nil id list selects every account that has transfers.
func (r *BalanceRepository) GetMany(ctx context.Context, accountIDs []int64) ([]*balance.Aggregate, error) {
	query := `
		SELECT account_id, SUM(delta)::bigint, MAX(transfer_id), MAX(created_at)
		FROM (
			SELECT to_id AS account_id, amount AS delta, id AS transfer_id, created_at
			FROM transfers WHERE to_id IS NOT NULL
			UNION ALL
			SELECT from_id, -amount, id, created_at
			FROM transfers WHERE from_id IS NOT NULL
		) movements
		WHERE $1::bigint[] IS NULL OR account_id = ANY($1)
		GROUP BY account_id
		ORDER BY account_id`

	rows, err := r.querier.Query(ctx, query, accountIDs)
	if err != nil {
		r.logger.Error("Failed to compute balances", "accounts", len(accountIDs), "error", err)
		return nil, fmt.Errorf("failed to compute balances: %w", err)
	}
	defer rows.Close()

	var aggregates []*balance.Aggregate
	for rows.Next() {
		var agg balance.Aggregate
		if err := rows.Scan(&agg.AccountID, &agg.Amount, &agg.LastTransferID, &agg.LastTransferDate); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		aggregates = append(aggregates, &agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}

	return aggregates, nil
}
