package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/writeoff"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

const writeOffColumns = `id, to_id, amount, transfer_id, created_at`

// WriteOffRepository implements the writeoff.Repository interface for PostgreSQL
type WriteOffRepository struct {
	querier persistence.Querier
	ledger  config.LedgerConfig
	logger  *slog.Logger
}

// NewWriteOffRepository creates a new PostgreSQL write-off repository
func NewWriteOffRepository(logger *slog.Logger, db *persistence.PostgresDB, ledger config.LedgerConfig) writeoff.Repository {
	return &WriteOffRepository{
		querier: db.Pool(),
		ledger:  ledger,
		logger:  logger,
	}
}

// WithTx returns a repository that runs every query on tx
func (r *WriteOffRepository) WithTx(tx pgx.Tx) writeoff.Repository {
	return &WriteOffRepository{
		querier: tx,
		ledger:  r.ledger,
		logger:  r.logger,
	}
}

func (r *WriteOffRepository) scan(row pgx.Row) (*writeoff.WriteOff, error) {
	var w writeoff.WriteOff
	var amount int64
	if err := row.Scan(&w.ID, &w.ToID, &amount, &w.TransferID, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Amount = money.New(amount, r.ledger.Currency, r.ledger.Precision)
	return &w, nil
}

// Create stores the write-off referencing its compensating transfer
func (r *WriteOffRepository) Create(ctx context.Context, w *writeoff.WriteOff) error {
	query := `
		INSERT INTO write_offs (to_id, amount, transfer_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if err := r.querier.QueryRow(ctx, query, w.ToID, w.Amount.Amount, w.TransferID).Scan(&w.ID, &w.CreatedAt); err != nil {
		r.logger.Error("Failed to create write-off", "to_id", w.ToID, "transfer_id", w.TransferID, "error", err)
		return fmt.Errorf("failed to create write-off: %w", err)
	}
	return nil
}

// GetByID retrieves a write-off
func (r *WriteOffRepository) GetByID(ctx context.Context, id int64) (*writeoff.WriteOff, error) {
	query := `SELECT ` + writeOffColumns + ` FROM write_offs WHERE id = $1`

	w, err := r.scan(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, writeoff.ErrWriteOffNotFound{WriteOffID: id}
		}
		r.logger.Error("Failed to get write-off", "write_off_id", id, "error", err)
		return nil, fmt.Errorf("failed to get write-off: %w", err)
	}
	return w, nil
}

// List returns write-offs, newest first
func (r *WriteOffRepository) List(ctx context.Context, limit, offset int) ([]*writeoff.WriteOff, error) {
	query := `
		SELECT ` + writeOffColumns + `
		FROM write_offs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list write-offs", "error", err)
		return nil, fmt.Errorf("failed to list write-offs: %w", err)
	}
	defer rows.Close()

	var writeOffs []*writeoff.WriteOff
	for rows.Next() {
		w, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan write-off: %w", err)
		}
		writeOffs = append(writeOffs, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating write-offs: %w", err)
	}
	return writeOffs, nil
}

// Count returns the number of write-offs
func (r *WriteOffRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM write_offs`).Scan(&count); err != nil {
		r.logger.Error("Failed to count write-offs", "error", err)
		return 0, fmt.Errorf("failed to count write-offs: %w", err)
	}
	return count, nil
}
