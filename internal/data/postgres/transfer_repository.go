package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/transfer"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

const transferColumns = `id, from_id, to_id, amount, currency, amount_precision, description,
	transaction_id, invoice_id, payout_request_id, reversal_of, created_at`

// TransferRepository implements the transfer.Repository interface for PostgreSQL.
// The transfers table is append-only; a trigger rejects UPDATE and DELETE.
type TransferRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransferRepository creates a new PostgreSQL transfer repository
func NewTransferRepository(logger *slog.Logger, db *persistence.PostgresDB) transfer.Repository {
	return &TransferRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every query on tx
func (r *TransferRepository) WithTx(tx pgx.Tx) transfer.Repository {
	return &TransferRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanTransfer(row pgx.Row) (*transfer.Transfer, error) {
	var t transfer.Transfer
	err := row.Scan(
		&t.ID,
		&t.FromID,
		&t.ToID,
		&t.Amount.Amount,
		&t.Amount.Currency,
		&t.Amount.Precision,
		&t.Description,
		&t.TransactionID,
		&t.InvoiceID,
		&t.PayoutRequestID,
		&t.ReversalOf,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTransfers(rows pgx.Rows) ([]*transfer.Transfer, error) {
	defer rows.Close()

	var transfers []*transfer.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}
	return transfers, nil
}

// Create inserts the transfer and fills in its id and creation time
func (r *TransferRepository) Create(ctx context.Context, t *transfer.Transfer) error {
	query := `
		INSERT INTO transfers (from_id, to_id, amount, currency, amount_precision, description,
			transaction_id, invoice_id, payout_request_id, reversal_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := r.querier.QueryRow(ctx, query,
		t.FromID,
		t.ToID,
		t.Amount.Amount,
		t.Amount.Currency,
		t.Amount.Precision,
		t.Description,
		t.TransactionID,
		t.InvoiceID,
		t.PayoutRequestID,
		t.ReversalOf,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create transfer", "description", t.Description, "error", err)
		return fmt.Errorf("failed to create transfer: %w", err)
	}

	return nil
}

// GetByID retrieves a transfer by its ID
func (r *TransferRepository) GetByID(ctx context.Context, id int64) (*transfer.Transfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1`

	t, err := scanTransfer(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transfer.ErrTransferNotFound{TransferID: id}
		}
		r.logger.Error("Failed to get transfer", "transfer_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return t, nil
}

// ListByAccount returns the account's transfers, newest first
func (r *TransferRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transfer.Transfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM transfers
		WHERE from_id = $1 OR to_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transfers", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return collectTransfers(rows)
}

// CountByAccount counts the transfers touching the account
func (r *TransferRepository) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM transfers WHERE from_id = $1 OR to_id = $1`, accountID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count transfers", "account_id", accountID, "error", err)
		return 0, fmt.Errorf("failed to count transfers: %w", err)
	}
	return count, nil
}

// ListByInvoice returns every transfer linked to the invoice, reversals included, in creation order
func (r *TransferRepository) ListByInvoice(ctx context.Context, invoiceID int64) ([]*transfer.Transfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM transfers
		WHERE invoice_id = $1
		ORDER BY id ASC`

	rows, err := r.querier.Query(ctx, query, invoiceID)
	if err != nil {
		r.logger.Error("Failed to list invoice transfers", "invoice_id", invoiceID, "error", err)
		return nil, fmt.Errorf("failed to list invoice transfers: %w", err)
	}
	return collectTransfers(rows)
}

// ListByPayoutRequest returns the transfers linked to the payout request
func (r *TransferRepository) ListByPayoutRequest(ctx context.Context, payoutRequestID int64) ([]*transfer.Transfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM transfers
		WHERE payout_request_id = $1
		ORDER BY id ASC`

	rows, err := r.querier.Query(ctx, query, payoutRequestID)
	if err != nil {
		r.logger.Error("Failed to list payout transfers", "payout_request_id", payoutRequestID, "error", err)
		return nil, fmt.Errorf("failed to list payout transfers: %w", err)
	}
	return collectTransfers(rows)
}

// ExistsForAccount reports whether a transfer with this description touches the account
func (r *TransferRepository) ExistsForAccount(ctx context.Context, accountID int64, description string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transfers
			WHERE (from_id = $1 OR to_id = $1) AND description = $2
		)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, accountID, description).Scan(&exists); err != nil {
		r.logger.Error("Failed to check transfer existence", "account_id", accountID, "error", err)
		return false, fmt.Errorf("failed to check transfer existence: %w", err)
	}
	return exists, nil
}
