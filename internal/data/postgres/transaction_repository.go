package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/transaction"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

const lineItemSelect = `
		SELECT r.id, r.sub_transaction_id, r.product_id, r.product_revision, r.product_name,
			r.price_incl_vat, r.vat_percentage, r.amount, r.invoice_id,
			t.id, t.from_id, s.to_id, t.created_at
		FROM sub_transaction_rows r
		JOIN sub_transactions s ON s.id = r.sub_transaction_id
		JOIN transactions t ON t.id = s.transaction_id`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL.
// Row prices are stored as minor units of the ledger currency.
type TransactionRepository struct {
	querier persistence.Querier
	ledger  config.LedgerConfig
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB, ledger config.LedgerConfig) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		ledger:  ledger,
		logger:  logger,
	}
}

// WithTx returns a repository that runs every query on tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		ledger:  r.ledger,
		logger:  r.logger,
	}
}

func (r *TransactionRepository) money(amount int64) money.Money {
	return money.New(amount, r.ledger.Currency, r.ledger.Precision)
}

// Create inserts the transaction header, its sub-transactions and rows
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	headerQuery := `
		INSERT INTO transactions (from_id, created_by_id, point_of_sale_id, point_of_sale_revision)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.querier.QueryRow(ctx, headerQuery, tx.FromID, tx.CreatedByID, tx.PointOfSaleID, tx.PointOfSaleRevision).
		Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create transaction", "from_id", tx.FromID, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	subQuery := `
		INSERT INTO sub_transactions (transaction_id, to_id, container_id, container_revision)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	rowQuery := `
		INSERT INTO sub_transaction_rows (sub_transaction_id, product_id, product_revision, product_name,
			price_incl_vat, vat_percentage, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	for _, sub := range tx.SubTransactions {
		sub.TransactionID = tx.ID
		if err := r.querier.QueryRow(ctx, subQuery, tx.ID, sub.ToID, sub.ContainerID, sub.ContainerRevision).Scan(&sub.ID); err != nil {
			r.logger.Error("Failed to create sub-transaction", "transaction_id", tx.ID, "to_id", sub.ToID, "error", err)
			return fmt.Errorf("failed to create sub-transaction: %w", err)
		}
		for _, row := range sub.Rows {
			row.SubTransactionID = sub.ID
			err := r.querier.QueryRow(ctx, rowQuery,
				sub.ID,
				row.ProductID,
				row.ProductRevision,
				row.ProductName,
				row.PriceInclVAT.Amount,
				row.VATPercentage,
				row.Amount,
			).Scan(&row.ID)
			if err != nil {
				r.logger.Error("Failed to create sub-transaction row", "sub_transaction_id", sub.ID, "error", err)
				return fmt.Errorf("failed to create sub-transaction row: %w", err)
			}
		}
	}

	return nil
}

// GetByID loads a transaction with all of its sub-transactions and rows
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*transaction.Transaction, error) {
	headerQuery := `
		SELECT id, from_id, created_by_id, point_of_sale_id, point_of_sale_revision, created_at, updated_at
		FROM transactions
		WHERE id = $1`

	var tx transaction.Transaction
	err := r.querier.QueryRow(ctx, headerQuery, id).Scan(
		&tx.ID,
		&tx.FromID,
		&tx.CreatedByID,
		&tx.PointOfSaleID,
		&tx.PointOfSaleRevision,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	rowsQuery := `
		SELECT s.id, s.to_id, s.container_id, s.container_revision,
			r.id, r.product_id, r.product_revision, r.product_name,
			r.price_incl_vat, r.vat_percentage, r.amount, r.invoice_id
		FROM sub_transactions s
		JOIN sub_transaction_rows r ON r.sub_transaction_id = s.id
		WHERE s.transaction_id = $1
		ORDER BY s.id, r.id`

	rows, err := r.querier.Query(ctx, rowsQuery, id)
	if err != nil {
		r.logger.Error("Failed to get transaction rows", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction rows: %w", err)
	}
	defer rows.Close()

	var current *transaction.SubTransaction
	for rows.Next() {
		var sub transaction.SubTransaction
		var row transaction.Row
		var price int64
		err := rows.Scan(
			&sub.ID, &sub.ToID, &sub.ContainerID, &sub.ContainerRevision,
			&row.ID, &row.ProductID, &row.ProductRevision, &row.ProductName,
			&price, &row.VATPercentage, &row.Amount, &row.InvoiceID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		if current == nil || current.ID != sub.ID {
			sub.TransactionID = id
			current = &sub
			tx.SubTransactions = append(tx.SubTransactions, current)
		}
		row.SubTransactionID = current.ID
		row.PriceInclVAT = r.money(price)
		current.Rows = append(current.Rows, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return &tx, nil
}

// ListByAccount returns headers of transactions the account bought or sold in, newest first
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT t.id, t.from_id, t.created_by_id, t.point_of_sale_id, t.point_of_sale_revision, t.created_at, t.updated_at
		FROM transactions t
		WHERE t.from_id = $1
			OR EXISTS (SELECT 1 FROM sub_transactions s WHERE s.transaction_id = t.id AND s.to_id = $1)
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		var tx transaction.Transaction
		if err := rows.Scan(&tx.ID, &tx.FromID, &tx.CreatedByID, &tx.PointOfSaleID, &tx.PointOfSaleRevision, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// CountByAccount counts transactions the account bought or sold in
func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions t
		WHERE t.from_id = $1
			OR EXISTS (SELECT 1 FROM sub_transactions s WHERE s.transaction_id = t.id AND s.to_id = $1)`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID, "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// lineItemQuery builds the filtered line item query; the role decides which
// side of the transaction the account is matched on
func lineItemQuery(filter transaction.RowFilter, lock bool) (string, []any) {
	var sb strings.Builder
	sb.WriteString(lineItemSelect)
	if filter.Role == transaction.RoleSeller {
		sb.WriteString("\n\t\tWHERE s.to_id = $1")
	} else {
		sb.WriteString("\n\t\tWHERE t.from_id = $1")
	}
	sb.WriteString(`
			AND ($2::bigint[] IS NULL OR t.id = ANY($2))
			AND ($3::timestamptz IS NULL OR t.created_at >= $3)
			AND ($4::timestamptz IS NULL OR t.created_at < $4)
			AND (NOT $5::boolean OR r.invoice_id IS NULL)
		ORDER BY r.id`)
	if lock {
		sb.WriteString("\n\t\tFOR UPDATE OF r")
	}

	var ids []int64
	if len(filter.TransactionIDs) > 0 {
		ids = filter.TransactionIDs
	}
	return sb.String(), []any{filter.AccountID, ids, filter.FromDate, filter.TillDate, filter.OnlyUninvoiced}
}

func (r *TransactionRepository) queryLineItems(ctx context.Context, filter transaction.RowFilter, lock bool) ([]*transaction.LineItem, error) {
	query, args := lineItemQuery(filter, lock)
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to select transaction rows", "account_id", filter.AccountID, "role", filter.Role, "error", err)
		return nil, fmt.Errorf("failed to select transaction rows: %w", err)
	}
	defer rows.Close()

	var items []*transaction.LineItem
	for rows.Next() {
		var item transaction.LineItem
		var price int64
		err := rows.Scan(
			&item.ID, &item.SubTransactionID, &item.ProductID, &item.ProductRevision, &item.ProductName,
			&price, &item.VATPercentage, &item.Amount, &item.InvoiceID,
			&item.TransactionID, &item.BuyerID, &item.SellerID, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		item.PriceInclVAT = r.money(price)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return items, nil
}

// LockRowsForInvoicing selects the candidate rows with FOR UPDATE so that two
// invoices over overlapping transactions cannot both claim a row
func (r *TransactionRepository) LockRowsForInvoicing(ctx context.Context, filter transaction.RowFilter) ([]*transaction.LineItem, error) {
	return r.queryLineItems(ctx, filter, true)
}

// ListLineItems selects rows for reporting without locking
func (r *TransactionRepository) ListLineItems(ctx context.Context, filter transaction.RowFilter) ([]*transaction.LineItem, error) {
	return r.queryLineItems(ctx, filter, false)
}

// LinkRowsToInvoice sets the invoice on rows that are still unlinked
func (r *TransactionRepository) LinkRowsToInvoice(ctx context.Context, invoiceID int64, rowIDs []int64) error {
	query := `
		UPDATE sub_transaction_rows
		SET invoice_id = $1, updated_at = NOW()
		WHERE id = ANY($2) AND invoice_id IS NULL`

	result, err := r.querier.Exec(ctx, query, invoiceID, rowIDs)
	if err != nil {
		r.logger.Error("Failed to link rows to invoice", "invoice_id", invoiceID, "error", err)
		return fmt.Errorf("failed to link rows to invoice: %w", err)
	}

	if result.RowsAffected() != int64(len(rowIDs)) {
		return transaction.ErrRowsClaimed{InvoiceID: invoiceID, Requested: len(rowIDs), Claimed: result.RowsAffected()}
	}
	return nil
}

// UnlinkInvoice clears the invoice reference of every row linked to it
func (r *TransactionRepository) UnlinkInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	query := `
		UPDATE sub_transaction_rows
		SET invoice_id = NULL, updated_at = NOW()
		WHERE invoice_id = $1`

	result, err := r.querier.Exec(ctx, query, invoiceID)
	if err != nil {
		r.logger.Error("Failed to unlink invoice rows", "invoice_id", invoiceID, "error", err)
		return 0, fmt.Errorf("failed to unlink invoice rows: %w", err)
	}
	return result.RowsAffected(), nil
}
