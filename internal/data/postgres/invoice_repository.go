package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/invoice"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

const invoiceColumns = `id, to_id, by_id, is_credit_invoice, addressee, street, postal_code, city, country,
		reference, description, invoice_date, created_at, updated_at`

// InvoiceRepository implements the invoice.Repository interface for PostgreSQL
type InvoiceRepository struct {
	querier persistence.Querier
	ledger  config.LedgerConfig
	logger  *slog.Logger
}

// NewInvoiceRepository creates a new PostgreSQL invoice repository
func NewInvoiceRepository(logger *slog.Logger, db *persistence.PostgresDB, ledger config.LedgerConfig) invoice.Repository {
	return &InvoiceRepository{
		querier: db.Pool(),
		ledger:  ledger,
		logger:  logger,
	}
}

// WithTx returns a repository that runs every query on tx
func (r *InvoiceRepository) WithTx(tx pgx.Tx) invoice.Repository {
	return &InvoiceRepository{
		querier: tx,
		ledger:  r.ledger,
		logger:  r.logger,
	}
}

func scanInvoice(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.ToID,
		&inv.ByID,
		&inv.IsCreditInvoice,
		&inv.Address.Addressee,
		&inv.Address.Street,
		&inv.Address.PostalCode,
		&inv.Address.City,
		&inv.Address.Country,
		&inv.Reference,
		&inv.Description,
		&inv.Date,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts the invoice header, its entries and the initial CREATED status
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (to_id, by_id, is_credit_invoice, addressee, street, postal_code, city, country,
			reference, description, invoice_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := r.querier.QueryRow(ctx, query,
		inv.ToID,
		inv.ByID,
		inv.IsCreditInvoice,
		inv.Address.Addressee,
		inv.Address.Street,
		inv.Address.PostalCode,
		inv.Address.City,
		inv.Address.Country,
		inv.Reference,
		inv.Description,
		inv.Date,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create invoice", "to_id", inv.ToID, "error", err)
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	entryQuery := `
		INSERT INTO invoice_entries (invoice_id, row_id, description, amount, price_incl_vat, vat_percentage)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	for _, entry := range inv.Entries {
		entry.InvoiceID = inv.ID
		err := r.querier.QueryRow(ctx, entryQuery,
			inv.ID,
			entry.RowID,
			entry.Description,
			entry.Amount,
			entry.PriceInclVAT.Amount,
			entry.VATPercentage,
		).Scan(&entry.ID)
		if err != nil {
			r.logger.Error("Failed to create invoice entry", "invoice_id", inv.ID, "error", err)
			return fmt.Errorf("failed to create invoice entry: %w", err)
		}
	}

	status, err := r.AddStatus(ctx, inv.ID, invoice.StateCreated)
	if err != nil {
		return err
	}
	inv.Statuses = []*invoice.Status{status}

	return nil
}

// GetByID loads an invoice with its entries and status history
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*invoice.Invoice, error) {
	return r.load(ctx, id, false)
}

// LockForUpdate locks the invoice row for the rest of the transaction
func (r *InvoiceRepository) LockForUpdate(ctx context.Context, id int64) (*invoice.Invoice, error) {
	return r.load(ctx, id, true)
}

func (r *InvoiceRepository) load(ctx context.Context, id int64, lock bool) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound{InvoiceID: id}
		}
		r.logger.Error("Failed to get invoice", "invoice_id", id, "error", err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if inv.Entries, err = r.entries(ctx, id); err != nil {
		return nil, err
	}
	statuses, err := r.statuses(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	inv.Statuses = statuses[id]

	return inv, nil
}

func (r *InvoiceRepository) entries(ctx context.Context, invoiceID int64) ([]*invoice.Entry, error) {
	query := `
		SELECT id, invoice_id, row_id, description, amount, price_incl_vat, vat_percentage
		FROM invoice_entries
		WHERE invoice_id = $1
		ORDER BY id`

	rows, err := r.querier.Query(ctx, query, invoiceID)
	if err != nil {
		r.logger.Error("Failed to get invoice entries", "invoice_id", invoiceID, "error", err)
		return nil, fmt.Errorf("failed to get invoice entries: %w", err)
	}
	defer rows.Close()

	var entries []*invoice.Entry
	for rows.Next() {
		var entry invoice.Entry
		var price int64
		if err := rows.Scan(&entry.ID, &entry.InvoiceID, &entry.RowID, &entry.Description, &entry.Amount, &price, &entry.VATPercentage); err != nil {
			return nil, fmt.Errorf("failed to scan invoice entry: %w", err)
		}
		entry.PriceInclVAT = money.New(price, r.ledger.Currency, r.ledger.Precision)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice entries: %w", err)
	}
	return entries, nil
}

func (r *InvoiceRepository) statuses(ctx context.Context, invoiceIDs []int64) (map[int64][]*invoice.Status, error) {
	query := `
		SELECT id, invoice_id, state, created_at
		FROM invoice_statuses
		WHERE invoice_id = ANY($1)
		ORDER BY created_at, id`

	rows, err := r.querier.Query(ctx, query, invoiceIDs)
	if err != nil {
		r.logger.Error("Failed to get invoice statuses", "error", err)
		return nil, fmt.Errorf("failed to get invoice statuses: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]*invoice.Status, len(invoiceIDs))
	for rows.Next() {
		var status invoice.Status
		if err := rows.Scan(&status.ID, &status.InvoiceID, &status.State, &status.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice status: %w", err)
		}
		result[status.InvoiceID] = append(result[status.InvoiceID], &status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice statuses: %w", err)
	}
	return result, nil
}

// AddStatus appends a state to the invoice history
func (r *InvoiceRepository) AddStatus(ctx context.Context, invoiceID int64, state invoice.State) (*invoice.Status, error) {
	query := `
		INSERT INTO invoice_statuses (invoice_id, state)
		VALUES ($1, $2)
		RETURNING id, created_at`

	status := &invoice.Status{InvoiceID: invoiceID, State: state}
	if err := r.querier.QueryRow(ctx, query, invoiceID, state).Scan(&status.ID, &status.CreatedAt); err != nil {
		r.logger.Error("Failed to add invoice status", "invoice_id", invoiceID, "state", state, "error", err)
		return nil, fmt.Errorf("failed to add invoice status: %w", err)
	}
	return status, nil
}

// UpdateDetails rewrites the descriptive fields; amounts and entries are immutable
func (r *InvoiceRepository) UpdateDetails(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices
		SET addressee = $1, street = $2, postal_code = $3, city = $4, country = $5,
			reference = $6, description = $7, invoice_date = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`

	err := r.querier.QueryRow(ctx, query,
		inv.Address.Addressee,
		inv.Address.Street,
		inv.Address.PostalCode,
		inv.Address.City,
		inv.Address.Country,
		inv.Reference,
		inv.Description,
		inv.Date,
		inv.ID,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invoice.ErrInvoiceNotFound{InvoiceID: inv.ID}
		}
		r.logger.Error("Failed to update invoice", "invoice_id", inv.ID, "error", err)
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

// LastInvoiceDate returns when the latest non-deleted invoice of the given kind was created
func (r *InvoiceRepository) LastInvoiceDate(ctx context.Context, accountID int64, credit bool) (*time.Time, error) {
	query := `
		SELECT MAX(i.created_at)
		FROM invoices i
		WHERE i.to_id = $1 AND i.is_credit_invoice = $2
			AND (SELECT s.state FROM invoice_statuses s WHERE s.invoice_id = i.id
				ORDER BY s.created_at DESC, s.id DESC LIMIT 1) <> 'DELETED'`

	var last *time.Time
	if err := r.querier.QueryRow(ctx, query, accountID, credit).Scan(&last); err != nil {
		r.logger.Error("Failed to get last invoice date", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to get last invoice date: %w", err)
	}
	return last, nil
}

// ListByAccount returns invoices addressed to the account with their statuses, newest first
func (r *InvoiceRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE to_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list invoices", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	var invoices []*invoice.Invoice
	var ids []int64
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
		ids = append(ids, inv.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	statuses, err := r.statuses(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		inv.Statuses = statuses[inv.ID]
	}
	return invoices, nil
}
