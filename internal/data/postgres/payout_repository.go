package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/payout"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

const payoutColumns = `id, requested_by_id, approved_by_id, amount, bank_account_number, bank_account_name, created_at, updated_at`

// PayoutRepository implements the payout.Repository interface for PostgreSQL
type PayoutRepository struct {
	querier persistence.Querier
	ledger  config.LedgerConfig
	logger  *slog.Logger
}

// NewPayoutRepository creates a new PostgreSQL payout request repository
func NewPayoutRepository(logger *slog.Logger, db *persistence.PostgresDB, ledger config.LedgerConfig) payout.Repository {
	return &PayoutRepository{
		querier: db.Pool(),
		ledger:  ledger,
		logger:  logger,
	}
}

// WithTx returns a repository that runs every query on tx
func (r *PayoutRepository) WithTx(tx pgx.Tx) payout.Repository {
	return &PayoutRepository{
		querier: tx,
		ledger:  r.ledger,
		logger:  r.logger,
	}
}

func (r *PayoutRepository) scan(row pgx.Row) (*payout.PayoutRequest, error) {
	var request payout.PayoutRequest
	var amount int64
	err := row.Scan(
		&request.ID,
		&request.RequestedByID,
		&request.ApprovedByID,
		&amount,
		&request.BankAccountNumber,
		&request.BankAccountName,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	request.Amount = money.New(amount, r.ledger.Currency, r.ledger.Precision)
	return &request, nil
}

// Create inserts the request and its initial CREATED status
func (r *PayoutRepository) Create(ctx context.Context, request *payout.PayoutRequest) error {
	query := `
		INSERT INTO payout_requests (requested_by_id, amount, bank_account_number, bank_account_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.querier.QueryRow(ctx, query,
		request.RequestedByID,
		request.Amount.Amount,
		request.BankAccountNumber,
		request.BankAccountName,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create payout request", "requested_by_id", request.RequestedByID, "error", err)
		return fmt.Errorf("failed to create payout request: %w", err)
	}

	status, err := r.AddStatus(ctx, request.ID, payout.StateCreated)
	if err != nil {
		return err
	}
	request.Statuses = []*payout.Status{status}
	return nil
}

// GetByID loads a payout request with its status history
func (r *PayoutRepository) GetByID(ctx context.Context, id int64) (*payout.PayoutRequest, error) {
	return r.load(ctx, id, false)
}

// LockForUpdate locks the request row for the rest of the transaction
func (r *PayoutRepository) LockForUpdate(ctx context.Context, id int64) (*payout.PayoutRequest, error) {
	return r.load(ctx, id, true)
}

func (r *PayoutRepository) load(ctx context.Context, id int64, lock bool) (*payout.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	request, err := r.scan(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payout.ErrPayoutRequestNotFound{PayoutRequestID: id}
		}
		r.logger.Error("Failed to get payout request", "payout_request_id", id, "error", err)
		return nil, fmt.Errorf("failed to get payout request: %w", err)
	}

	statuses, err := r.statuses(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	request.Statuses = statuses[id]
	return request, nil
}

func (r *PayoutRepository) statuses(ctx context.Context, ids []int64) (map[int64][]*payout.Status, error) {
	query := `
		SELECT id, payout_request_id, state, created_at
		FROM payout_request_statuses
		WHERE payout_request_id = ANY($1)
		ORDER BY created_at, id`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to get payout request statuses", "error", err)
		return nil, fmt.Errorf("failed to get payout request statuses: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]*payout.Status, len(ids))
	for rows.Next() {
		var status payout.Status
		if err := rows.Scan(&status.ID, &status.PayoutRequestID, &status.State, &status.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout request status: %w", err)
		}
		result[status.PayoutRequestID] = append(result[status.PayoutRequestID], &status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payout request statuses: %w", err)
	}
	return result, nil
}

// AddStatus appends a state to the request history
func (r *PayoutRepository) AddStatus(ctx context.Context, payoutRequestID int64, state payout.State) (*payout.Status, error) {
	query := `
		INSERT INTO payout_request_statuses (payout_request_id, state)
		VALUES ($1, $2)
		RETURNING id, created_at`

	status := &payout.Status{PayoutRequestID: payoutRequestID, State: state}
	if err := r.querier.QueryRow(ctx, query, payoutRequestID, state).Scan(&status.ID, &status.CreatedAt); err != nil {
		r.logger.Error("Failed to add payout request status", "payout_request_id", payoutRequestID, "state", state, "error", err)
		return nil, fmt.Errorf("failed to add payout request status: %w", err)
	}
	return status, nil
}

// SetApprovedBy records the approving account
func (r *PayoutRepository) SetApprovedBy(ctx context.Context, payoutRequestID, approvedByID int64) error {
	query := `
		UPDATE payout_requests
		SET approved_by_id = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, approvedByID, payoutRequestID)
	if err != nil {
		r.logger.Error("Failed to set payout approver", "payout_request_id", payoutRequestID, "error", err)
		return fmt.Errorf("failed to set payout approver: %w", err)
	}
	if result.RowsAffected() == 0 {
		return payout.ErrPayoutRequestNotFound{PayoutRequestID: payoutRequestID}
	}
	return nil
}

// ListByRequester returns the requests of an account with their statuses, newest first
func (r *PayoutRepository) ListByRequester(ctx context.Context, requestedByID int64, limit, offset int) ([]*payout.PayoutRequest, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE requested_by_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, requestedByID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list payout requests", "requested_by_id", requestedByID, "error", err)
		return nil, fmt.Errorf("failed to list payout requests: %w", err)
	}

	var requests []*payout.PayoutRequest
	var ids []int64
	for rows.Next() {
		request, err := r.scan(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan payout request: %w", err)
		}
		requests = append(requests, request)
		ids = append(ids, request.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payout requests: %w", err)
	}
	if len(requests) == 0 {
		return requests, nil
	}

	statuses, err := r.statuses(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, request := range requests {
		request.Statuses = statuses[request.ID]
	}
	return requests, nil
}
