package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/payout"
	"github.com/sudosos-ledger/internal/domain/transfer"
	"github.com/sudosos-ledger/internal/logger"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

// CreatePayoutParams describes a withdrawal request
type CreatePayoutParams struct {
	RequestedByID     int64
	Amount            money.Money
	BankAccountNumber string
	BankAccountName   string
}

// PayoutService runs the payout request state machine
type PayoutService struct {
	db          persistence.TxExecutor
	payouts     payout.Repository
	transfers   transfer.Repository
	accounts    account.Repository
	balanceSvc  *BalanceService
	transferSvc *TransferService
	locker      AccountLocker
	events      EventRecorder
	ledger      config.LedgerConfig
	logger      *slog.Logger
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(
	db persistence.TxExecutor,
	payouts payout.Repository,
	transfers transfer.Repository,
	accounts account.Repository,
	balanceSvc *BalanceService,
	transferSvc *TransferService,
	locker AccountLocker,
	events EventRecorder,
	ledger config.LedgerConfig,
	logger *slog.Logger,
) *PayoutService {
	return &PayoutService{
		db:          db,
		payouts:     payouts,
		transfers:   transfers,
		accounts:    accounts,
		balanceSvc:  balanceSvc,
		transferSvc: transferSvc,
		locker:      locker,
		events:      events,
		ledger:      ledger,
		logger:      logger,
	}
}

// CreatePayoutRequest stores a request in state CREATED. No money moves yet.
func (s *PayoutService) CreatePayoutRequest(ctx context.Context, params CreatePayoutParams) (*payout.PayoutRequest, error) {
	log := logger.ForContext(ctx, s.logger).With("requested_by_id", params.RequestedByID)

	request, err := payout.NewPayoutRequest(params.RequestedByID, params.Amount, params.BankAccountNumber, params.BankAccountName)
	if err != nil {
		return nil, err
	}
	if params.Amount.Currency != s.ledger.Currency || params.Amount.Precision != s.ledger.Precision {
		return nil, transfer.ErrWrongCurrency
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		requester, err := s.accounts.WithTx(tx).GetByID(ctx, params.RequestedByID)
		if err != nil {
			return err
		}
		if !requester.IsUsable() {
			return account.ErrAccountInactive{AccountID: requester.ID}
		}

		if err := s.payouts.WithTx(tx).Create(ctx, request); err != nil {
			return err
		}

		e := event.New(event.TypePayoutCreated, request.ID, request.RequestedByID).
			WithAmount(request.Amount).
			WithState(string(payout.StateCreated))
		return s.events.Record(ctx, tx, e)
	})
	if err != nil {
		log.Warn("Failed to create payout request", "error", err)
		return nil, err
	}

	log.Info("Payout request created", "payout_request_id", request.ID, "amount", request.Amount.String())
	return request, nil
}

// UpdateStatus appends the next status. Approval books the transfer from the
// requester to the payout sink in the same transaction, exactly once, since
// APPROVED is terminal.
func (s *PayoutService) UpdateStatus(ctx context.Context, id int64, next payout.State, actorID int64) (*payout.PayoutRequest, error) {
	log := logger.ForContext(ctx, s.logger).With("payout_request_id", id, "state", next, "actor_id", actorID)

	var request *payout.PayoutRequest
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		request, err = s.payouts.WithTx(tx).LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := request.CheckTransition(next, actorID); err != nil {
			return err
		}

		if next == payout.StateApproved {
			if err := s.approve(ctx, tx, request, actorID); err != nil {
				return err
			}
		}

		status, err := s.payouts.WithTx(tx).AddStatus(ctx, id, next)
		if err != nil {
			return err
		}
		request.Statuses = append(request.Statuses, status)

		e := event.New(event.TypePayoutStatusChanged, id, request.RequestedByID).
			WithAmount(request.Amount).
			WithState(string(next))
		return s.events.Record(ctx, tx, e)
	})
	if err != nil {
		log.Warn("Failed to update payout request status", "error", err)
		return nil, err
	}

	log.Info("Payout request status updated")
	return request, nil
}

func (s *PayoutService) approve(ctx context.Context, tx pgx.Tx, request *payout.PayoutRequest, approverID int64) error {
	locked, err := s.locker.LockAccounts(ctx, tx, request.RequestedByID)
	if err != nil {
		return err
	}

	bal, err := s.balanceSvc.BalanceInTx(ctx, tx, request.RequestedByID)
	if err != nil {
		return err
	}
	if bal.Amount.Amount < request.Amount.Amount && !locked[request.RequestedByID].CanGoIntoDebt {
		return payout.ErrInsufficientBalance{AccountID: request.RequestedByID, Balance: bal.Amount, Requested: request.Amount}
	}

	if err := s.payouts.WithTx(tx).SetApprovedBy(ctx, request.ID, approverID); err != nil {
		return err
	}
	request.ApprovedByID = &approverID

	fromID := request.RequestedByID
	payoutID := request.ID
	t := &transfer.Transfer{
		FromID:          &fromID,
		Amount:          request.Amount,
		Description:     fmt.Sprintf("Payout request #%d", request.ID),
		PayoutRequestID: &payoutID,
	}
	if err := s.transferSvc.CreateInTx(ctx, tx, t); err != nil {
		return err
	}
	request.Transfers = append(request.Transfers, t)
	return nil
}

// GetPayoutRequest returns a request with its status history and transfer
func (s *PayoutService) GetPayoutRequest(ctx context.Context, id int64) (*payout.PayoutRequest, error) {
	request, err := s.payouts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Transfers, err = s.transfers.ListByPayoutRequest(ctx, id); err != nil {
		return nil, err
	}
	return request, nil
}

// ListByRequester returns a page of the account's payout requests
func (s *PayoutService) ListByRequester(ctx context.Context, requestedByID int64, limit, offset int) ([]*payout.PayoutRequest, error) {
	return s.payouts.ListByRequester(ctx, requestedByID, limit, offset)
}
