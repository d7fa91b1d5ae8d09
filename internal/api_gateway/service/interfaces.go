// Package service declares what the HTTP layer needs from the ledger.
// The ledger services satisfy these interfaces directly.
package service

import (
	"context"

	"github.com/sudosos-ledger/internal/domain/balance"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/invoice"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/payout"
	"github.com/sudosos-ledger/internal/domain/transaction"
	"github.com/sudosos-ledger/internal/domain/transfer"
	"github.com/sudosos-ledger/internal/domain/writeoff"
	ledger "github.com/sudosos-ledger/internal/ledger/service"
)

type BalanceService interface {
	GetBalance(ctx context.Context, accountID int64) (*balance.Balance, error)
	GetBalances(ctx context.Context, accountIDs []int64) ([]*balance.Balance, error)
	// UpdateBalances refreshes the balance cache; nil ids means every account
	UpdateBalances(ctx context.Context, accountIDs []int64) (int, error)
}

type TransferService interface {
	CreateTransfer(ctx context.Context, params ledger.CreateTransferParams) (*transfer.Transfer, error)
	GetTransfer(ctx context.Context, id int64) (*transfer.Transfer, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transfer.Transfer, int64, error)
}

type TransactionService interface {
	CreateTransaction(ctx context.Context, t *transaction.Transaction) (*transaction.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*transaction.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transaction.Transaction, int64, error)
}

type InvoiceService interface {
	CreateInvoice(ctx context.Context, params ledger.CreateInvoiceParams) (*invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, params ledger.UpdateInvoiceParams) (*invoice.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID, byID int64) (*invoice.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*invoice.Invoice, error)
}

type WriteOffService interface {
	CreateWriteOff(ctx context.Context, accountID int64) (*writeoff.WriteOff, error)
	GetWriteOff(ctx context.Context, id int64) (*writeoff.WriteOff, error)
	ListWriteOffs(ctx context.Context, limit, offset int) ([]*writeoff.WriteOff, int64, error)
}

type PayoutService interface {
	CreatePayoutRequest(ctx context.Context, params ledger.CreatePayoutParams) (*payout.PayoutRequest, error)
	GetPayoutRequest(ctx context.Context, id int64) (*payout.PayoutRequest, error)
	UpdateStatus(ctx context.Context, id int64, next payout.State, actorID int64) (*payout.PayoutRequest, error)
}

type SummaryService interface {
	GetSummary(ctx context.Context, params ledger.SummaryParams) (*ledger.Summary, error)
	UninvoicedExposure(ctx context.Context, accountID int64) (money.Money, error)
}

// ActivityService reads the published event log
type ActivityService interface {
	ListByAccount(ctx context.Context, accountID int64, page, perPage int) ([]*event.Event, int64, error)
}

// Services bundles everything the router exposes
type Services struct {
	Balances     BalanceService
	Transfers    TransferService
	Transactions TransactionService
	Invoices     InvoiceService
	WriteOffs    WriteOffService
	Payouts      PayoutService
	Summary      SummaryService
	Activity     ActivityService
}
