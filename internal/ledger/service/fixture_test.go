package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/transaction"
	"github.com/sudosos-ledger/internal/domain/transfer"
)

var testLedger = config.LedgerConfig{Currency: "EUR", Precision: 2, BalanceChunkSize: 2}

const (
	buyerID  int64 = 1
	sellerID int64 = 2
	otherID  int64 = 3
	adminID  int64 = 9
)

type ledgerFixture struct {
	store  *memStore
	locker *memLocker
	cache  *memCache

	transfers    *TransferService
	balances     *BalanceService
	transactions *TransactionService
	invoices     *InvoiceService
	writeOffs    *WriteOffService
	payouts      *PayoutService
	summary      *SummaryService
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	store := newMemStore()
	locker := &memLocker{s: store}
	cache := newMemCache()
	recorder := memRecorder{s: store}
	log := newTestLogger()

	for _, id := range []int64{buyerID, sellerID, otherID, adminID} {
		store.putAccount(account.Account{ID: id, Active: true})
	}

	transferSvc := NewTransferService(store, memTransfers{store}, locker, recorder, testLedger, log)
	balanceSvc, err := NewBalanceService(store, memBalances{store}, memAccounts{store}, cache, recorder, 4, testLedger, log)
	require.NoError(t, err)
	t.Cleanup(balanceSvc.Shutdown)

	return &ledgerFixture{
		store:        store,
		locker:       locker,
		cache:        cache,
		transfers:    transferSvc,
		balances:     balanceSvc,
		transactions: NewTransactionService(store, memTransactions{store}, memAccounts{store}, recorder, testLedger, log),
		invoices: NewInvoiceService(store, memInvoices{store}, memTransactions{store}, memTransfers{store},
			transferSvc, locker, recorder, testLedger, log),
		writeOffs: NewWriteOffService(store, memWriteOffs{store}, memTransfers{store}, balanceSvc, transferSvc,
			locker, recorder, log),
		payouts: NewPayoutService(store, memPayouts{store}, memTransfers{store}, memAccounts{store}, balanceSvc,
			transferSvc, locker, recorder, testLedger, log),
		summary: NewSummaryService(memTransactions{store}, testLedger, log),
	}
}

func eur(amount int64) money.Money {
	return money.New(amount, testLedger.Currency, testLedger.Precision)
}

func int64Ptr(v int64) *int64 {
	return &v
}

// buy records a purchase of one unit per price from seller
func (f *ledgerFixture) buy(t *testing.T, buyer, seller int64, prices ...int64) *transaction.Transaction {
	t.Helper()
	rows := make([]*transaction.Row, 0, len(prices))
	for i, price := range prices {
		rows = append(rows, &transaction.Row{
			ProductID:       int64(100 + i),
			ProductRevision: 1,
			ProductName:     "Product",
			PriceInclVAT:    eur(price),
			VATPercentage:   21,
			Amount:          1,
		})
	}
	tx, err := f.transactions.CreateTransaction(context.Background(), &transaction.Transaction{
		FromID:              buyer,
		CreatedByID:         buyer,
		PointOfSaleID:       1,
		PointOfSaleRevision: 1,
		SubTransactions: []*transaction.SubTransaction{
			{ToID: seller, ContainerID: 1, ContainerRevision: 1, Rows: rows},
		},
	})
	require.NoError(t, err)
	return tx
}

func (f *ledgerFixture) deposit(t *testing.T, accountID, amount int64) *transfer.Transfer {
	t.Helper()
	tr, err := f.transfers.CreateTransfer(context.Background(), CreateTransferParams{
		ToID: int64Ptr(accountID), Amount: eur(amount), Description: "Deposit",
	})
	require.NoError(t, err)
	return tr
}

func (f *ledgerFixture) withdraw(t *testing.T, accountID, amount int64) *transfer.Transfer {
	t.Helper()
	tr, err := f.transfers.CreateTransfer(context.Background(), CreateTransferParams{
		FromID: int64Ptr(accountID), Amount: eur(amount), Description: "Correction",
	})
	require.NoError(t, err)
	return tr
}

func (f *ledgerFixture) balance(t *testing.T, accountID int64) int64 {
	t.Helper()
	b, err := f.balances.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return b.Amount.Amount
}

// rawBalance sums the transfers of an account without going through the service
func (f *ledgerFixture) rawBalance(accountID int64) int64 {
	var sum int64
	for _, tr := range f.store.allTransfers() {
		if tr.ToID != nil && *tr.ToID == accountID {
			sum += tr.Amount.Amount
		}
		if tr.FromID != nil && *tr.FromID == accountID {
			sum -= tr.Amount.Amount
		}
	}
	return sum
}

func (f *ledgerFixture) transfersOfInvoice(invoiceID int64) []transfer.Transfer {
	var result []transfer.Transfer
	for _, tr := range f.store.allTransfers() {
		if tr.InvoiceID != nil && *tr.InvoiceID == invoiceID {
			result = append(result, tr)
		}
	}
	return result
}
