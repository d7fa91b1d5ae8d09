package service

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/balance"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/invoice"
	"github.com/sudosos-ledger/internal/domain/payout"
	"github.com/sudosos-ledger/internal/domain/transaction"
	"github.com/sudosos-ledger/internal/domain/transfer"
	"github.com/sudosos-ledger/internal/domain/writeoff"
)

// memState is everything a database transaction can change
type memState struct {
	accounts     map[int64]account.Account
	transfers    []transfer.Transfer
	transactions map[int64]transaction.Transaction
	rows         map[int64]transaction.LineItem
	invoices     map[int64]invoice.Invoice
	payouts      map[int64]payout.PayoutRequest
	writeOffs    []writeoff.WriteOff
	events       []*event.Event
}

func (st *memState) clone() *memState {
	c := &memState{
		accounts:     maps.Clone(st.accounts),
		transfers:    slices.Clone(st.transfers),
		transactions: maps.Clone(st.transactions),
		rows:         maps.Clone(st.rows),
		invoices:     make(map[int64]invoice.Invoice, len(st.invoices)),
		payouts:      make(map[int64]payout.PayoutRequest, len(st.payouts)),
		writeOffs:    slices.Clone(st.writeOffs),
		events:       slices.Clone(st.events),
	}
	for id, inv := range st.invoices {
		inv.Entries = slices.Clone(inv.Entries)
		inv.Statuses = slices.Clone(inv.Statuses)
		c.invoices[id] = inv
	}
	for id, p := range st.payouts {
		p.Statuses = slices.Clone(p.Statuses)
		c.payouts[id] = p
	}
	return c
}

// memStore is an in-memory ledger database. ExecuteTx serialises
// transactions and restores the pre-transaction state when fn fails. Ids come
// from a sequence that, like a Postgres sequence, is not rolled back.
type memStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	seq   int64
	ticks int64
	base  time.Time
	state *memState

	// lockLog records "accounts" and "rows" in the order locks were taken
	lockLog []string
}

func newMemStore() *memStore {
	return &memStore{
		base: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		state: &memState{
			accounts:     make(map[int64]account.Account),
			transactions: make(map[int64]transaction.Transaction),
			rows:         make(map[int64]transaction.LineItem),
			invoices:     make(map[int64]invoice.Invoice),
			payouts:      make(map[int64]payout.PayoutRequest),
		},
	}
}

func (s *memStore) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()
	return fn(nil)
}

func (s *memStore) restore(snapshot *memState) {
	s.mu.Lock()
	s.state = snapshot
	s.mu.Unlock()
}

// nextID and now expect s.mu to be held
func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) now() time.Time {
	s.ticks++
	return s.base.Add(time.Duration(s.ticks) * time.Second)
}

func (s *memStore) putAccount(a account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[a.ID] = a
}

func (s *memStore) allTransfers() []transfer.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.transfers)
}

func (s *memStore) allRows() []transaction.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]transaction.LineItem, 0, len(s.state.rows))
	for _, row := range s.state.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func (s *memStore) allEvents() []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.events)
}

func (s *memStore) logLock(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockLog = append(s.lockLog, kind)
}

func (s *memStore) locks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lockLog)
}

func (s *memStore) invoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.invoices)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

type memAccounts struct{ s *memStore }

func (r memAccounts) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.state.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &a, nil
}

func (r memAccounts) ListIDs(ctx context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]int64, 0, len(r.s.state.accounts))
	for id := range r.s.state.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r memAccounts) LockForUpdate(ctx context.Context, id int64) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r memAccounts) WithTx(tx pgx.Tx) account.Repository { return r }

type memBalances struct{ s *memStore }

func (r memBalances) aggregates() map[int64]*balance.Aggregate {
	aggs := make(map[int64]*balance.Aggregate)
	apply := func(accountID int64, delta int64, t transfer.Transfer) {
		agg, ok := aggs[accountID]
		if !ok {
			agg = &balance.Aggregate{AccountID: accountID}
			aggs[accountID] = agg
		}
		agg.Amount += delta
		if agg.LastTransferID == nil || t.ID > *agg.LastTransferID {
			id, created := t.ID, t.CreatedAt
			agg.LastTransferID = &id
			agg.LastTransferDate = &created
		}
	}
	for _, t := range r.s.state.transfers {
		if t.ToID != nil {
			apply(*t.ToID, t.Amount.Amount, t)
		}
		if t.FromID != nil {
			apply(*t.FromID, -t.Amount.Amount, t)
		}
	}
	return aggs
}

func (r memBalances) Get(ctx context.Context, accountID int64) (*balance.Aggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if agg, ok := r.aggregates()[accountID]; ok {
		return agg, nil
	}
	return &balance.Aggregate{AccountID: accountID}, nil
}

func (r memBalances) GetMany(ctx context.Context, accountIDs []int64) ([]*balance.Aggregate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []*balance.Aggregate
	for id, agg := range r.aggregates() {
		if accountIDs == nil || slices.Contains(accountIDs, id) {
			result = append(result, agg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AccountID < result[j].AccountID })
	return result, nil
}

func (r memBalances) WithTx(tx pgx.Tx) balance.Repository { return r }

type memCache struct {
	mu       sync.Mutex
	balances map[int64]*balance.Balance
}

func newMemCache() *memCache {
	return &memCache{balances: make(map[int64]*balance.Balance)}
}

func (c *memCache) Upsert(ctx context.Context, balances []*balance.Balance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range balances {
		c.balances[b.AccountID] = b
	}
	return nil
}

func (c *memCache) Get(ctx context.Context, accountID int64) (*balance.Balance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[accountID], nil
}

type memTransfers struct{ s *memStore }

func (r memTransfers) Create(ctx context.Context, t *transfer.Transfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextID()
	t.CreatedAt = r.s.now()
	r.s.state.transfers = append(r.s.state.transfers, *t)
	return nil
}

func (r memTransfers) GetByID(ctx context.Context, id int64) (*transfer.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.state.transfers {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, transfer.ErrTransferNotFound{TransferID: id}
}

func (r memTransfers) filter(match func(t *transfer.Transfer) bool) []*transfer.Transfer {
	var result []*transfer.Transfer
	for _, t := range r.s.state.transfers {
		t := t
		if match(&t) {
			result = append(result, &t)
		}
	}
	return result
}

func (r memTransfers) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transfer.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := r.filter(func(t *transfer.Transfer) bool { return t.Involves(accountID) })
	slices.Reverse(result)
	return page(result, limit, offset), nil
}

func (r memTransfers) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filter(func(t *transfer.Transfer) bool { return t.Involves(accountID) }))), nil
}

func (r memTransfers) ListByInvoice(ctx context.Context, invoiceID int64) ([]*transfer.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(t *transfer.Transfer) bool { return t.InvoiceID != nil && *t.InvoiceID == invoiceID }), nil
}

func (r memTransfers) ListByPayoutRequest(ctx context.Context, payoutRequestID int64) ([]*transfer.Transfer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(t *transfer.Transfer) bool {
		return t.PayoutRequestID != nil && *t.PayoutRequestID == payoutRequestID
	}), nil
}

func (r memTransfers) ExistsForAccount(ctx context.Context, accountID int64, description string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	found := r.filter(func(t *transfer.Transfer) bool { return t.Involves(accountID) && t.Description == description })
	return len(found) > 0, nil
}

func (r memTransfers) WithTx(tx pgx.Tx) transfer.Repository { return r }

type memTransactions struct{ s *memStore }

func (r memTransactions) Create(ctx context.Context, t *transaction.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t.ID = r.s.nextID()
	t.CreatedAt = r.s.now()
	t.UpdatedAt = t.CreatedAt

	header := *t
	header.SubTransactions = nil
	for _, sub := range t.SubTransactions {
		sub.ID = r.s.nextID()
		sub.TransactionID = t.ID
		for _, row := range sub.Rows {
			row.ID = r.s.nextID()
			row.SubTransactionID = sub.ID
			r.s.state.rows[row.ID] = transaction.LineItem{
				Row:           *row,
				TransactionID: t.ID,
				BuyerID:       t.FromID,
				SellerID:      sub.ToID,
				CreatedAt:     t.CreatedAt,
			}
		}
		stored := *sub
		stored.Rows = nil
		header.SubTransactions = append(header.SubTransactions, &stored)
	}
	r.s.state.transactions[t.ID] = header
	return nil
}

func (r memTransactions) GetByID(ctx context.Context, id int64) (*transaction.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	header, ok := r.s.state.transactions[id]
	if !ok {
		return nil, transaction.ErrTransactionNotFound{TransactionID: id}
	}
	t := header
	t.SubTransactions = nil
	for _, stored := range header.SubTransactions {
		sub := *stored
		for _, item := range r.sortedRows() {
			if item.SubTransactionID == sub.ID {
				row := item.Row
				sub.Rows = append(sub.Rows, &row)
			}
		}
		t.SubTransactions = append(t.SubTransactions, &sub)
	}
	return &t, nil
}

func (r memTransactions) sortedRows() []transaction.LineItem {
	rows := make([]transaction.LineItem, 0, len(r.s.state.rows))
	for _, row := range r.s.state.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func (r memTransactions) involving(accountID int64) []*transaction.Transaction {
	var result []*transaction.Transaction
	for _, header := range r.s.state.transactions {
		match := header.FromID == accountID
		for _, sub := range header.SubTransactions {
			match = match || sub.ToID == accountID
		}
		if match {
			t := header
			t.SubTransactions = nil
			result = append(result, &t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result
}

func (r memTransactions) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*transaction.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.involving(accountID), limit, offset), nil
}

func (r memTransactions) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.involving(accountID))), nil
}

func (r memTransactions) lineItems(filter transaction.RowFilter) []*transaction.LineItem {
	var result []*transaction.LineItem
	for _, item := range r.sortedRows() {
		item := item
		party := item.BuyerID
		if filter.Role == transaction.RoleSeller {
			party = item.SellerID
		}
		if party != filter.AccountID {
			continue
		}
		if len(filter.TransactionIDs) > 0 && !slices.Contains(filter.TransactionIDs, item.TransactionID) {
			continue
		}
		if filter.FromDate != nil && item.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.TillDate != nil && !item.CreatedAt.Before(*filter.TillDate) {
			continue
		}
		if filter.OnlyUninvoiced && item.InvoiceID != nil {
			continue
		}
		result = append(result, &item)
	}
	return result
}

func (r memTransactions) LockRowsForInvoicing(ctx context.Context, filter transaction.RowFilter) ([]*transaction.LineItem, error) {
	r.s.logLock("rows")
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.lineItems(filter), nil
}

func (r memTransactions) ListLineItems(ctx context.Context, filter transaction.RowFilter) ([]*transaction.LineItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.lineItems(filter), nil
}

func (r memTransactions) LinkRowsToInvoice(ctx context.Context, invoiceID int64, rowIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var claimed int64
	for _, id := range rowIDs {
		row, ok := r.s.state.rows[id]
		if !ok || row.InvoiceID != nil {
			continue
		}
		linked := invoiceID
		row.InvoiceID = &linked
		r.s.state.rows[id] = row
		claimed++
	}
	if claimed != int64(len(rowIDs)) {
		return transaction.ErrRowsClaimed{InvoiceID: invoiceID, Requested: len(rowIDs), Claimed: claimed}
	}
	return nil
}

func (r memTransactions) UnlinkInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	r.s.logLock("rows")
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var unlinked int64
	for id, row := range r.s.state.rows {
		if row.InvoiceID != nil && *row.InvoiceID == invoiceID {
			row.InvoiceID = nil
			r.s.state.rows[id] = row
			unlinked++
		}
	}
	return unlinked, nil
}

func (r memTransactions) WithTx(tx pgx.Tx) transaction.Repository { return r }

type memInvoices struct{ s *memStore }

func (r memInvoices) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv.ID = r.s.nextID()
	inv.CreatedAt = r.s.now()
	inv.UpdatedAt = inv.CreatedAt
	for _, e := range inv.Entries {
		e.ID = r.s.nextID()
		e.InvoiceID = inv.ID
	}
	inv.Statuses = []*invoice.Status{{ID: r.s.nextID(), InvoiceID: inv.ID, State: invoice.StateCreated, CreatedAt: inv.CreatedAt}}

	stored := *inv
	stored.Entries = slices.Clone(inv.Entries)
	stored.Statuses = slices.Clone(inv.Statuses)
	stored.Transfers = nil
	r.s.state.invoices[inv.ID] = stored
	return nil
}

func (r memInvoices) GetByID(ctx context.Context, id int64) (*invoice.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.state.invoices[id]
	if !ok {
		return nil, invoice.ErrInvoiceNotFound{InvoiceID: id}
	}
	inv.Entries = slices.Clone(inv.Entries)
	inv.Statuses = slices.Clone(inv.Statuses)
	return &inv, nil
}

func (r memInvoices) LockForUpdate(ctx context.Context, id int64) (*invoice.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r memInvoices) AddStatus(ctx context.Context, invoiceID int64, state invoice.State) (*invoice.Status, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.state.invoices[invoiceID]
	if !ok {
		return nil, invoice.ErrInvoiceNotFound{InvoiceID: invoiceID}
	}
	status := &invoice.Status{ID: r.s.nextID(), InvoiceID: invoiceID, State: state, CreatedAt: r.s.now()}
	inv.Statuses = append(slices.Clone(inv.Statuses), status)
	r.s.state.invoices[invoiceID] = inv
	return status, nil
}

func (r memInvoices) UpdateDetails(ctx context.Context, update *invoice.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.state.invoices[update.ID]
	if !ok {
		return invoice.ErrInvoiceNotFound{InvoiceID: update.ID}
	}
	inv.Address = update.Address
	inv.Reference = update.Reference
	inv.Description = update.Description
	inv.Date = update.Date
	inv.UpdatedAt = r.s.now()
	update.UpdatedAt = inv.UpdatedAt
	r.s.state.invoices[update.ID] = inv
	return nil
}

func (r memInvoices) LastInvoiceDate(ctx context.Context, accountID int64, credit bool) (*time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var last *time.Time
	for _, inv := range r.s.state.invoices {
		if inv.ToID != accountID || inv.IsCreditInvoice != credit || inv.State() == invoice.StateDeleted {
			continue
		}
		if last == nil || inv.CreatedAt.After(*last) {
			created := inv.CreatedAt
			last = &created
		}
	}
	return last, nil
}

func (r memInvoices) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*invoice.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []*invoice.Invoice
	for _, inv := range r.s.state.invoices {
		inv := inv
		if inv.ToID == accountID {
			inv.Statuses = slices.Clone(inv.Statuses)
			result = append(result, &inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return page(result, limit, offset), nil
}

func (r memInvoices) WithTx(tx pgx.Tx) invoice.Repository { return r }

type memPayouts struct{ s *memStore }

func (r memPayouts) Create(ctx context.Context, request *payout.PayoutRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request.ID = r.s.nextID()
	request.CreatedAt = r.s.now()
	request.UpdatedAt = request.CreatedAt
	request.Statuses = []*payout.Status{{
		ID: r.s.nextID(), PayoutRequestID: request.ID, State: payout.StateCreated, CreatedAt: request.CreatedAt,
	}}
	stored := *request
	stored.Statuses = slices.Clone(request.Statuses)
	stored.Transfers = nil
	r.s.state.payouts[request.ID] = stored
	return nil
}

func (r memPayouts) GetByID(ctx context.Context, id int64) (*payout.PayoutRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.state.payouts[id]
	if !ok {
		return nil, payout.ErrPayoutRequestNotFound{PayoutRequestID: id}
	}
	request.Statuses = slices.Clone(request.Statuses)
	return &request, nil
}

func (r memPayouts) LockForUpdate(ctx context.Context, id int64) (*payout.PayoutRequest, error) {
	return r.GetByID(ctx, id)
}

func (r memPayouts) AddStatus(ctx context.Context, payoutRequestID int64, state payout.State) (*payout.Status, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.state.payouts[payoutRequestID]
	if !ok {
		return nil, payout.ErrPayoutRequestNotFound{PayoutRequestID: payoutRequestID}
	}
	status := &payout.Status{ID: r.s.nextID(), PayoutRequestID: payoutRequestID, State: state, CreatedAt: r.s.now()}
	request.Statuses = append(slices.Clone(request.Statuses), status)
	r.s.state.payouts[payoutRequestID] = request
	return status, nil
}

func (r memPayouts) SetApprovedBy(ctx context.Context, payoutRequestID, approvedByID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.state.payouts[payoutRequestID]
	if !ok {
		return payout.ErrPayoutRequestNotFound{PayoutRequestID: payoutRequestID}
	}
	approver := approvedByID
	request.ApprovedByID = &approver
	r.s.state.payouts[payoutRequestID] = request
	return nil
}

func (r memPayouts) ListByRequester(ctx context.Context, requestedByID int64, limit, offset int) ([]*payout.PayoutRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []*payout.PayoutRequest
	for _, request := range r.s.state.payouts {
		request := request
		if request.RequestedByID == requestedByID {
			request.Statuses = slices.Clone(request.Statuses)
			result = append(result, &request)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return page(result, limit, offset), nil
}

func (r memPayouts) WithTx(tx pgx.Tx) payout.Repository { return r }

type memWriteOffs struct{ s *memStore }

func (r memWriteOffs) Create(ctx context.Context, w *writeoff.WriteOff) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w.ID = r.s.nextID()
	w.CreatedAt = r.s.now()
	stored := *w
	stored.Transfer = nil
	r.s.state.writeOffs = append(r.s.state.writeOffs, stored)
	return nil
}

func (r memWriteOffs) GetByID(ctx context.Context, id int64) (*writeoff.WriteOff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.state.writeOffs {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, writeoff.ErrWriteOffNotFound{WriteOffID: id}
}

func (r memWriteOffs) List(ctx context.Context, limit, offset int) ([]*writeoff.WriteOff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]*writeoff.WriteOff, 0, len(r.s.state.writeOffs))
	for _, w := range r.s.state.writeOffs {
		w := w
		result = append(result, &w)
	}
	slices.Reverse(result)
	return page(result, limit, offset), nil
}

func (r memWriteOffs) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.state.writeOffs)), nil
}

func (r memWriteOffs) WithTx(tx pgx.Tx) writeoff.Repository { return r }

// memLocker records every lock request so tests can check the lock order
type memLocker struct {
	s      *memStore
	mu     sync.Mutex
	orders [][]int64
}

func (l *memLocker) LockAccounts(ctx context.Context, tx pgx.Tx, ids ...int64) (map[int64]*account.Account, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	l.mu.Lock()
	l.orders = append(l.orders, sorted)
	l.mu.Unlock()
	l.s.logLock("accounts")

	accounts := make(map[int64]*account.Account, len(sorted))
	for _, id := range sorted {
		a, err := memAccounts{l.s}.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = a
	}
	return accounts, nil
}

type memRecorder struct{ s *memStore }

func (r memRecorder) Record(ctx context.Context, tx pgx.Tx, events ...*event.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.state.events = append(r.s.state.events, events...)
	return nil
}
