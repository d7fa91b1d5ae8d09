package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/invoice"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
	"github.com/sudosos-ledger/internal/domain/transaction"
	"github.com/sudosos-ledger/internal/domain/transfer"
	"github.com/sudosos-ledger/internal/logger"
	"github.com/sudosos-ledger/internal/platform/persistence"
)

// CreateInvoiceParams selects the rows to invoice. Explicit TransactionIDs
// take precedence over FromDate; without either, rows since the last invoice
// of the same kind are selected.
type CreateInvoiceParams struct {
	ForID           int64
	ByID            int64
	TransactionIDs  []int64
	FromDate        *time.Time
	IsCreditInvoice bool
	// Amount, when set, must equal the sum of the selected rows
	Amount      *money.Money
	Address     invoice.Address
	Reference   string
	Description string
	Date        *time.Time
}

// UpdateInvoiceParams changes state and/or descriptive fields. Nil fields are left as they are.
type UpdateInvoiceParams struct {
	InvoiceID   int64
	ByID        int64
	State       *invoice.State
	Address     *invoice.Address
	Reference   *string
	Description *string
	Date        *time.Time
}

// InvoiceService turns uninvoiced transaction rows into settled transfers and
// reverses them again when an invoice is deleted
type InvoiceService struct {
	db           persistence.TxExecutor
	invoices     invoice.Repository
	transactions transaction.Repository
	transfers    transfer.Repository
	transferSvc  *TransferService
	locker       AccountLocker
	events       EventRecorder
	ledger       config.LedgerConfig
	logger       *slog.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	db persistence.TxExecutor,
	invoices invoice.Repository,
	transactions transaction.Repository,
	transfers transfer.Repository,
	transferSvc *TransferService,
	locker AccountLocker,
	events EventRecorder,
	ledger config.LedgerConfig,
	logger *slog.Logger,
) *InvoiceService {
	return &InvoiceService{
		db:           db,
		invoices:     invoices,
		transactions: transactions,
		transfers:    transfers,
		transferSvc:  transferSvc,
		locker:       locker,
		events:       events,
		ledger:       ledger,
		logger:       logger,
	}
}

// CreateInvoice selects and locks the candidate rows, snapshots them into
// entries, creates the settling transfers and links the rows, all in one
// database transaction.
func (s *InvoiceService) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*invoice.Invoice, error) {
	log := logger.ForContext(ctx, s.logger).With("for_id", params.ForID, "credit", params.IsCreditInvoice)

	if params.ForID <= 0 {
		return nil, shared.NewValidationError("for_id", "is required")
	}
	if params.ByID <= 0 {
		return nil, shared.NewValidationError("by_id", "is required")
	}
	if params.Amount != nil && (params.Amount.Currency != s.ledger.Currency || params.Amount.Precision != s.ledger.Precision) {
		return nil, shared.NewValidationError("amount", "currency or precision differs from the ledger currency")
	}

	var inv *invoice.Invoice
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		filter, err := s.rowFilter(ctx, tx, params)
		if err != nil {
			return err
		}

		// Accounts before rows, the order reverse takes them in
		preview, err := s.transactions.WithTx(tx).ListLineItems(ctx, filter)
		if err != nil {
			return err
		}
		locked := settlingAccounts(params.ForID, preview)
		if _, err := s.locker.LockAccounts(ctx, tx, locked...); err != nil {
			return err
		}

		items, err := s.selectRows(ctx, tx, params, filter)
		if err != nil {
			return err
		}
		// Only a date-range selection can pick up sellers that appeared after the preview
		var extra []int64
		for _, id := range settlingAccounts(params.ForID, items) {
			if !slices.Contains(locked, id) {
				extra = append(extra, id)
			}
		}
		if len(extra) > 0 {
			if _, err := s.locker.LockAccounts(ctx, tx, extra...); err != nil {
				return err
			}
		}

		inv, err = s.buildInvoice(params, items)
		if err != nil {
			return err
		}
		total, err := inv.Total(s.ledger.Currency, s.ledger.Precision)
		if err != nil {
			return err
		}
		if total.IsZero() {
			return invoice.ErrZeroTotal{AccountID: params.ForID}
		}
		if params.Amount != nil && params.Amount.Amount != total.Amount {
			return invoice.ErrAmountMismatch{Requested: *params.Amount, Computed: total}
		}

		if err := s.invoices.WithTx(tx).Create(ctx, inv); err != nil {
			return err
		}

		for _, t := range s.settlingTransfers(inv, items) {
			if err := s.transferSvc.CreateInTx(ctx, tx, t); err != nil {
				return err
			}
			inv.Transfers = append(inv.Transfers, t)
		}

		rowIDs := make([]int64, 0, len(items))
		for _, item := range items {
			rowIDs = append(rowIDs, item.ID)
		}
		if err := s.transactions.WithTx(tx).LinkRowsToInvoice(ctx, inv.ID, rowIDs); err != nil {
			return err
		}

		e := event.New(event.TypeInvoiceCreated, inv.ID, inv.AccountIDs()...).
			WithAmount(total).
			WithState(string(invoice.StateCreated))
		return s.events.Record(ctx, tx, e)
	})
	if err != nil {
		log.Warn("Failed to create invoice", "error", err)
		return nil, err
	}

	log.Info("Invoice created", "invoice_id", inv.ID, "entries", len(inv.Entries), "transfers", len(inv.Transfers))
	return inv, nil
}

// rowFilter selects the explicitly requested transactions, or else every
// uninvoiced row since the last invoice of the account
func (s *InvoiceService) rowFilter(ctx context.Context, tx pgx.Tx, params CreateInvoiceParams) (transaction.RowFilter, error) {
	filter := transaction.RowFilter{AccountID: params.ForID, Role: transaction.RoleBuyer}
	if params.IsCreditInvoice {
		filter.Role = transaction.RoleSeller
	}

	if len(params.TransactionIDs) > 0 {
		filter.TransactionIDs = params.TransactionIDs
		return filter, nil
	}

	filter.OnlyUninvoiced = true
	filter.FromDate = params.FromDate
	if filter.FromDate == nil {
		last, err := s.invoices.WithTx(tx).LastInvoiceDate(ctx, params.ForID, params.IsCreditInvoice)
		if err != nil {
			return filter, err
		}
		filter.FromDate = last
	}
	return filter, nil
}

// selectRows locks the candidate rows. Every explicitly requested transaction
// must belong to the account and none of its rows may be invoiced already.
func (s *InvoiceService) selectRows(ctx context.Context, tx pgx.Tx, params CreateInvoiceParams, filter transaction.RowFilter) ([]*transaction.LineItem, error) {
	items, err := s.transactions.WithTx(tx).LockRowsForInvoicing(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.InvoiceID != nil {
			return nil, invoice.ErrAlreadyInvoiced{RowID: item.ID, InvoiceID: *item.InvoiceID}
		}
	}
	for _, id := range params.TransactionIDs {
		found := slices.ContainsFunc(items, func(item *transaction.LineItem) bool { return item.TransactionID == id })
		if !found {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
	}
	if len(items) == 0 {
		return nil, invoice.ErrEmptySelection{AccountID: params.ForID}
	}
	return items, nil
}

// settlingAccounts lists the accounts a new invoice moves money for
func settlingAccounts(forID int64, items []*transaction.LineItem) []int64 {
	ids := []int64{forID}
	for _, item := range items {
		if !slices.Contains(ids, item.SellerID) {
			ids = append(ids, item.SellerID)
		}
	}
	return ids
}

func (s *InvoiceService) buildInvoice(params CreateInvoiceParams, items []*transaction.LineItem) (*invoice.Invoice, error) {
	date := time.Now().UTC()
	if params.Date != nil {
		date = *params.Date
	}

	inv := &invoice.Invoice{
		ToID:            params.ForID,
		ByID:            params.ByID,
		IsCreditInvoice: params.IsCreditInvoice,
		Address:         params.Address,
		Reference:       params.Reference,
		Description:     params.Description,
		Date:            date,
	}
	for _, item := range items {
		if !item.PriceInclVAT.Compatible(money.Zero(s.ledger.Currency, s.ledger.Precision)) {
			return nil, transfer.ErrWrongCurrency
		}
		rowID := item.ID
		inv.Entries = append(inv.Entries, &invoice.Entry{
			RowID:         &rowID,
			Description:   item.ProductName,
			Amount:        item.Amount,
			PriceInclVAT:  item.PriceInclVAT,
			VATPercentage: item.VATPercentage,
		})
	}
	return inv, nil
}

// settlingTransfers builds the transfers of a new invoice. A debtor invoice
// pays every seller its share; a credit invoice pays the creditor from the
// system side. A seller whose rows are all free gets no transfer.
func (s *InvoiceService) settlingTransfers(inv *invoice.Invoice, items []*transaction.LineItem) []*transfer.Transfer {
	description := fmt.Sprintf("Invoice #%d", inv.ID)
	invoiceID := inv.ID
	toID := inv.ToID

	if inv.IsCreditInvoice {
		total := money.Zero(s.ledger.Currency, s.ledger.Precision)
		for _, item := range items {
			total.Amount += item.Total().Amount
		}
		return []*transfer.Transfer{{ToID: &toID, Amount: total, Description: description, InvoiceID: &invoiceID}}
	}

	perSeller := make(map[int64]int64)
	var sellers []int64
	for _, item := range items {
		if _, ok := perSeller[item.SellerID]; !ok {
			sellers = append(sellers, item.SellerID)
		}
		perSeller[item.SellerID] += item.Total().Amount
	}
	sort.Slice(sellers, func(i, j int) bool { return sellers[i] < sellers[j] })

	transfers := make([]*transfer.Transfer, 0, len(sellers))
	for _, sellerID := range sellers {
		if perSeller[sellerID] == 0 {
			continue
		}
		seller := sellerID
		transfers = append(transfers, &transfer.Transfer{
			FromID:      &toID,
			ToID:        &seller,
			Amount:      money.New(perSeller[sellerID], s.ledger.Currency, s.ledger.Precision),
			Description: description,
			InvoiceID:   &invoiceID,
		})
	}
	return transfers
}

// UpdateInvoice applies a state change and/or new descriptive fields.
// Moving to the current state is a no-op, so deleting a deleted invoice succeeds.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, params UpdateInvoiceParams) (*invoice.Invoice, error) {
	log := logger.ForContext(ctx, s.logger).With("invoice_id", params.InvoiceID)

	if params.State != nil && !params.State.Valid() {
		return nil, shared.NewValidationError("state", "must be one of CREATED, SENT, PAID, DELETED")
	}

	var inv *invoice.Invoice
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		inv, err = s.invoices.WithTx(tx).LockForUpdate(ctx, params.InvoiceID)
		if err != nil {
			return err
		}

		if params.State != nil {
			if err := s.changeState(ctx, tx, inv, *params.State); err != nil {
				return err
			}
		}

		if params.hasDetails() {
			if params.Address != nil {
				inv.Address = *params.Address
			}
			if params.Reference != nil {
				inv.Reference = *params.Reference
			}
			if params.Description != nil {
				inv.Description = *params.Description
			}
			if params.Date != nil {
				inv.Date = *params.Date
			}
			if err := s.invoices.WithTx(tx).UpdateDetails(ctx, inv); err != nil {
				return err
			}
		}

		inv.Transfers, err = s.transfers.WithTx(tx).ListByInvoice(ctx, inv.ID)
		return err
	})
	if err != nil {
		log.Warn("Failed to update invoice", "error", err)
		return nil, err
	}

	log.Info("Invoice updated", "state", inv.State())
	return inv, nil
}

func (p UpdateInvoiceParams) hasDetails() bool {
	return p.Address != nil || p.Reference != nil || p.Description != nil || p.Date != nil
}

func (s *InvoiceService) changeState(ctx context.Context, tx pgx.Tx, inv *invoice.Invoice, next invoice.State) error {
	current := inv.State()
	if next == current {
		return nil
	}
	if !current.CanTransition(next) {
		return invoice.ErrInvalidStateTransition{InvoiceID: inv.ID, From: current, To: next}
	}

	if next == invoice.StateDeleted {
		if err := s.reverse(ctx, tx, inv); err != nil {
			return err
		}
	}

	status, err := s.invoices.WithTx(tx).AddStatus(ctx, inv.ID, next)
	if err != nil {
		return err
	}
	inv.Statuses = append(inv.Statuses, status)

	e := event.New(event.TypeInvoiceStateChanged, inv.ID, inv.ToID).WithState(string(next))
	return s.events.Record(ctx, tx, e)
}

// reverse books the equal and opposite transfer for every settling transfer
// that has not been reversed yet and releases the invoiced rows
func (s *InvoiceService) reverse(ctx context.Context, tx pgx.Tx, inv *invoice.Invoice) error {
	transfers, err := s.transfers.WithTx(tx).ListByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}

	reversed := make(map[int64]bool)
	accountIDs := []int64{inv.ToID}
	for _, t := range transfers {
		if t.IsReversal() {
			reversed[*t.ReversalOf] = true
		}
		accountIDs = append(accountIDs, t.AccountIDs()...)
	}
	if _, err := s.locker.LockAccounts(ctx, tx, accountIDs...); err != nil {
		return err
	}

	description := fmt.Sprintf("Invoice #%d deleted", inv.ID)
	for _, t := range transfers {
		if t.IsReversal() || reversed[t.ID] {
			continue
		}
		if err := s.transferSvc.CreateInTx(ctx, tx, t.Reverse(description)); err != nil {
			return err
		}
	}

	unlinked, err := s.transactions.WithTx(tx).UnlinkInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	logger.ForContext(ctx, s.logger).Info("Invoice reversed", "invoice_id", inv.ID, "rows_unlinked", unlinked)
	return nil
}

// DeleteInvoice is UpdateInvoice with state DELETED
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID, byID int64) (*invoice.Invoice, error) {
	deleted := invoice.StateDeleted
	return s.UpdateInvoice(ctx, UpdateInvoiceParams{InvoiceID: invoiceID, ByID: byID, State: &deleted})
}

// GetInvoice returns an invoice with entries, status history and transfers
func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*invoice.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Transfers, err = s.transfers.ListByInvoice(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListByAccount returns a page of invoices addressed to the account
func (s *InvoiceService) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*invoice.Invoice, error) {
	return s.invoices.ListByAccount(ctx, accountID, limit, offset)
}
