package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
	"github.com/sudosos-ledger/internal/domain/transaction"
	"github.com/sudosos-ledger/internal/logger"
)

// SummaryParams selects the line items to aggregate
type SummaryParams struct {
	AccountID int64
	Role      transaction.Role
	FromDate  *time.Time
	TillDate  *time.Time
}

// Totals is an aggregate over a set of line items
type Totals struct {
	Quantity int         `json:"quantity"`
	InclVAT  money.Money `json:"total_incl_vat"`
	ExclVAT  money.Money `json:"total_excl_vat"`
}

// SellerTotals aggregates line items per seller
type SellerTotals struct {
	SellerID int64 `json:"seller_id"`
	Totals
}

// ProductTotals aggregates line items per product
type ProductTotals struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Totals
}

// Summary is the read-only report over an account's purchases or sales
type Summary struct {
	AccountID int64            `json:"account_id"`
	Role      transaction.Role `json:"role"`
	FromDate  *time.Time       `json:"from_date,omitempty"`
	TillDate  *time.Time       `json:"till_date,omitempty"`
	Total     Totals           `json:"total"`
	Sellers   []*SellerTotals  `json:"sellers"`
	Products  []*ProductTotals `json:"products"`
}

// SummaryService reports on transactions. It never mutates anything.
type SummaryService struct {
	transactions transaction.Repository
	ledger       config.LedgerConfig
	logger       *slog.Logger
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(transactions transaction.Repository, ledger config.LedgerConfig, logger *slog.Logger) *SummaryService {
	return &SummaryService{
		transactions: transactions,
		ledger:       ledger,
		logger:       logger,
	}
}

func (s *SummaryService) zeroTotals() Totals {
	zero := money.Zero(s.ledger.Currency, s.ledger.Precision)
	return Totals{InclVAT: zero, ExclVAT: zero}
}

func (t *Totals) add(item *transaction.LineItem) error {
	incl := item.Total()
	var err error
	if t.InclVAT, err = t.InclVAT.Add(incl); err != nil {
		return err
	}
	if t.ExclVAT, err = t.ExclVAT.Add(incl.ExcludingVAT(item.VATPercentage)); err != nil {
		return err
	}
	t.Quantity += item.Amount
	return nil
}

// GetSummary aggregates the account's line items in the window per seller and
// per product. VAT is removed per row before summing.
func (s *SummaryService) GetSummary(ctx context.Context, params SummaryParams) (*Summary, error) {
	if params.AccountID <= 0 {
		return nil, shared.NewValidationError("account_id", "is required")
	}
	if params.Role == "" {
		params.Role = transaction.RoleBuyer
	}
	if params.Role != transaction.RoleBuyer && params.Role != transaction.RoleSeller {
		return nil, shared.NewValidationError("role", "must be BUYER or SELLER")
	}
	if params.FromDate != nil && params.TillDate != nil && params.TillDate.Before(*params.FromDate) {
		return nil, shared.NewValidationError("till_date", "must not be before from_date")
	}

	items, err := s.transactions.ListLineItems(ctx, transaction.RowFilter{
		AccountID: params.AccountID,
		Role:      params.Role,
		FromDate:  params.FromDate,
		TillDate:  params.TillDate,
	})
	if err != nil {
		logger.ForContext(ctx, s.logger).Error("Failed to list line items", "account_id", params.AccountID, "error", err)
		return nil, err
	}

	summary := &Summary{
		AccountID: params.AccountID,
		Role:      params.Role,
		FromDate:  params.FromDate,
		TillDate:  params.TillDate,
		Total:     s.zeroTotals(),
		Sellers:   []*SellerTotals{},
		Products:  []*ProductTotals{},
	}
	sellers := make(map[int64]*SellerTotals)
	products := make(map[int64]*ProductTotals)

	for _, item := range items {
		if err := summary.Total.add(item); err != nil {
			return nil, err
		}

		seller, ok := sellers[item.SellerID]
		if !ok {
			seller = &SellerTotals{SellerID: item.SellerID, Totals: s.zeroTotals()}
			sellers[item.SellerID] = seller
			summary.Sellers = append(summary.Sellers, seller)
		}
		if err := seller.add(item); err != nil {
			return nil, err
		}

		product, ok := products[item.ProductID]
		if !ok {
			product = &ProductTotals{ProductID: item.ProductID, ProductName: item.ProductName, Totals: s.zeroTotals()}
			products[item.ProductID] = product
			summary.Products = append(summary.Products, product)
		}
		if err := product.add(item); err != nil {
			return nil, err
		}
	}

	sort.Slice(summary.Sellers, func(i, j int) bool { return summary.Sellers[i].SellerID < summary.Sellers[j].SellerID })
	sort.Slice(summary.Products, func(i, j int) bool { return summary.Products[i].ProductID < summary.Products[j].ProductID })
	return summary, nil
}

// UninvoicedExposure returns the value of the account's purchases that no
// invoice has settled yet
func (s *SummaryService) UninvoicedExposure(ctx context.Context, accountID int64) (money.Money, error) {
	items, err := s.transactions.ListLineItems(ctx, transaction.RowFilter{
		AccountID:      accountID,
		Role:           transaction.RoleBuyer,
		OnlyUninvoiced: true,
	})
	if err != nil {
		return money.Money{}, err
	}

	totals := make([]money.Money, 0, len(items))
	for _, item := range items {
		totals = append(totals, item.Total())
	}
	return money.Sum(s.ledger.Currency, s.ledger.Precision, totals...)
}
