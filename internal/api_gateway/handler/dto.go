package handler

import (
	"time"

	"github.com/sudosos-ledger/internal/domain/invoice"
)

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func (p PaginationParams) offset() int {
	return (p.Page - 1) * p.PerPage
}

// Amounts in requests are integer minor units of the ledger currency.

// CreateTransferRequest is a manual deposit, withdrawal or correction
type CreateTransferRequest struct {
	FromID      *int64 `json:"from_id"`
	ToID        *int64 `json:"to_id"`
	Amount      int64  `json:"amount" binding:"gt=0"`
	Description string `json:"description" binding:"required,max=255"`
}

type CreateRowRequest struct {
	ProductID       int64   `json:"product_id" binding:"required"`
	ProductRevision int     `json:"product_revision" binding:"required"`
	ProductName     string  `json:"product_name" binding:"required"`
	PriceInclVAT    int64   `json:"price_incl_vat" binding:"min=0"`
	VATPercentage   float64 `json:"vat_percentage" binding:"min=0,max=100"`
	Amount          int     `json:"amount" binding:"gt=0"`
}

type CreateSubTransactionRequest struct {
	ToID              int64              `json:"to_id" binding:"required"`
	ContainerID       int64              `json:"container_id" binding:"required"`
	ContainerRevision int                `json:"container_revision" binding:"required"`
	Rows              []CreateRowRequest `json:"rows" binding:"required,min=1,dive"`
}

type CreateTransactionRequest struct {
	FromID              int64                         `json:"from_id" binding:"required"`
	PointOfSaleID       int64                         `json:"point_of_sale_id" binding:"required"`
	PointOfSaleRevision int                           `json:"point_of_sale_revision" binding:"required"`
	SubTransactions     []CreateSubTransactionRequest `json:"sub_transactions" binding:"required,min=1,dive"`
}

type SummaryQuery struct {
	AccountID int64      `form:"account_id" binding:"required"`
	Role      string     `form:"role" binding:"omitempty,oneof=BUYER SELLER"`
	FromDate  *time.Time `form:"from_date"`
	TillDate  *time.Time `form:"till_date"`
}

type CreateInvoiceRequest struct {
	ForID           int64           `json:"for_id" binding:"required"`
	TransactionIDs  []int64         `json:"transaction_ids"`
	FromDate        *time.Time      `json:"from_date"`
	IsCreditInvoice bool            `json:"is_credit_invoice"`
	Amount          *int64          `json:"amount"`
	Address         invoice.Address `json:"address"`
	Reference       string          `json:"reference" binding:"required"`
	Description     string          `json:"description"`
	Date            *time.Time      `json:"date"`
}

type UpdateInvoiceRequest struct {
	State       *string          `json:"state" binding:"omitempty,oneof=CREATED SENT PAID DELETED"`
	Address     *invoice.Address `json:"address"`
	Reference   *string          `json:"reference"`
	Description *string          `json:"description"`
	Date        *time.Time       `json:"date"`
}

type CreateWriteOffRequest struct {
	ToID int64 `json:"to_id" binding:"required"`
}

type CreatePayoutRequest struct {
	Amount            int64  `json:"amount" binding:"gt=0"`
	BankAccountNumber string `json:"bank_account_number" binding:"required"`
	BankAccountName   string `json:"bank_account_name" binding:"required"`
}

type UpdatePayoutStatusRequest struct {
	State string `json:"state" binding:"required,oneof=CREATED APPROVED DENIED CANCELLED"`
}
