package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/service"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/transaction"
	ledger "github.com/sudosos-ledger/internal/ledger/service"
)

// TransactionHandler records purchases and reports on them
type TransactionHandler struct {
	transactions service.TransactionService
	summary      service.SummaryService
	ledger       config.LedgerConfig
	logger       *slog.Logger
}

func NewTransactionHandler(
	logger *slog.Logger,
	transactions service.TransactionService,
	summary service.SummaryService,
	ledgerCfg config.LedgerConfig,
) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, summary: summary, ledger: ledgerCfg, logger: logger}
}

// Create handles POST /transactions. Members may only buy for themselves.
func (h *TransactionHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if !a.IsAdmin() && req.FromID != a.ID {
		RespondForbidden(c, "Cannot buy on behalf of another account")
		return
	}

	t := &transaction.Transaction{
		FromID:              req.FromID,
		CreatedByID:         a.ID,
		PointOfSaleID:       req.PointOfSaleID,
		PointOfSaleRevision: req.PointOfSaleRevision,
	}
	for _, sub := range req.SubTransactions {
		st := &transaction.SubTransaction{
			ToID:              sub.ToID,
			ContainerID:       sub.ContainerID,
			ContainerRevision: sub.ContainerRevision,
		}
		for _, row := range sub.Rows {
			st.Rows = append(st.Rows, &transaction.Row{
				ProductID:       row.ProductID,
				ProductRevision: row.ProductRevision,
				ProductName:     row.ProductName,
				PriceInclVAT:    money.New(row.PriceInclVAT, h.ledger.Currency, h.ledger.Precision),
				VATPercentage:   row.VATPercentage,
				Amount:          row.Amount,
			})
		}
		t.SubTransactions = append(t.SubTransactions, st)
	}

	created, err := h.transactions.CreateTransaction(c.Request.Context(), t)
	if err != nil {
		respondError(c, h.logger, "Failed to create transaction", err)
		return
	}
	RespondCreated(c, created)
}

// GetByID handles GET /transactions/:id for admins, the buyer and the sellers
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.transactions.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get transaction", err)
		return
	}
	if !a.IsAdmin() && !involves(t, a.ID) {
		RespondForbidden(c, "")
		return
	}
	RespondOK(c, t)
}

func involves(t *transaction.Transaction, accountID int64) bool {
	if t.FromID == accountID {
		return true
	}
	for _, sub := range t.SubTransactions {
		if sub.ToID == accountID {
			return true
		}
	}
	return false
}

// ListByAccount handles GET /accounts/:id/transactions
func (h *TransactionHandler) ListByAccount(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := allowAccount(c, accountID); !ok {
		return
	}
	page, ok := pagination(c)
	if !ok {
		return
	}

	transactions, total, err := h.transactions.ListByAccount(c.Request.Context(), accountID, page.PerPage, page.offset())
	if err != nil {
		respondError(c, h.logger, "Failed to list transactions", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, transactions, page.Page, page.PerPage, int(total))
}

// Summary handles GET /transactions/summary?account_id=&role=&from_date=&till_date=
func (h *TransactionHandler) Summary(c *gin.Context) {
	var q SummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}
	if _, ok := allowAccount(c, q.AccountID); !ok {
		return
	}

	summary, err := h.summary.GetSummary(c.Request.Context(), ledger.SummaryParams{
		AccountID: q.AccountID,
		Role:      transaction.Role(q.Role),
		FromDate:  q.FromDate,
		TillDate:  q.TillDate,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to build transaction summary", err)
		return
	}
	RespondOK(c, summary)
}

// Exposure handles GET /accounts/:id/uninvoiced: the value of purchases not yet invoiced
func (h *TransactionHandler) Exposure(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := allowAccount(c, accountID); !ok {
		return
	}

	amount, err := h.summary.UninvoicedExposure(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, h.logger, "Failed to compute uninvoiced exposure", err)
		return
	}
	RespondOK(c, gin.H{"account_id": accountID, "amount": amount})
}
