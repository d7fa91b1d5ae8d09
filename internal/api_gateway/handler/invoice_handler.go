package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/service"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/invoice"
	"github.com/sudosos-ledger/internal/domain/money"
	ledger "github.com/sudosos-ledger/internal/ledger/service"
)

// InvoiceHandler settles transaction rows through invoices. Mutations are admin only.
type InvoiceHandler struct {
	invoices service.InvoiceService
	ledger   config.LedgerConfig
	logger   *slog.Logger
}

func NewInvoiceHandler(logger *slog.Logger, invoices service.InvoiceService, ledgerCfg config.LedgerConfig) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, ledger: ledgerCfg, logger: logger}
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := ledger.CreateInvoiceParams{
		ForID:           req.ForID,
		ByID:            a.ID,
		TransactionIDs:  req.TransactionIDs,
		FromDate:        req.FromDate,
		IsCreditInvoice: req.IsCreditInvoice,
		Address:         req.Address,
		Reference:       req.Reference,
		Description:     req.Description,
		Date:            req.Date,
	}
	if req.Amount != nil {
		amount := money.New(*req.Amount, h.ledger.Currency, h.ledger.Precision)
		params.Amount = &amount
	}

	inv, err := h.invoices.CreateInvoice(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, "Failed to create invoice", err)
		return
	}
	RespondCreated(c, inv)
}

// GetByID handles GET /invoices/:id for admins and the invoiced account
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	inv, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get invoice", err)
		return
	}
	if !a.IsAdmin() && inv.ToID != a.ID {
		RespondForbidden(c, "")
		return
	}
	RespondOK(c, inv)
}

// Update handles PATCH /invoices/:id. Moving to DELETED reverses the invoice transfers.
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := ledger.UpdateInvoiceParams{
		InvoiceID:   id,
		ByID:        a.ID,
		Address:     req.Address,
		Reference:   req.Reference,
		Description: req.Description,
		Date:        req.Date,
	}
	if req.State != nil {
		state := invoice.State(*req.State)
		params.State = &state
	}

	inv, err := h.invoices.UpdateInvoice(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, "Failed to update invoice", err)
		return
	}
	RespondOK(c, inv)
}

// Delete handles DELETE /invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	inv, err := h.invoices.DeleteInvoice(c.Request.Context(), id, a.ID)
	if err != nil {
		respondError(c, h.logger, "Failed to delete invoice", err)
		return
	}
	RespondOK(c, inv)
}
