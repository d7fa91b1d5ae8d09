package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/service"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/money"
	ledger "github.com/sudosos-ledger/internal/ledger/service"
)

// TransferHandler exposes manual transfers and transfer history
type TransferHandler struct {
	transfers service.TransferService
	ledger    config.LedgerConfig
	logger    *slog.Logger
}

func NewTransferHandler(logger *slog.Logger, transfers service.TransferService, ledgerCfg config.LedgerConfig) *TransferHandler {
	return &TransferHandler{transfers: transfers, ledger: ledgerCfg, logger: logger}
}

// Create handles POST /transfers (admin). An omitted side is the system.
func (h *TransferHandler) Create(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	t, err := h.transfers.CreateTransfer(c.Request.Context(), ledger.CreateTransferParams{
		FromID:      req.FromID,
		ToID:        req.ToID,
		Amount:      money.New(req.Amount, h.ledger.Currency, h.ledger.Precision),
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to create transfer", err)
		return
	}
	RespondCreated(c, t)
}

// GetByID handles GET /transfers/:id for admins and the accounts involved
func (h *TransferHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	t, err := h.transfers.GetTransfer(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get transfer", err)
		return
	}
	if !a.IsAdmin() && !t.Involves(a.ID) {
		RespondForbidden(c, "")
		return
	}
	RespondOK(c, t)
}

// ListByAccount handles GET /accounts/:id/transfers
func (h *TransferHandler) ListByAccount(c *gin.Context) {
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

	transfers, total, err := h.transfers.ListByAccount(c.Request.Context(), accountID, page.PerPage, page.offset())
	if err != nil {
		respondError(c, h.logger, "Failed to list transfers", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, transfers, page.Page, page.PerPage, int(total))
}
