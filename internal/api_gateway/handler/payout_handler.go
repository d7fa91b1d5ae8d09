package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/service"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/payout"
	ledger "github.com/sudosos-ledger/internal/ledger/service"
)

type PayoutHandler struct {
	payouts service.PayoutService
	ledger  config.LedgerConfig
	logger  *slog.Logger
}

func NewPayoutHandler(logger *slog.Logger, payouts service.PayoutService, ledgerCfg config.LedgerConfig) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, ledger: ledgerCfg, logger: logger}
}

// Create handles POST /payout-requests on behalf of the caller
func (h *PayoutHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p, err := h.payouts.CreatePayoutRequest(c.Request.Context(), ledger.CreatePayoutParams{
		RequestedByID:     a.ID,
		Amount:            money.New(req.Amount, h.ledger.Currency, h.ledger.Precision),
		BankAccountNumber: req.BankAccountNumber,
		BankAccountName:   req.BankAccountName,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to create payout request", err)
		return
	}
	RespondCreated(c, p)
}

// GetByID handles GET /payout-requests/:id for admins and the requester
func (h *PayoutHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	p, err := h.payouts.GetPayoutRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get payout request", err)
		return
	}
	if !a.IsAdmin() && p.RequestedByID != a.ID {
		RespondForbidden(c, "")
		return
	}
	RespondOK(c, p)
}

// UpdateStatus handles POST /payout-requests/:id/status. Approving and
// denying need the admin role; only the requester may cancel.
func (h *PayoutHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}
	var req UpdatePayoutStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	next := payout.State(req.State)
	if (next == payout.StateApproved || next == payout.StateDenied) && !a.IsAdmin() {
		RespondForbidden(c, "Only admins can approve or deny payout requests")
		return
	}

	p, err := h.payouts.UpdateStatus(c.Request.Context(), id, next, a.ID)
	if err != nil {
		respondError(c, h.logger, "Failed to update payout request status", err)
		return
	}
	RespondOK(c, p)
}
