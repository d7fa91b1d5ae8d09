package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/service"
)

// BalanceHandler serves balances computed live from the transfer history
type BalanceHandler struct {
	balances service.BalanceService
	logger   *slog.Logger
}

func NewBalanceHandler(logger *slog.Logger, balances service.BalanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances, logger: logger}
}

// GetByAccount handles GET /accounts/:id/balance
func (h *BalanceHandler) GetByAccount(c *gin.Context) {
	accountID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := allowAccount(c, accountID); !ok {
		return
	}

	b, err := h.balances.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, h.logger, "Failed to get balance", err)
		return
	}
	RespondOK(c, b)
}

// List handles GET /balances?ids=1,2. Members only see their own balance.
func (h *BalanceHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ids, ok := queryIDs(c, "ids")
	if !ok {
		return
	}
	if !a.IsAdmin() {
		for _, id := range ids {
			if id != a.ID {
				RespondForbidden(c, "")
				return
			}
		}
		if len(ids) == 0 {
			ids = []int64{a.ID}
		}
	}

	balances, err := h.balances.GetBalances(c.Request.Context(), ids)
	if err != nil {
		respondError(c, h.logger, "Failed to get balances", err)
		return
	}
	RespondOK(c, balances)
}

// Update handles POST /balances/update: refreshes the balance cache
func (h *BalanceHandler) Update(c *gin.Context) {
	ids, ok := queryIDs(c, "ids")
	if !ok {
		return
	}

	n, err := h.balances.UpdateBalances(c.Request.Context(), ids)
	if err != nil {
		respondError(c, h.logger, "Failed to update balances", err)
		return
	}
	RespondOK(c, gin.H{"updated": n})
}
