package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/service"
)

// ActivityHandler serves the published ledger events of an account
type ActivityHandler struct {
	activity service.ActivityService
	logger   *slog.Logger
}

func NewActivityHandler(logger *slog.Logger, activity service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

// ListByAccount handles GET /accounts/:id/activity
func (h *ActivityHandler) ListByAccount(c *gin.Context) {
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

	events, total, err := h.activity.ListByAccount(c.Request.Context(), accountID, page.Page, page.PerPage)
	if err != nil {
		respondError(c, h.logger, "Failed to list account activity", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, events, page.Page, page.PerPage, int(total))
}
