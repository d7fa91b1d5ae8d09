package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/service"
)

type WriteOffHandler struct {
	writeOffs service.WriteOffService
	logger    *slog.Logger
}

func NewWriteOffHandler(logger *slog.Logger, writeOffs service.WriteOffService) *WriteOffHandler {
	return &WriteOffHandler{writeOffs: writeOffs, logger: logger}
}

// Create handles POST /write-offs (admin)
func (h *WriteOffHandler) Create(c *gin.Context) {
	var req CreateWriteOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.writeOffs.CreateWriteOff(c.Request.Context(), req.ToID)
	if err != nil {
		respondError(c, h.logger, "Failed to create write-off", err)
		return
	}
	RespondCreated(c, w)
}

// GetByID handles GET /write-offs/:id for admins and the written-off account
func (h *WriteOffHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	w, err := h.writeOffs.GetWriteOff(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get write-off", err)
		return
	}
	if !a.IsAdmin() && w.ToID != a.ID {
		RespondForbidden(c, "")
		return
	}
	RespondOK(c, w)
}

// List handles GET /write-offs (admin)
func (h *WriteOffHandler) List(c *gin.Context) {
	page, ok := pagination(c)
	if !ok {
		return
	}

	writeOffs, total, err := h.writeOffs.ListWriteOffs(c.Request.Context(), page.PerPage, page.offset())
	if err != nil {
		respondError(c, h.logger, "Failed to list write-offs", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, writeOffs, page.Page, page.PerPage, int(total))
}
