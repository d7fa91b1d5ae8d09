package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// respondError maps a ledger error to its HTTP status by category
func respondError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		logger.Info(msg, "error", err)
		RespondBadRequest(c, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		logger.Info(msg, "error", err)
		RespondNotFound(c, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		logger.Warn(msg, "error", err)
		RespondForbidden(c, err.Error())
	case errors.Is(err, shared.ErrPrecondition):
		logger.Warn(msg, "error", err)
		RespondConflict(c, "PRECONDITION_FAILED", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		logger.Warn(msg, "error", err)
		RespondConflict(c, "INVALID_STATE", err.Error())
	default:
		logger.Error(msg, "error", err)
		RespondInternalError(c)
	}
}
