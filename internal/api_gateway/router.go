package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/handler"
	"github.com/sudosos-ledger/internal/api_gateway/middleware"
	"github.com/sudosos-ledger/internal/api_gateway/service"
	"github.com/sudosos-ledger/internal/config"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, cfg *config.Config, services service.Services) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	balanceHandler := handler.NewBalanceHandler(logger, services.Balances)
	transferHandler := handler.NewTransferHandler(logger, services.Transfers, cfg.Ledger)
	transactionHandler := handler.NewTransactionHandler(logger, services.Transactions, services.Summary, cfg.Ledger)
	invoiceHandler := handler.NewInvoiceHandler(logger, services.Invoices, cfg.Ledger)
	writeOffHandler := handler.NewWriteOffHandler(logger, services.WriteOffs)
	payoutHandler := handler.NewPayoutHandler(logger, services.Payouts, cfg.Ledger)
	activityHandler := handler.NewActivityHandler(logger, services.Activity)

	admin := middleware.RequireRole(middleware.RoleAdmin)

	v1 := r.Group("/api/v1", middleware.Auth(cfg.Auth.JWTSecret))
	{
		accounts := v1.Group("/accounts/:id")
		{
			accounts.GET("/balance", balanceHandler.GetByAccount)
			accounts.GET("/transfers", transferHandler.ListByAccount)
			accounts.GET("/transactions", transactionHandler.ListByAccount)
			accounts.GET("/uninvoiced", transactionHandler.Exposure)
			accounts.GET("/activity", activityHandler.ListByAccount)
		}

		v1.GET("/balances", balanceHandler.List)
		v1.POST("/balances/update", admin, balanceHandler.Update)

		v1.POST("/transfers", admin, transferHandler.Create)
		v1.GET("/transfers/:id", transferHandler.GetByID)

		v1.POST("/transactions", transactionHandler.Create)
		v1.GET("/transactions/summary", transactionHandler.Summary)
		v1.GET("/transactions/:id", transactionHandler.GetByID)

		invoices := v1.Group("/invoices")
		{
			invoices.POST("", admin, invoiceHandler.Create)
			invoices.GET("/:id", invoiceHandler.GetByID)
			invoices.PATCH("/:id", admin, invoiceHandler.Update)
			invoices.DELETE("/:id", admin, invoiceHandler.Delete)
		}

		writeOffs := v1.Group("/write-offs")
		{
			writeOffs.POST("", admin, writeOffHandler.Create)
			writeOffs.GET("", admin, writeOffHandler.List)
			writeOffs.GET("/:id", writeOffHandler.GetByID)
		}

		payouts := v1.Group("/payout-requests")
		{
			payouts.POST("", payoutHandler.Create)
			payouts.GET("/:id", payoutHandler.GetByID)
			payouts.POST("/:id/status", payoutHandler.UpdateStatus)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
