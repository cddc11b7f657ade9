package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aurora-banking-core/internal/api/handler"
	"github.com/aurora-banking-core/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	jwtSecret string,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	transactionHandler *handler.TransactionHandler,
	cardHandler *handler.CardHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints, all user-scoped and behind authentication
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(jwtSecret))
	{
		// Account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("", accountHandler.List)
			accounts.GET("/:accountId/balance", transactionHandler.Balance)

			// Ledger operations
			accounts.POST("/:accountId/transactions", transactionHandler.Create)
			accounts.GET("/:accountId/transactions", transactionHandler.List)
			accounts.POST("/:accountId/transactions/:transactionId/reverse", transactionHandler.Reverse)
			accounts.POST("/:accountId/transfers", transactionHandler.Transfer)

			// Card operations
			accounts.POST("/:accountId/cards", cardHandler.Create)
			accounts.GET("/:accountId/cards", cardHandler.ListByAccount)
		}

		v1.GET("/cards", cardHandler.ListByUser)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
