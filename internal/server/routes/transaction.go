package routes

import (
	"github.com/gin-gonic/gin"

	"wallet-txcore/internal/handler"
)

func RegisterTransactionRoutes(rg *gin.RouterGroup, h *handler.TransactionHandler) {
	txGroup := rg.Group("/transactions")
	{
		txGroup.GET("", h.List)
		txGroup.POST("", h.Submit)
		txGroup.POST("/validate", h.Validate)
		txGroup.POST("/transfer", h.Transfer)
		txGroup.POST("/xcm", h.XcmTransfer)
		txGroup.POST("/staking/:action", h.Staking)
		txGroup.GET("/:id", h.Get)
		txGroup.GET("/:id/link", h.Link)
	}
	rg.GET("/history", h.History)
}
