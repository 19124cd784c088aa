package routes

import (
	"github.com/gin-gonic/gin"

	"wallet-txcore/internal/handler"
)

func RegisterSigningRoutes(rg *gin.RouterGroup, h *handler.SigningHandler) {
	signGroup := rg.Group("/signing/sessions")
	{
		signGroup.GET("", h.Sessions)
		signGroup.GET("/:id/qr", h.QR)
		signGroup.POST("/:id/scan", h.Scan)
		signGroup.POST("/:id/cancel", h.Cancel)
	}
}
