package routes

import (
	"github.com/gin-gonic/gin"

	"clinic-ops/src/handlers"
)

func RegisterTransactionRoutes(r *gin.RouterGroup, handler *handlers.TransactionHandler) {
	r.GET("", handler.List)
	r.GET("/stats", handler.Stats)
	r.GET("/daily-summary", handler.DailySummary)
	r.GET("/:id", handler.Get)
	r.POST("/:id/cancel", handler.Cancel)
	r.POST("/:id/print", handler.Print)
}

func RegisterPOSRoutes(r *gin.RouterGroup, handler *handlers.TransactionHandler) {
	r.POST("/cart", handler.Cart)
	r.POST("/checkout", handler.Checkout)
}
